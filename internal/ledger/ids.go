// ABOUTME: Next-identifier computation over ledger record lists
// ABOUTME: Largest numeric ID plus one; non-numeric IDs are ignored

package ledger

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
)

// NextID returns the largest non-negative integer in ids plus one, or "1"
// when ids holds no such value. IDs are compared as arbitrary-precision
// decimals, so values past the int64 range still count.
func NextID(ids []string) string {
	return nextID(ids).String()
}

func nextID(ids []string) *big.Int {
	highest := new(big.Int)
	for _, id := range ids {
		n, ok := new(big.Int).SetString(strings.TrimSpace(id), 10)
		if !ok || n.Sign() < 0 {
			continue
		}
		if n.Cmp(highest) > 0 {
			highest = n
		}
	}
	return highest.Add(highest, big.NewInt(1))
}

type assetRecord struct {
	AssetID string `json:"assetID"`
}

type emissionsRecord struct {
	ID string `json:"ID"`
}

// assetIDs decodes a GetAllAssets result.
func assetIDs(raw []byte) ([]string, error) {
	var records []assetRecord
	if err := decodeRecords(raw, &records); err != nil {
		return nil, fmt.Errorf("decoding assets: %w", err)
	}
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.AssetID)
	}
	return ids, nil
}

// emissionsIDs decodes a GetAllEmissionsRecords or GetEmissionsRecordsOfOwner result.
func emissionsIDs(raw []byte) ([]string, error) {
	var records []emissionsRecord
	if err := decodeRecords(raw, &records); err != nil {
		return nil, fmt.Errorf("decoding emissions records: %w", err)
	}
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

// decodeRecords treats an empty result as an empty list; chaincode returns
// nothing (or null) when a collection has no records.
func decodeRecords(raw []byte, v any) error {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}
