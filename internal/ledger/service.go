// ABOUTME: Ledger service holding the active gateway connection behind a lock
// ABOUTME: Implements product, transfer, emissions and query operations on the chaincodes

package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/2389/ledger-portal/internal/reserve"
)

// Transaction names
const (
	TxManufactureAsset           = "ManufactureAsset"
	TxCreateShipping             = "CreateShipping"
	TxClaimShipping              = "ClaimShipping"
	TxAuditEmissions             = "AuditEmissions"
	TxGetAllAssets               = "GetAllAssets"
	TxGetAllEmissionsRecords     = "GetAllEmissionsRecords"
	TxGetEmissionsRecordsOfOwner = "GetEmissionsRecordsOfOwner"
	TxCustomerGetAsset           = "CustomerGetAsset"
)

// TransientKey is the transient map key the chaincode reads its input from.
const TransientKey = "asset_properties"

const maxReservations = 10000

// Options configures a Service.
type Options struct {
	Contracts        ContractNames
	CollectionSuffix string
	Timeout          time.Duration // per operation; zero means no deadline
	ReservationTTL   time.Duration

	// Now is used to stamp shipments. Defaults to time.Now.
	Now func() time.Time
}

// Service is the single owner of the gateway connection.
type Service struct {
	dialer           Dialer
	logger           *slog.Logger
	collectionSuffix string
	timeout          time.Duration
	now              func() time.Time
	reserved         *reserve.Set

	mu        sync.RWMutex
	conn      Connection
	gateway   GatewayConfig
	contracts ContractNames
}

// NewService creates a service with no connection. Call Configure before
// running operations.
func NewService(dialer Dialer, opts Options, logger *slog.Logger) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	ttl := opts.ReservationTTL
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &Service{
		dialer:           dialer,
		logger:           logger,
		collectionSuffix: opts.CollectionSuffix,
		timeout:          opts.Timeout,
		now:              opts.Now,
		reserved:         reserve.New(ttl, maxReservations),
		contracts:        opts.Contracts,
	}
}

// Configure dials cfg and replaces the current connection. The swap waits for
// in-flight operations; the previous connection is closed afterwards.
func (s *Service) Configure(ctx context.Context, cfg GatewayConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	conn, err := s.dialer.Dial(ctx, cfg)
	if err != nil {
		return fmt.Errorf("dialing gateway %s: %w", cfg.Address, err)
	}
	if conn == nil {
		return ErrConnection
	}

	s.mu.Lock()
	old := s.conn
	s.conn = conn
	s.gateway = cfg
	s.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			s.logger.Warn("closing previous gateway connection", "error", err)
		}
	}

	s.logger.Info("gateway connection established",
		"address", cfg.Address,
		"organization", cfg.OrganizationID,
	)
	return nil
}

// Current returns the active gateway settings and whether a connection exists.
func (s *Service) Current() (GatewayConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gateway, s.conn != nil
}

// Contracts returns the channel and chaincode names in use.
func (s *Service) Contracts() ContractNames {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.contracts
}

// SetContracts switches the channel and chaincode names for subsequent calls.
func (s *Service) SetContracts(names ContractNames) error {
	if err := names.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.contracts = names
	s.mu.Unlock()

	s.logger.Info("contracts changed",
		"channel", names.Channel,
		"transfer_chaincode", names.TransferChaincode,
		"emissions_chaincode", names.EmissionsChaincode,
	)
	return nil
}

type manufactureProperties struct {
	AssetID      string   `json:"assetID"`
	RecipeID     string   `json:"recipeID"`
	AssetName    string   `json:"assetName"`
	EmissionsIDs []string `json:"emissionsIDs"`
	Assets       []string `json:"assets"`
}

type shippingProperties struct {
	ShippingID       string   `json:"shippingID"`
	Quantity         int      `json:"quantity"`
	ListIDs          []string `json:"list_ID"`
	AssetName        string   `json:"assetName"`
	Date             string   `json:"date"`
	ShipEmissionsIDs []string `json:"shipEmissionsIDs"`
}

type claimProperties struct {
	ShippingID   string     `json:"shippingID"`
	Quantity     int        `json:"quantity"`
	ListIDs      []string   `json:"list_ID"`
	AssetName    string     `json:"assetName"`
	Date         string     `json:"date"`
	EmissionsIDs [][]string `json:"emissionsIDs"`
}

// CreateProduct allocates the next asset ID in the organization's private
// collection and submits ManufactureAsset.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.conn == nil {
		return "", ErrNotConfigured
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	contract := s.conn.Contract(s.contracts.Channel, s.contracts.TransferChaincode)

	collection := s.gateway.OrganizationID + s.collectionSuffix
	raw, err := contract.Evaluate(ctx, TxGetAllAssets, Call{Args: []string{collection}})
	if err != nil {
		return "", fmt.Errorf("evaluating %s: %w", TxGetAllAssets, err)
	}
	ids, err := assetIDs(raw)
	if err != nil {
		return "", err
	}

	id, key := s.allocate("asset", ids)
	transient, err := properties(manufactureProperties{
		AssetID:      id,
		RecipeID:     in.RecipeID,
		AssetName:    in.AssetName,
		EmissionsIDs: nonNil(in.EmissionsTokens),
		Assets:       nonNil(in.ConsumedAssetIDs),
	})
	if err != nil {
		s.reserved.Release(key)
		return "", err
	}

	result, err := contract.Submit(ctx, TxManufactureAsset, Call{Transient: transient})
	if err != nil {
		s.reserved.Release(key)
		return "", fmt.Errorf("submitting %s: %w", TxManufactureAsset, err)
	}

	s.logger.Info("product created", "asset_id", id, "asset_name", in.AssetName)
	return string(result), nil
}

// CreateTransfer submits CreateShipping.
func (s *Service) CreateTransfer(ctx context.Context, in TransferInput) (string, error) {
	transient, err := properties(shippingProperties{
		ShippingID:       in.ShippingID,
		Quantity:         in.Quantity,
		ListIDs:          nonNil(in.ListIDs),
		AssetName:        in.AssetName,
		Date:             s.stamp(),
		ShipEmissionsIDs: nonNil(in.EmissionsTokens),
	})
	if err != nil {
		return "", err
	}
	return s.submitTransfer(ctx, TxCreateShipping, in.ShippingID, transient)
}

// ConfirmTransfer submits ClaimShipping.
func (s *Service) ConfirmTransfer(ctx context.Context, in ConfirmInput) (string, error) {
	groups := make([][]string, 0, len(in.EmissionsGroups))
	for _, g := range in.EmissionsGroups {
		groups = append(groups, nonNil(g))
	}
	transient, err := properties(claimProperties{
		ShippingID:   in.ShippingID,
		Quantity:     in.Quantity,
		ListIDs:      nonNil(in.ListIDs),
		AssetName:    in.AssetName,
		Date:         s.stamp(),
		EmissionsIDs: groups,
	})
	if err != nil {
		return "", err
	}
	return s.submitTransfer(ctx, TxClaimShipping, in.ShippingID, transient)
}

func (s *Service) submitTransfer(ctx context.Context, name, shippingID string, transient map[string][]byte) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.conn == nil {
		return "", ErrNotConfigured
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	contract := s.conn.Contract(s.contracts.Channel, s.contracts.TransferChaincode)
	result, err := contract.Submit(ctx, name, Call{Transient: transient})
	if err != nil {
		return "", fmt.Errorf("submitting %s: %w", name, err)
	}

	s.logger.Info("shipment submitted", "transaction", name, "shipping_id", shippingID)
	return string(result), nil
}

// RecordEmissions allocates the next emissions record ID, collects the IDs
// of the organization's earlier records and submits AuditEmissions.
func (s *Service) RecordEmissions(ctx context.Context, in EmissionsInput) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.conn == nil {
		return "", ErrNotConfigured
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	contract := s.conn.Contract(s.contracts.Channel, s.contracts.EmissionsChaincode)

	raw, err := contract.Evaluate(ctx, TxGetAllEmissionsRecords, Call{})
	if err != nil {
		return "", fmt.Errorf("evaluating %s: %w", TxGetAllEmissionsRecords, err)
	}
	ids, err := emissionsIDs(raw)
	if err != nil {
		return "", err
	}
	id, key := s.allocate("emissions", ids)

	owned, err := contract.Evaluate(ctx, TxGetEmissionsRecordsOfOwner, Call{
		Transient: map[string][]byte{"ownerID": []byte(s.gateway.OrganizationID)},
	})
	if err != nil {
		s.reserved.Release(key)
		return "", fmt.Errorf("evaluating %s: %w", TxGetEmissionsRecordsOfOwner, err)
	}
	prevIDs, err := emissionsIDs(owned)
	if err != nil {
		s.reserved.Release(key)
		return "", err
	}
	prevJSON, err := json.Marshal(prevIDs)
	if err != nil {
		s.reserved.Release(key)
		return "", fmt.Errorf("encoding previous emissions IDs: %w", err)
	}

	args := []string{id, string(prevJSON), strconv.Itoa(in.KgCO2), in.Notes}
	result, err := contract.Submit(ctx, TxAuditEmissions, Call{Args: args})
	if err != nil {
		s.reserved.Release(key)
		return "", fmt.Errorf("submitting %s: %w", TxAuditEmissions, err)
	}

	s.logger.Info("emissions recorded", "record_id", id, "kg_co2", in.KgCO2, "previous", len(prevIDs))
	return string(result), nil
}

// QueryProduct evaluates CustomerGetAsset for the public view of an asset.
func (s *Service) QueryProduct(ctx context.Context, assetID string) (string, error) {
	if assetID == "" {
		return "", fmt.Errorf("%w: product ID is required", ErrInvalidInput)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.conn == nil {
		return "", ErrNotConfigured
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	contract := s.conn.Contract(s.contracts.Channel, s.contracts.TransferChaincode)
	result, err := contract.Evaluate(ctx, TxCustomerGetAsset, Call{Args: []string{assetID}})
	if err != nil {
		return "", fmt.Errorf("evaluating %s: %w", TxCustomerGetAsset, err)
	}
	return string(result), nil
}

// Close drops the connection and stops the reservation sweeper.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reserved.Close()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// allocate picks the next free ID in scope and returns it with its reservation key.
func (s *Service) allocate(scope string, ids []string) (id, key string) {
	one := big.NewInt(1)
	for n := nextID(ids); ; n.Add(n, one) {
		id = n.String()
		key = scope + ":" + id
		if s.reserved.Reserve(key) {
			return id, key
		}
	}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Service) stamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

func properties(v any) (map[string][]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", TransientKey, err)
	}
	return map[string][]byte{TransientKey: data}, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
