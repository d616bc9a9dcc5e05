// ABOUTME: Gateway settings, operation inputs and sentinel errors for ledger access
// ABOUTME: Inputs carry already-normalized form values; lists are never nil

package ledger

import (
	"errors"
	"fmt"
)

// Ledger errors
var (
	ErrNotConfigured = errors.New("gateway not configured")
	ErrConnection    = errors.New("failed to connect to gateway")
	ErrInvalidInput  = errors.New("invalid input")
)

// GatewayConfig describes one peer connection and the identity used on it.
type GatewayConfig struct {
	Address            string `json:"gatewayAddress"`
	OrganizationID     string `json:"organizationID"`
	CertificatePath    string `json:"certificatePath"`
	PrivateKeyPath     string `json:"privateKeyPath"`
	TLSRootCertPath    string `json:"tlsRootCertPath"`
	ServerNameOverride string `json:"serverNameOverride,omitempty"`
}

// Validate checks that every field needed to dial is present.
func (c GatewayConfig) Validate() error {
	switch {
	case c.Address == "":
		return fmt.Errorf("%w: gateway address is required", ErrInvalidInput)
	case c.OrganizationID == "":
		return fmt.Errorf("%w: organization ID is required", ErrInvalidInput)
	case c.CertificatePath == "":
		return fmt.Errorf("%w: certificate path is required", ErrInvalidInput)
	case c.PrivateKeyPath == "":
		return fmt.Errorf("%w: private key path is required", ErrInvalidInput)
	case c.TLSRootCertPath == "":
		return fmt.Errorf("%w: TLS root certificate path is required", ErrInvalidInput)
	}
	return nil
}

// ContractNames selects the channel and the two chaincodes the portal calls.
type ContractNames struct {
	Channel            string `json:"channel"`
	TransferChaincode  string `json:"transferChaincode"`
	EmissionsChaincode string `json:"emissionsChaincode"`
}

// Validate checks that no name is empty.
func (n ContractNames) Validate() error {
	if n.Channel == "" || n.TransferChaincode == "" || n.EmissionsChaincode == "" {
		return fmt.Errorf("%w: channel and chaincode names are required", ErrInvalidInput)
	}
	return nil
}

// ProductInput creates a manufactured asset from consumed assets and emissions tokens.
type ProductInput struct {
	RecipeID         string
	AssetName        string
	ConsumedAssetIDs []string
	EmissionsTokens  []string
}

// TransferInput opens a shipment.
type TransferInput struct {
	ShippingID      string
	Quantity        int
	ListIDs         []string
	AssetName       string
	EmissionsTokens []string
}

// ConfirmInput claims a shipment. EmissionsGroups holds one token list per
// shipped item.
type ConfirmInput struct {
	ShippingID      string
	Quantity        int
	ListIDs         []string
	AssetName       string
	EmissionsGroups [][]string
}

// EmissionsInput records kilograms of CO2 for the configured organization.
type EmissionsInput struct {
	KgCO2 int
	Notes string
}
