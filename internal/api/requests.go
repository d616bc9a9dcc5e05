// ABOUTME: JSON request bodies for the API and their form-encoded equivalents
// ABOUTME: Form bodies use the page field names; lists arrive comma separated

package api

import (
	"net/url"
	"strings"

	"github.com/2389/ledger-portal/internal/form"
	"github.com/2389/ledger-portal/internal/ledger"
)

// ManufactureRequest is the body of POST /manufacture.
type ManufactureRequest struct {
	RecipeID         string   `json:"recipeID"`
	AssetName        string   `json:"assetName"`
	ConsumedAssetIDs []string `json:"consumedAssetIDs"`
	EmissionsTokens  []string `json:"emissionsTokens"`
}

func (m *ManufactureRequest) fromForm(v url.Values) error {
	m.RecipeID = v.Get("recipeID")
	m.AssetName = v.Get("assetName")
	m.ConsumedAssetIDs = form.SplitList(v.Get("consumedAssetIDs"))
	m.EmissionsTokens = form.SplitList(v.Get("emissionsTokens"))
	return nil
}

func (m ManufactureRequest) input() ledger.ProductInput {
	return ledger.ProductInput{
		RecipeID:         strings.TrimSpace(m.RecipeID),
		AssetName:        strings.TrimSpace(m.AssetName),
		ConsumedAssetIDs: clean(m.ConsumedAssetIDs),
		EmissionsTokens:  clean(m.EmissionsTokens),
	}
}

// TransferRequest is the body of POST /transfer.
type TransferRequest struct {
	ShippingID      string   `json:"shippingID"`
	Quantity        int      `json:"quantity"`
	ListIDs         []string `json:"list_ID"`
	AssetName       string   `json:"assetName"`
	EmissionsTokens []string `json:"emissionsTokens"`
}

func (t *TransferRequest) fromForm(v url.Values) error {
	q, err := form.ParseInt("quantity", v.Get("quantity"))
	if err != nil {
		return err
	}
	t.ShippingID = v.Get("shippingID")
	t.Quantity = q
	t.ListIDs = form.SplitList(v.Get("list_ID"))
	t.AssetName = v.Get("assetName")
	t.EmissionsTokens = form.SplitList(v.Get("emissionsTokens"))
	return nil
}

func (t TransferRequest) input() ledger.TransferInput {
	return ledger.TransferInput{
		ShippingID:      strings.TrimSpace(t.ShippingID),
		Quantity:        t.Quantity,
		ListIDs:         clean(t.ListIDs),
		AssetName:       strings.TrimSpace(t.AssetName),
		EmissionsTokens: clean(t.EmissionsTokens),
	}
}

// ConfirmRequest is the body of POST /transfer/confirm. EmissionsTokens holds
// one token list per shipped item.
type ConfirmRequest struct {
	ShippingID      string     `json:"shippingID"`
	Quantity        int        `json:"quantity"`
	ListIDs         []string   `json:"list_ID"`
	AssetName       string     `json:"assetName"`
	EmissionsTokens [][]string `json:"emissionsTokens"`
}

func (c *ConfirmRequest) fromForm(v url.Values) error {
	q, err := form.ParseInt("quantity", v.Get("quantity"))
	if err != nil {
		return err
	}
	c.ShippingID = v.Get("shippingID")
	c.Quantity = q
	c.ListIDs = form.SplitList(v.Get("list_ID"))
	c.AssetName = v.Get("assetName")
	c.EmissionsTokens = form.SplitGroups(v.Get("emissionsTokens"))
	return nil
}

func (c ConfirmRequest) input() ledger.ConfirmInput {
	groups := [][]string{}
	for _, g := range c.EmissionsTokens {
		if members := clean(g); len(members) > 0 {
			groups = append(groups, members)
		}
	}
	return ledger.ConfirmInput{
		ShippingID:      strings.TrimSpace(c.ShippingID),
		Quantity:        c.Quantity,
		ListIDs:         clean(c.ListIDs),
		AssetName:       strings.TrimSpace(c.AssetName),
		EmissionsGroups: groups,
	}
}

// EmissionsRequest is the body of POST /emissions.
type EmissionsRequest struct {
	GHGEmissions   int    `json:"ghgEmissions"`
	AdditionalInfo string `json:"additionalInfo"`
}

func (e *EmissionsRequest) fromForm(v url.Values) error {
	kg, err := form.ParseInt("ghgEmissions", v.Get("ghgEmissions"))
	if err != nil {
		return err
	}
	e.GHGEmissions = kg
	e.AdditionalInfo = v.Get("additionalInfo")
	return nil
}

// GatewayRequest is the body of POST /settings/gateway. A known Preset
// replaces the other fields.
type GatewayRequest struct {
	Preset string `json:"preconfiguredSettings,omitempty"`
	ledger.GatewayConfig
}

func (g *GatewayRequest) fromForm(v url.Values) error {
	g.Preset = v.Get("preconfiguredSettings")
	g.Address = v.Get("gatewayAddress")
	g.OrganizationID = v.Get("organizationID")
	g.CertificatePath = v.Get("certificatePath")
	g.PrivateKeyPath = v.Get("privateKeyPath")
	g.TLSRootCertPath = v.Get("tlsRootCertPath")
	g.ServerNameOverride = v.Get("serverNameOverride")
	return nil
}

// ChannelRequest is the body of POST /settings/channel.
type ChannelRequest struct {
	ledger.ContractNames
}

func (c *ChannelRequest) fromForm(v url.Values) error {
	c.Channel = v.Get("channel")
	c.TransferChaincode = v.Get("transferChaincode")
	c.EmissionsChaincode = v.Get("emissionsChaincode")
	return nil
}

// OverviewRequest is the body of POST /overview.
type OverviewRequest struct {
	ProductID string `json:"productID"`
}

func (o *OverviewRequest) fromForm(v url.Values) error {
	o.ProductID = v.Get("productID")
	return nil
}

// Response is the body of every successful operation.
type Response struct {
	Message string `json:"message"`
	Result  string `json:"result,omitempty"`
}

// clean trims list members and drops empty ones.
func clean(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
