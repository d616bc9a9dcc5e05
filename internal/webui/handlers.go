// ABOUTME: Form submission handlers; each calls exactly one ledger operation
// ABOUTME: Every exit path stores the flash state and redirects with 303 See Other

package webui

import (
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/2389/ledger-portal/internal/form"
	"github.com/2389/ledger-portal/internal/ledger"
	"github.com/2389/ledger-portal/internal/session"
)

var errSettingsPassword = errors.New("settings password mismatch")

// finish stores the flash for page and redirects there. Handlers defer it
// right after declaring their flash so no return path skips it.
func (u *UI) finish(w http.ResponseWriter, r *http.Request, page string, flash *session.Flash) {
	if err := u.sessions.Put(w, r, page, *flash); err != nil {
		u.logger.Error("failed to store flash", "page", page, "error", err)
	}
	http.Redirect(w, r, "/"+page, http.StatusSeeOther)
}

// conclude fills flash from an operation outcome, logs failures and records activity.
func (u *UI) conclude(r *http.Request, op ledger.Operation, result string, err error, flash *session.Flash) {
	u.record(r.Context(), op, result, err)
	if err != nil {
		u.logger.Error("ledger operation failed", append([]any{"operation", op.Name}, ledger.ErrorAttrs(err)...)...)
		flash.Error = op.Failure
		return
	}
	flash.Success = op.SuccessWithResult(result)
}

// parse parses the form and stores an attached file. A file that cannot be
// stored is logged and does not fail the submission.
func (u *UI) parse(r *http.Request) error {
	if err := u.uploads.ParseForm(r); err != nil {
		return err
	}
	path, err := u.uploads.Save(r, "file")
	if err != nil {
		u.logger.Error("error uploading the file", "error", err)
		return nil
	}
	if path != "" {
		u.logger.Info("file uploaded", "path", path)
	}
	return nil
}

func (u *UI) handleSubmitProduct(w http.ResponseWriter, r *http.Request) {
	var flash session.Flash
	defer u.finish(w, r, "input", &flash)

	if err := u.parse(r); err != nil {
		u.conclude(r, ledger.OpCreateProduct, "", err, &flash)
		return
	}

	in := ledger.ProductInput{
		RecipeID:         strings.TrimSpace(r.FormValue("recipeID")),
		AssetName:        strings.TrimSpace(r.FormValue("assetName")),
		ConsumedAssetIDs: form.SplitList(r.FormValue("consumedAssetIDs")),
		EmissionsTokens:  form.SplitList(r.FormValue("emissionsTokens")),
	}
	flash.Snapshot = session.Snapshot{
		"recipeID":         in.RecipeID,
		"assetName":        in.AssetName,
		"consumedAssetIDs": in.ConsumedAssetIDs,
		"emissionsTokens":  in.EmissionsTokens,
		"additionalInfo":   r.FormValue("additionalInfo"),
	}

	u.logger.Info("received product",
		"recipe_id", in.RecipeID,
		"asset_name", in.AssetName,
		"consumed_asset_ids", in.ConsumedAssetIDs,
		"emissions_tokens", in.EmissionsTokens,
	)

	result, err := u.ledger.CreateProduct(r.Context(), in)
	u.conclude(r, ledger.OpCreateProduct, result, err, &flash)
}

// transferSnapshot echoes the raw transfer fields.
func transferSnapshot(r *http.Request) session.Snapshot {
	return session.Snapshot{
		"shippingID":      r.FormValue("shippingID"),
		"quantity":        r.FormValue("quantity"),
		"list_ID":         r.FormValue("list_ID"),
		"assetName":       r.FormValue("assetName"),
		"emissionsTokens": r.FormValue("emissionsTokens"),
	}
}

func (u *UI) handleSubmitTransfer(w http.ResponseWriter, r *http.Request) {
	var flash session.Flash
	defer u.finish(w, r, "transfer", &flash)

	if err := u.parse(r); err != nil {
		u.conclude(r, ledger.OpCreateTransfer, "", err, &flash)
		return
	}
	flash.Snapshot = transferSnapshot(r)

	quantity, err := form.ParseInt("quantity", r.FormValue("quantity"))
	if err != nil {
		u.conclude(r, ledger.OpCreateTransfer, "", err, &flash)
		return
	}

	in := ledger.TransferInput{
		ShippingID:      strings.TrimSpace(r.FormValue("shippingID")),
		Quantity:        quantity,
		ListIDs:         form.SplitList(r.FormValue("list_ID")),
		AssetName:       strings.TrimSpace(r.FormValue("assetName")),
		EmissionsTokens: form.SplitList(r.FormValue("emissionsTokens")),
	}
	u.logger.Info("received transfer", "shipping_id", in.ShippingID, "quantity", in.Quantity, "list_ids", in.ListIDs)

	result, err := u.ledger.CreateTransfer(r.Context(), in)
	u.conclude(r, ledger.OpCreateTransfer, result, err, &flash)
}

func (u *UI) handleSubmitTransferConfirm(w http.ResponseWriter, r *http.Request) {
	var flash session.Flash
	defer u.finish(w, r, "transfer", &flash)

	if err := u.parse(r); err != nil {
		u.conclude(r, ledger.OpConfirmTransfer, "", err, &flash)
		return
	}
	flash.Snapshot = transferSnapshot(r)

	quantity, err := form.ParseInt("quantity", r.FormValue("quantity"))
	if err != nil {
		u.conclude(r, ledger.OpConfirmTransfer, "", err, &flash)
		return
	}

	in := ledger.ConfirmInput{
		ShippingID:      strings.TrimSpace(r.FormValue("shippingID")),
		Quantity:        quantity,
		ListIDs:         form.SplitList(r.FormValue("list_ID")),
		AssetName:       strings.TrimSpace(r.FormValue("assetName")),
		EmissionsGroups: form.SplitGroups(r.FormValue("emissionsTokens")),
	}
	u.logger.Info("received transfer confirmation", "shipping_id", in.ShippingID, "quantity", in.Quantity)

	result, err := u.ledger.ConfirmTransfer(r.Context(), in)
	u.conclude(r, ledger.OpConfirmTransfer, result, err, &flash)
}

func (u *UI) handleSubmitEmissions(w http.ResponseWriter, r *http.Request) {
	var flash session.Flash
	defer u.finish(w, r, "emissions", &flash)

	if err := u.parse(r); err != nil {
		u.conclude(r, ledger.OpRecordEmissions, "", err, &flash)
		return
	}

	flash.Snapshot = session.Snapshot{
		"ghgEmissions":   r.FormValue("ghgEmissions"),
		"additionalInfo": r.FormValue("additionalInfo"),
	}

	kg, err := form.ParseInt("ghgEmissions", r.FormValue("ghgEmissions"))
	if err != nil {
		u.conclude(r, ledger.OpRecordEmissions, "", err, &flash)
		return
	}

	in := ledger.EmissionsInput{KgCO2: kg, Notes: r.FormValue("additionalInfo")}
	u.logger.Info("received emissions record", "kg_co2", in.KgCO2)

	result, err := u.ledger.RecordEmissions(r.Context(), in)
	u.conclude(r, ledger.OpRecordEmissions, result, err, &flash)
}

func (u *UI) handleSubmitSettings(w http.ResponseWriter, r *http.Request) {
	var flash session.Flash
	defer u.finish(w, r, "settings", &flash)

	if err := u.parse(r); err != nil {
		u.conclude(r, ledger.OpConfigureGateway, "", err, &flash)
		return
	}

	preset := strings.TrimSpace(r.FormValue("preconfiguredSettings"))
	cfg := ledger.GatewayConfig{
		Address:         strings.TrimSpace(r.FormValue("gatewayAddress")),
		OrganizationID:  strings.TrimSpace(r.FormValue("organizationID")),
		CertificatePath: strings.TrimSpace(r.FormValue("certificatePath")),
		PrivateKeyPath:  strings.TrimSpace(r.FormValue("privateKeyPath")),
		TLSRootCertPath: strings.TrimSpace(r.FormValue("tlsRootCertPath")),
	}
	flash.Snapshot = session.Snapshot{
		"preconfiguredSettings": preset,
		"gatewayAddress":        cfg.Address,
		"organizationID":        cfg.OrganizationID,
		"certificatePath":       cfg.CertificatePath,
		"privateKeyPath":        cfg.PrivateKeyPath,
		"tlsRootCertPath":       cfg.TLSRootCertPath,
	}

	if !u.settingsPasswordOK(r.FormValue("adminPassword")) {
		u.conclude(r, ledger.OpConfigureGateway, "", errSettingsPassword, &flash)
		return
	}

	if preset != "" {
		if p, ok := u.config.Presets[preset]; ok {
			cfg = p
		} else {
			u.logger.Warn("invalid preconfigured settings, using the submitted fields", "preset", preset)
		}
	}

	err := u.ledger.Configure(r.Context(), cfg)
	u.record(r.Context(), ledger.OpConfigureGateway, cfg.Address, err)
	if err != nil {
		u.logger.Error("error while configuring the gateway", append([]any{"address", cfg.Address}, ledger.ErrorAttrs(err)...)...)
		flash.Error = ledger.OpConfigureGateway.Failure
		return
	}
	flash.Success = ledger.OpConfigureGateway.Success
}

// settingsPasswordOK compares against the configured bcrypt hash. With no
// hash configured every submission passes.
func (u *UI) settingsPasswordOK(password string) bool {
	if u.config.SettingsPasswordHash == "" {
		return true
	}
	return bcrypt.CompareHashAndPassword([]byte(u.config.SettingsPasswordHash), []byte(password)) == nil
}

func (u *UI) handleSubmitOverview(w http.ResponseWriter, r *http.Request) {
	var flash session.Flash
	defer u.finish(w, r, "overview", &flash)

	if err := u.parse(r); err != nil {
		u.conclude(r, ledger.OpQueryProduct, "", err, &flash)
		return
	}

	productID := strings.TrimSpace(r.FormValue("productID"))
	flash.Snapshot = session.Snapshot{"id": productID}

	result, err := u.ledger.QueryProduct(r.Context(), productID)
	u.conclude(r, ledger.OpQueryProduct, result, err, &flash)
	if err == nil {
		flash.Result = result
	}
}
