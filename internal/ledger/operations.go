// ABOUTME: User-facing names and fixed outcome messages for each ledger operation
// ABOUTME: Shared by the page handlers and the JSON API so both report identically

package ledger

// Operation names one user-triggered ledger call and the messages shown for it.
type Operation struct {
	Name    string // activity log key
	Success string
	Failure string
}

// Operations exposed to users.
var (
	OpCreateProduct = Operation{
		Name:    "create_product",
		Success: "Product successfully created!",
		Failure: "Error creating product!",
	}
	OpCreateTransfer = Operation{
		Name:    "create_transfer",
		Success: "Transfer successfull!",
		Failure: "Error while transfering asset!",
	}
	OpConfirmTransfer = Operation{
		Name:    "confirm_transfer",
		Success: "Transfer successfully confirmed!",
		Failure: "Error while confirming transfer!",
	}
	OpRecordEmissions = Operation{
		Name:    "record_emissions",
		Success: "Emissions successfully recorded!",
		Failure: "Error recording emissions!",
	}
	OpConfigureGateway = Operation{
		Name:    "configure_gateway",
		Success: "Settings successfully changed!",
		Failure: "Error while changing the settings!",
	}
	OpSetContracts = Operation{
		Name:    "set_contracts",
		Success: "Channel settings successfully changed!",
		Failure: "Error while changing the channel settings!",
	}
	OpQueryProduct = Operation{
		Name:    "query_product",
		Success: "ProductID successfully querried!",
		Failure: "Error retrieving product info!",
	}
)

// SuccessWithResult joins the success message and the raw ledger result.
func (o Operation) SuccessWithResult(result string) string {
	return o.Success + "\n" + result
}
