// Package webui serves the portal's server-rendered pages.
//
// # Pages
//
// Every page is a GET route rendering base.html plus the page's own content
// template:
//
//	/            home page rendered from docs/home.md
//	/input       create a product
//	/transfer    create or confirm a transfer
//	/emissions   record emissions
//	/settings    connect to a gateway
//	/overview    query a product and list recent activity
//
// # Submissions
//
// Each form posts to its submit route, which parses the body (url-encoded or
// multipart), calls exactly one ledger operation and redirects back with 303
// See Other. The outcome travels in a one-shot flash stored in the session:
// a success message (with the raw ledger result on its second line), a fixed
// error message, and a snapshot of the submitted fields so the form can be
// refilled. Internal error text is only logged and written to the activity
// log, never shown on a page.
//
// An optional file attached to /submit or /submit_emissions is stored in the
// uploads directory; a file that cannot be stored does not fail the submission.
package webui
