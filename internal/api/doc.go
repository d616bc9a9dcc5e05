// Package api exposes the portal's ledger operations as a JSON HTTP API.
//
// # Endpoints
//
//	POST /manufacture         create a product (JSON or multipart with an optional file)
//	POST /transfer            create a transfer
//	POST /transfer/confirm    confirm a transfer
//	POST /emissions           record emissions (JSON or multipart with an optional file)
//	POST /settings/gateway    connect to a gateway, by fields or preconfiguredSettings
//	POST /settings/channel    change the channel and chaincode names
//	POST /overview            query a product
//	GET  /health              liveness, never authenticated
//
// Bodies are JSON (Content-Type: application/json) using the same field
// names as the page forms, with lists as arrays. Form-encoded bodies are
// accepted too, with lists comma separated as on the pages.
//
// # Responses
//
// Success answers 200 with {"message": ..., "result": ...}. A ledger failure
// answers 502 with {"error": <fixed message>}; the underlying error is only
// logged and recorded in the activity log. Malformed bodies answer 400.
//
// When api.jwt_secret is configured every endpoint except /health requires
// an Authorization: Bearer token (see package auth).
package api
