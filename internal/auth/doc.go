// Package auth guards the portal's JSON API with bearer tokens.
//
// Tokens are HS256 JWTs signed with api.jwt_secret. The "sub" claim names
// the caller; it is attached to the request context and written to the log
// with each API operation. Tokens are issued offline with:
//
//	ledger-portal token <subject> [--ttl 720h]
//
// The server-rendered pages are not guarded by this package.
package auth
