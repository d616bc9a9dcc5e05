// Package session carries one-shot flash state between a form submission
// and the page it redirects to. State lives in the store, keyed by a random
// session ID held in an HttpOnly cookie.
package session
