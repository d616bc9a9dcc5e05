// Package form normalizes submitted form fields. Lists arrive comma
// separated and never fail to parse; integers are the only fields that can.
package form
