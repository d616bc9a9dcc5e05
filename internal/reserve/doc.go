// Package reserve tracks identifiers that were recently handed out so that
// concurrent allocations inside one process do not pick the same value
// before the ledger has recorded it.
package reserve
