// Package store provides persistent storage for the portal using SQLite.
//
// # Data Models
//
//   - Session: browser session holding flash messages and form snapshots
//   - ActivityEntry: outcome of one ledger operation, with the raw result
//     or the internal error text
//
// SQLiteStore implements SessionStore and ActivityStore in a single struct.
//
// # Timestamps
//
// Timestamps are stored as RFC3339 text in UTC. Expired sessions are never
// returned by GetSession and are swept by DeleteExpiredSessions.
package store
