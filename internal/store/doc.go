// Package store provides SQLite-backed run history for ptest.
//
// Each case run is one row in runs plus one row per soft assertion in
// assertions, in the order the assertions were made.
//
// # Ordering
//
//   - runs carry a store-assigned seq, strictly increasing per database
//   - listings are ORDER BY seq DESC (newest first)
//   - assertions are ORDER BY idx ASC
//
// # Text
//
// Case names, assertion messages and error messages are NFC-normalized on
// write, so the same text typed on different systems compares equal.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
