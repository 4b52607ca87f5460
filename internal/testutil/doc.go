// Package testutil holds deterministic helpers shared by package tests:
// a resettable counter, fixed run IDs, a capturing diagnostics sink and a
// scriptable fake flight controller.
package testutil
