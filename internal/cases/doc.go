// Package cases holds the built-in PAN test cases and the catalog the CLI
// resolves case names against.
package cases
