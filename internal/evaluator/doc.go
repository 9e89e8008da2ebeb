// Package evaluator defines the pluggable evaluation callback that maps named
// parameters to named scores, along with the built-in implementations the
// engine can be configured with and a registry that resolves them by name.
package evaluator
