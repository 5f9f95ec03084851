//go:build debug

package space

// Built with -tags debug: index invariants are asserted on every mutation.
const debugChecks = true
