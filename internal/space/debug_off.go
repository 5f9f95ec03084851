//go:build !debug

package space

const debugChecks = false
