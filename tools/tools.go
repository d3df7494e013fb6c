//go:build tools
// +build tools

// Package tools pins code generators so `go generate` uses the versions in go.mod.
package tools

import (
	// mockgen regenerates internal/mocks from the ports interfaces.
	_ "go.uber.org/mock/mockgen"
)
