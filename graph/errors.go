// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package graph

import "fmt"

const graphPrefix = "graph: "

// newGraphErr builds an error tagged with the package prefix, the same
// prefix-tag convention engine/renderer.go's rendPrefix/newRendErr use.
func newGraphErr(reason string) error { return fmt.Errorf("%s%s", graphPrefix, reason) }

// ResolveError is returned by RenderGraph.Resolve. It distinguishes a
// validation failure recorded by the pass builder (caught before any
// driver call is made) from a driver error surfaced while leasing or
// recording resources.
type ResolveError struct {
	// Invalid is non-empty when resolution failed validation (a
	// PassBuilder error, a missing swapchain write, an unreachable
	// node) rather than a driver call.
	Invalid string

	// Err wraps the underlying driver error when resolution failed
	// while leasing a resource or recording a command.
	Err error
}

func (e *ResolveError) Error() string {
	if e.Invalid != "" {
		return graphPrefix + "invalid: " + e.Invalid
	}
	return graphPrefix + "resolve failed: " + e.Err.Error()
}

func (e *ResolveError) Unwrap() error { return e.Err }

func invalidErr(reason string) *ResolveError { return &ResolveError{Invalid: reason} }
func driverErr(err error) *ResolveError      { return &ResolveError{Err: err} }
