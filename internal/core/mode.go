// Package core is the orchestration layer.  It composes transports
// and capabilities into complete operational modes and provides a
// builder that selects the right mode from a Config.
//
// Architecture layers (bottom → top):
//
//	transport  →  stream  →  session  →  capability  →  core  →  cmd (CLI)
//
// The builder in this package is the single dispatch point between a
// validated Config and a runnable Mode.
package core

import "context"

// Mode represents a complete operational mode of tcpstream.  Each mode
// owns its full lifecycle from connection establishment to teardown.
type Mode interface {
	Run(ctx context.Context) error
}
