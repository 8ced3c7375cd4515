package engine

import (
	"go.uber.org/zap"
)

// Options represents configuration options for an Engine.
type Options struct {
	// Logger is the logger used by the engine. Defaults to a no-op logger.
	Logger *zap.Logger
	// Transport carries messages to and from the remote dataset. A nil
	// transport yields a purely local engine, which is useful in tests.
	Transport Transport
	// SnowflakeNode is the node number used when generating message IDs.
	SnowflakeNode int64
}

// NewOptions creates a new Options with default values.
func NewOptions() *Options {
	return &Options{}
}
