// Package adapter provides the database executors the pipeline runs SQL on.
//
// The public contract lives in pkg/core; concrete adapters are in
// pkg/adapters/ subdirectories and register themselves on import.
package adapter

import (
	"errors"

	"github.com/leapstack-labs/asksql/pkg/core"
)

// Type aliases so adapters and callers can stay within this package.
type (
	// Adapter is an alias for core.Adapter.
	Adapter = core.Adapter

	// Config is an alias for core.AdapterConfig.
	Config = core.AdapterConfig

	// Column is an alias for core.Column.
	Column = core.Column

	// Metadata is an alias for core.TableMetadata.
	Metadata = core.TableMetadata
)

// ErrNotConnected is returned when an adapter is used before Connect.
var ErrNotConnected = errors.New("database connection not established")
