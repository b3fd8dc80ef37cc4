// Package core defines the shared language of the asksql system.
//
// This package contains:
//   - Pipeline entities (PipelineState, AttemptLog, Verdict)
//   - Execution results (ResultSet, ExecResult, ExecError)
//   - Service interfaces (Adapter)
//   - Configuration types (TargetConfig, ModelConfig)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
