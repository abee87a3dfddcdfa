package world

import (
	"errors"
	"fmt"
)

// ErrOutOfBounds is returned by operations that require an in-bounds
// position (markDiscovered, move attempts). Terrain queries never return
// it; they answer with the unknown record instead.
var ErrOutOfBounds = errors.New("position outside world bounds")

// ConfigError reports an invalid engine configuration: a missing section,
// a module dependency cycle, or contradictory values.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "configuration invalid: " + e.Reason }

// ModuleError wraps a module generation failure with the module's name.
// Upstream caches stay intact when one surfaces.
type ModuleError struct {
	Module string
	Err    error
}

func (e *ModuleError) Error() string {
	return fmt.Sprintf("module %s: generation failed: %v", e.Module, e.Err)
}

func (e *ModuleError) Unwrap() error { return e.Err }
