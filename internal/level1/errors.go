package level1

import (
	"errors"
	"fmt"

	"github.com/couchcryptid/oceancolor-l1/internal/domain"
)

// Done is returned by Cursor.Next when the tile sequence is exhausted.
var Done = errors.New("level1: no more blocks")

/// OpenError reports an unreadable or corrupt container: the product or
// extraction file itself, or an auxiliary calibration file.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string { return fmt.Sprintf("level1: open %s: %v", e.Path, e.Err) }
func (e *OpenError) Unwrap() error { return e.Err }

// ConfigError reports an unusable configuration: unrecognized sensor,
// missing header or variable mapping, band not available, invalid mode.
type ConfigError struct {
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("level1: configuration: %s: %v", e.Reason, e.Err)
	}
	return "level1: configuration: " + e.Reason
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ShapeError reports geometry that cannot be honored: a row count
// incompatible with the declared tile width, a sub-window exceeding the
// source extent, or variables with mismatched extents.
type ShapeError struct {
	Reason string
}

func (e *ShapeError) Error() string { return "level1: shape: " + e.Reason }

// ReadError reports a format-level failure reading one field of one block.
// Blocks are never silently skipped; a ReadError is terminal for the block
// and the caller decides whether to abort the scene.
type ReadError struct {
	Field  string
	Offset domain.Offset
	Err    error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("level1: read %s at (%d,%d): %v", e.Field, e.Offset.Row, e.Offset.Col, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }
