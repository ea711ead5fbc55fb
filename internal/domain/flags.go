package domain

import "strings"

// Flags is a per-pixel quality bitmask. Each bit is an independently set
// named flag; bits are only ever ORed in, never cleared, so accumulation is
// monotone across processing stages.
type Flags uint16

const (
	// FlagLand marks pixels the instrument classified as land rather than
	// ocean.
	FlagLand Flags = 1 << 0

	// FlagCloudBase marks pixels covered by the instrument's basic cloud
	// screen. Level1 sources leave it unset unless the underlying format
	// provides one; downstream masking may add it.
	FlagCloudBase Flags = 1 << 1

	// FlagInvalid marks pixels that must not be processed: instrument-level
	// invalid/suspect classification, missing geometry or radiometry, or a
	// negative signal.
	FlagInvalid Flags = 1 << 2
)

var flagNames = []struct {
	bit  Flags
	name string
}{
	{FlagLand, "LAND"},
	{FlagCloudBase, "CLOUD_BASE"},
	{FlagInvalid, "L1_INVALID"},
}

// Has reports whether every bit in mask is set.
func (f Flags) Has(mask Flags) bool { return f&mask == mask }

// With returns f with the given bits added.
func (f Flags) With(mask Flags) Flags { return f | mask }

// String lists the set flag names, pipe-separated, or "NONE".
func (f Flags) String() string {
	if f == 0 {
		return "NONE"
	}
	var names []string
	for _, fn := range flagNames {
		if f.Has(fn.bit) {
			names = append(names, fn.name)
		}
	}
	return strings.Join(names, "|")
}
