package level1

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/couchcryptid/oceancolor-l1/internal/blocking"
	"github.com/couchcryptid/oceancolor-l1/internal/domain"
)

// Source is the contract every Level1 reader satisfies. Shape reports the
// active sub-window extent; ReadBlock materializes one tile of it. A
// Source is safe for sequential use only.
type Source interface {
	// Sensor identifies the instrument the product was acquired by.
	Sensor() domain.Sensor

	// Shape returns the active sub-window extent in rows and columns.
	Shape() (height, width int)

	// Bands returns the nominal band wavelengths, in nm, the source
	// serves by default.
	Bands() []int

	// ReadBlock reads one tile at the given offset within the active
	// sub-window, restricted to the given bands. A nil band list selects
	// every band the source carries.
	ReadBlock(size domain.Size, offset domain.Offset, bands []int) (*domain.Block, error)

	// Blocks returns a cursor streaming the whole sub-window in
	// row-major tiles of the source's configured block size.
	Blocks(bands []int) *Cursor

	// Attributes returns the product-level metadata the container
	// carries, as parsed strings.
	Attributes() map[string]string

	Close() error
}

// Cursor streams a source's active sub-window one tile at a time. Next
// returns Done after the last tile; the cursor is then exhausted and a
// fresh one must be obtained from Blocks.
type Cursor struct {
	read  func(size domain.Size, offset domain.Offset, bands []int) (*domain.Block, error)
	tiles *blocking.TileCursor
	bands []int
}

func newCursor(src Source, plan blocking.Plan, bands []int) *Cursor {
	return &Cursor{read: src.ReadBlock, tiles: plan.Tiles(), bands: bands}
}

// Next reads and returns the next tile, or Done when the sub-window is
// exhausted.
func (c *Cursor) Next() (*domain.Block, error) {
	tile, ok := c.tiles.Next()
	if !ok {
		return nil, Done
	}
	return c.read(tile.Size, tile.Offset, c.bands)
}

// Collect drains the cursor into a slice. Useful in tests and small
// scenes; streaming via Next is preferred for full products.
func (c *Cursor) Collect() ([]*domain.Block, error) {
	var out []*domain.Block
	for {
		b, err := c.Next()
		if err == Done {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, b)
	}
}

// OpenOptions carries the per-variant settings Open forwards after format
// detection.
type OpenOptions struct {
	ASCII  ASCIIOptions
	NetCDF NetCDFOptions
}

// classic NetCDF magic: "CDF" then a version byte.
var netcdfMagic = []byte("CDF")

// Open sniffs the container format of path and constructs the matching
// source. Files starting with the classic NetCDF magic open as instrument
// products; anything else is treated as a column-oriented text extraction.
func Open(path string, opts OpenOptions) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}
	magic := make([]byte, 4)
	_, err = io.ReadFull(f, magic)
	f.Close()
	if err != nil {
		return nil, &OpenError{Path: path, Err: fmt.Errorf("sniffing format: %w", err)}
	}
	if bytes.HasPrefix(magic, netcdfMagic) {
		return OpenNetCDF(path, opts.NetCDF)
	}
	return OpenASCII(path, opts.ASCII)
}
