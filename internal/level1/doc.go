// Package level1 reads satellite ocean-color Level1 scenes as a stream of
// rectangular blocks.
//
// # Sources
//
// Two container variants exist behind the one Source contract: classic
// NetCDF instrument products (OpenNetCDF), decoded lazily block by block,
// and column-oriented text extractions (OpenASCII), decoded eagerly at
// construction. Open sniffs the container magic and picks the variant.
//
// # Streaming
//
// Blocks(bands) returns a cursor over the active sub-window, partitioned
// into full-width row slabs of the configured block size. Next returns
// Done after the last block:
//
//	cur := src.Blocks(nil)
//	for {
//		blk, err := cur.Next()
//		if err == level1.Done {
//			break
//		}
//		if err != nil {
//			return err
//		}
//		process(blk)
//	}
//
// # Errors
//
// Failures carry their phase: OpenError for unreadable containers,
// ConfigError for unresolvable sensors, bands, or field mappings,
// ShapeError for extent mismatches, ReadError for per-block decode
// failures.
package level1
