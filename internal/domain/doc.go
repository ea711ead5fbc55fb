// Package domain models Level1 ocean-color scene data as sensor-agnostic
// rectangular blocks.
//
// # Blocks
//
// A Block is one tile of a swath: per-pixel geometry (coordinates, solar and
// viewing angles), top-of-atmosphere radiometry for an ordered list of
// nominal bands, ancillary meteorological fields (wind speed, ozone column,
// surface pressure), acquisition-time fields, and a per-pixel quality
// bitmask. All per-pixel fields share the block's (rows, cols) extent;
// band-indexed fields carry a trailing band axis in the same order as the
// requested band list. Blocks are plain values: a Level1 source fills them
// and hands them to the consumer, which then owns them exclusively.
//
// NaN is the sentinel for values a source could not provide. Missing values
// never raise; they surface through FlagInvalid in the bitmask instead.
//
// # Smile correction
//
// Imaging spectrometers like MERIS acquire each pixel through a physical
// detector element whose true central wavelength differs slightly from the
// band's nominal wavelength (the "smile" effect, a few nanometers across the
// swath). For such sensors the per-pixel detector index is used to look up
// the true wavelength and extraterrestrial solar flux per band; for sensors
// without a documented detector dependence the wavelength is the nominal
// band value and the flux is a per-band constant.
//
// # Sensors
//
// Supported sensor families form a closed enumeration. Each carries a
// Capabilities record (default band list, smile correction or not, auxiliary
// table file names) resolved once when a source is constructed, so no
// per-pixel code ever dispatches on a sensor name string.
package domain
