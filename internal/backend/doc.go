// Package backend adapts image-processing libraries to one capability
// interface used by the thumbnail facade.
//
// Three engines are built in, probed in this default order:
//   - vips: libvips through govips (cgo). Native crop, flip, flop, rotate
//     and a wide format list.
//   - imaging: pure-Go github.com/disintegration/imaging. Native crop,
//     flip, flop and rotate.
//   - raster: resample-copy on golang.org/x/image/draw. Every operation
//     allocates a new canvas and copies into it; rotation is a dedicated
//     call and flip/flop are not available.
//
// Select returns the first engine whose Available probe succeeds, or
// ErrNoEngine. Handle operations never mutate the receiver: they return a
// new Handle, so a failed operation leaves the caller's image intact.
package backend
