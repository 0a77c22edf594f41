// Package imaging holds the consumers of imported images used by the MCP
// server: a cache of decoded images, image metadata, color sampling, icon
// rendering and shape masks.
//
// Images come from the importer as *raster.Image values. Every function that
// takes pixels accepts a plain image.Image, so the helpers work on any
// decoded image as well.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For regions, (x1,y1) is inclusive (top-left), (x2,y2) is exclusive (bottom-right)
//
// # Truncated Images
//
// Rows a truncated file never delivered read as transparent black. Sampling
// such a row returns alpha 0 and masks leave it out.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. Imported images are immutable, so
// the other functions can run concurrently on the same image.
//
// # Encoded Output
//
// RenderIcon and Mask return PNG data encoded as base64, ready to embed in a
// tool result.
package imaging
