// Package server implements the MCP (Model Context Protocol) server for the
// image import pipeline.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Import:
//   - image_import: Import a file and report size, format, alpha and status
//   - image_dimensions: Get width and height
//
// Pipeline Inspection:
//   - image_locate: Resolve a name to a file and subimage index
//   - image_sniff: Classify a file by content
//   - image_formats: List formats and codec availability
//
// Consumers:
//   - image_sample_color: Get colors at one or more pixels
//   - image_render_icon: Scale to an icon box as base64 PNG
//   - image_mask: Alpha shape mask as base64 PNG
//
// Every file tool accepts "path" and optional "search_paths"; tools that
// decode pixels also accept "gamma".
//
// # Image Caching
//
// Imported images are cached by name, gamma, channel selection and search
// paths for the lifetime of the process, so a sequence of tool calls on one
// file decodes it once.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with code
// -32000. For import failures the data field holds the error kind (io,
// format-unknown, format-unsupported, size-limit, library-missing), the
// message and, when known, the format. Truncated files are not errors; the
// import result reports status "truncated" and the rows decoded.
package server
