package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// fileProperties returns the schema properties shared by every tool that
// resolves a file, plus extra.
func fileProperties(extra map[string]interface{}) map[string]interface{} {
	props := map[string]interface{}{
		"path": map[string]interface{}{
			"type":        "string",
			"description": "Image file name. Relative names are searched in search_paths and the configured directories; a trailing .N selects subimage N when no file has that exact name",
		},
		"search_paths": map[string]interface{}{
			"type":        "array",
			"items":       map[string]interface{}{"type": "string"},
			"description": "Optional directories searched before the configured ones (at most 8 entries are used)",
		},
	}
	for k, v := range extra {
		props[k] = v
	}
	return props
}

var gammaProperty = map[string]interface{}{
	"type":        "number",
	"description": "Optional screen gamma for this call. Defaults to SCREEN_GAMMA or 1.0",
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Import
		{
			Name:        "image_import",
			Description: "Import an image file of any supported format (XPM, PNG, JPEG, GIF, TIFF, BMP, ICO/CUR, PPM/PGM, XCF) and report its size, sniffed format, alpha presence and whether the file was truncated.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": fileProperties(map[string]interface{}{
					"gamma": gammaProperty,
					"channels": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"rgb", "rgba"},
						"description": "Channels to keep. \"rgb\" drops alpha. Default \"rgba\"",
						"default":     "rgba",
					},
					"compression": map[string]interface{}{
						"type":        "integer",
						"description": "Optional compression hint recorded on the image",
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file. PNG and JPEG sizes are read from the header without decoding.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": fileProperties(nil),
				"required":   []string{"path"},
			},
		},

		// Pipeline Inspection
		{
			Name:        "image_locate",
			Description: "Resolve an image name to the file that would be imported, trying .gz and .Z variants and a .N subimage suffix.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": fileProperties(nil),
				"required":   []string{"path"},
			},
		},
		{
			Name:        "image_sniff",
			Description: "Resolve an image name and classify the file by its leading bytes. Reports whether the format has a decoder and whether it is available in this build.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": fileProperties(nil),
				"required":   []string{"path"},
			},
		},
		{
			Name:        "image_formats",
			Description: "List every recognized image format with its decoder availability, plus the screen gamma and size limit in effect.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},

		// Consumers
		{
			Name:        "image_sample_color",
			Description: "Get the exact color at one pixel (x, y) or at several labeled points of an imported image.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": fileProperties(map[string]interface{}{
					"gamma": gammaProperty,
					"x": map[string]interface{}{
						"type":        "integer",
						"description": "X coordinate (0-based, from left)",
					},
					"y": map[string]interface{}{
						"type":        "integer",
						"description": "Y coordinate (0-based, from top)",
					},
					"points": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"x":     map[string]interface{}{"type": "integer"},
								"y":     map[string]interface{}{"type": "integer"},
								"label": map[string]interface{}{"type": "string", "description": "Optional label for this point"},
							},
							"required": []string{"x", "y"},
						},
						"description": "Points to sample instead of x and y",
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_render_icon",
			Description: "Scale an imported image, or a region of it, to fit an icon box and return it as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": fileProperties(map[string]interface{}{
					"gamma": gammaProperty,
					"width": map[string]interface{}{
						"type":        "integer",
						"description": "Icon box width. Default 48",
						"default":     48,
					},
					"height": map[string]interface{}{
						"type":        "integer",
						"description": "Icon box height. Default 48",
						"default":     48,
					},
					"region": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"x1": map[string]interface{}{"type": "integer"},
							"y1": map[string]interface{}{"type": "integer"},
							"x2": map[string]interface{}{"type": "integer"},
							"y2": map[string]interface{}{"type": "integer"},
						},
						"required":    []string{"x1", "y1", "x2", "y2"},
						"description": "Optional region to render; (x2,y2) is exclusive",
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_mask",
			Description: "Build the 1-bit shape mask of an imported image from its alpha channel and return it as base64-encoded PNG (white = drawn, black = transparent).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": fileProperties(map[string]interface{}{
					"threshold": map[string]interface{}{
						"type":        "integer",
						"description": "Alpha at or above which a pixel is drawn (1-255). Default 128",
						"default":     128,
					},
				}),
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return reply(req.ID, map[string]interface{}{
		"tools": GetToolDefinitions(),
	})
}
