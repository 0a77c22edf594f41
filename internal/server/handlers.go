package server

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ironsheep/image-import-mcp/internal/decode"
	"github.com/ironsheep/image-import-mcp/internal/diag"
	"github.com/ironsheep/image-import-mcp/internal/imaging"
	"github.com/ironsheep/image-import-mcp/internal/importer"
	"github.com/ironsheep/image-import-mcp/internal/raster"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_import", "image_mask").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
// When the failure is an import error, data carries its kind and message.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		return s.errorResponse(req.ID, codeToolFailed, "Tool execution failed", errorData(err))
	}

	return reply(req.ID, map[string]interface{}{
		"content": []map[string]interface{}{
			{
				"type": "text",
				"text": mustMarshalJSON(result),
			},
		},
	})
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	switch name {
	// Import
	case "image_import":
		return s.handleImageImport(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)

	// Pipeline Inspection
	case "image_locate":
		return s.handleImageLocate(args)
	case "image_sniff":
		return s.handleImageSniff(args)
	case "image_formats":
		return s.handleImageFormats(args)

	// Consumers
	case "image_sample_color":
		return s.handleImageSampleColor(args)
	case "image_render_icon":
		return s.handleImageRenderIcon(args)
	case "image_mask":
		return s.handleImageMask(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message string, data interface{}) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// errorData describes err for the error response. Import failures carry
// their kind so clients can tell a missing codec from a damaged file.
func errorData(err error) interface{} {
	var de *diag.Error
	if errors.As(err, &de) {
		data := map[string]interface{}{
			"kind":    de.Kind.String(),
			"message": err.Error(),
		}
		if de.Format != "" {
			data["format"] = de.Format
		}
		return data
	}
	return err.Error()
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// importArgs are shared by every tool that resolves a file.
type importArgs struct {
	Path        string   `json:"path"`
	SearchPaths []string `json:"search_paths,omitempty"`
	Gamma       float64  `json:"gamma,omitempty"`
}

func (a importArgs) options() (importer.Options, error) {
	if a.Path == "" {
		return importer.Options{}, errors.New("path is required")
	}
	if a.Gamma < 0 {
		return importer.Options{}, fmt.Errorf("gamma must be positive, got %v", a.Gamma)
	}
	return importer.Options{Gamma: a.Gamma, SearchPaths: a.SearchPaths}, nil
}

// === Import Handlers ===

type imageImportArgs struct {
	importArgs
	Channels    string `json:"channels,omitempty"`
	Compression int    `json:"compression,omitempty"`
}

func parseChannels(s string) (raster.ChannelMask, error) {
	switch s {
	case "", "rgba":
		return raster.MaskAll, nil
	case "rgb":
		return raster.MaskRGB, nil
	}
	return 0, fmt.Errorf("unknown channels %q, want \"rgb\" or \"rgba\"", s)
}

func (s *Server) handleImageImport(args json.RawMessage) (interface{}, error) {
	var a imageImportArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	opts, err := a.options()
	if err != nil {
		return nil, err
	}
	if opts.Channels, err = parseChannels(a.Channels); err != nil {
		return nil, err
	}
	opts.Compression = a.Compression
	return imaging.LoadImageInfo(s.cache, a.Path, opts)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a importArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	opts, err := a.options()
	if err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path, opts)
}

// === Pipeline Inspection Handlers ===

type locateResult struct {
	Path     string `json:"path"`
	Subimage int    `json:"subimage"`
}

func (s *Server) handleImageLocate(args json.RawMessage) (interface{}, error) {
	var a importArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	opts, err := a.options()
	if err != nil {
		return nil, err
	}
	m, err := s.cache.Importer().Locate(a.Path, opts)
	if err != nil {
		return nil, err
	}
	return &locateResult{Path: m.Path, Subimage: m.Subimage}, nil
}

type sniffResult struct {
	Path        string `json:"path"`
	Subimage    int    `json:"subimage"`
	Format      string `json:"format"`
	Implemented bool   `json:"implemented"`
	Available   bool   `json:"available"`
}

func (s *Server) handleImageSniff(args json.RawMessage) (interface{}, error) {
	var a importArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	opts, err := a.options()
	if err != nil {
		return nil, err
	}
	imp := s.cache.Importer()
	m, f, err := imp.Sniff(a.Path, opts)
	if err != nil {
		return nil, err
	}
	return &sniffResult{
		Path:        m.Path,
		Subimage:    m.Subimage,
		Format:      f.String(),
		Implemented: f.Implemented(),
		Available:   imp.Registry().Available(f),
	}, nil
}

type formatsResult struct {
	ScreenGamma float64             `json:"screen_gamma"`
	MaxSize     int                 `json:"max_dimension"`
	Formats     []decode.Capability `json:"formats"`
}

func (s *Server) handleImageFormats(args json.RawMessage) (interface{}, error) {
	imp := s.cache.Importer()
	return &formatsResult{
		ScreenGamma: imp.Gamma(),
		MaxSize:     raster.MaxDimension,
		Formats:     imp.Registry().Capabilities(),
	}, nil
}

// === Consumer Handlers ===

type imageSampleColorArgs struct {
	importArgs
	X      *int `json:"x,omitempty"`
	Y      *int `json:"y,omitempty"`
	Points []struct {
		X     int    `json:"x"`
		Y     int    `json:"y"`
		Label string `json:"label,omitempty"`
	} `json:"points,omitempty"`
}

func (s *Server) handleImageSampleColor(args json.RawMessage) (interface{}, error) {
	var a imageSampleColorArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	opts, err := a.options()
	if err != nil {
		return nil, err
	}
	if len(a.Points) == 0 && (a.X == nil || a.Y == nil) {
		return nil, errors.New("either x and y or points are required")
	}
	e, err := s.cache.Load(a.Path, opts)
	if err != nil {
		return nil, err
	}

	if len(a.Points) == 0 {
		return imaging.SampleColor(e.Image, *a.X, *a.Y)
	}
	points := make([]imaging.LabeledPoint, len(a.Points))
	for i, p := range a.Points {
		points[i] = imaging.LabeledPoint{X: p.X, Y: p.Y, Label: p.Label}
	}
	return imaging.SampleColorsMulti(e.Image, points)
}

type regionArg struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

type imageRenderIconArgs struct {
	importArgs
	Width  int        `json:"width"`
	Height int        `json:"height"`
	Region *regionArg `json:"region,omitempty"`
}

func (s *Server) handleImageRenderIcon(args json.RawMessage) (interface{}, error) {
	var a imageRenderIconArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	opts, err := a.options()
	if err != nil {
		return nil, err
	}
	if a.Width == 0 && a.Height == 0 {
		a.Width, a.Height = 48, 48
	}
	e, err := s.cache.Load(a.Path, opts)
	if err != nil {
		return nil, err
	}
	var region *imaging.Region
	if a.Region != nil {
		region = &imaging.Region{X1: a.Region.X1, Y1: a.Region.Y1, X2: a.Region.X2, Y2: a.Region.Y2}
	}
	return imaging.RenderIcon(e.Image, a.Width, a.Height, region)
}

type imageMaskArgs struct {
	importArgs
	Threshold int `json:"threshold,omitempty"`
}

func (s *Server) handleImageMask(args json.RawMessage) (interface{}, error) {
	var a imageMaskArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	opts, err := a.options()
	if err != nil {
		return nil, err
	}
	if a.Threshold < 0 || a.Threshold > 255 {
		return nil, fmt.Errorf("threshold must be 0-255, got %d", a.Threshold)
	}
	e, err := s.cache.Load(a.Path, opts)
	if err != nil {
		return nil, err
	}
	return imaging.Mask(e.Image, uint8(a.Threshold))
}
