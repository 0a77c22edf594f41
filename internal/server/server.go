package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/ironsheep/image-import-mcp/internal/imaging"
	"github.com/ironsheep/image-import-mcp/internal/importer"
)

const (
	// ServerName is reported in the initialize handshake.
	ServerName = "image-import-mcp"

	protocolVersion = "2024-11-05"

	// JSON-RPC error codes
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
	codeToolFailed     = -32000
)

// Server answers MCP requests by importing images through a shared cache.
type Server struct {
	cache   *imaging.ImageCache
	version string
	methods map[string]func(*MCPRequest) *MCPResponse
}

// MCPRequest is one line of JSON-RPC input. Requests without an ID are
// notifications.
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse carries either Result or Error.
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError is a JSON-RPC error object. Import failures put their kind in Data.
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// New creates a server that imports through imp. A nil imp gets an importer
// with default settings.
func New(imp *importer.Importer, version string) *Server {
	if imp == nil {
		imp = importer.New()
	}
	if version == "" {
		version = "dev"
	}
	s := &Server{
		cache:   imaging.NewImageCache(imp),
		version: version,
	}
	s.methods = map[string]func(*MCPRequest) *MCPResponse{
		"initialize": s.handleInitialize,
		"tools/list": s.handleToolsList,
		"tools/call": s.handleToolsCall,
		"ping": func(req *MCPRequest) *MCPResponse {
			return reply(req.ID, map[string]interface{}{})
		},
		// client acknowledgment, no response
		"notifications/initialized": func(*MCPRequest) *MCPResponse { return nil },
	}
	return s
}

// Run serves stdin to stdout.
func (s *Server) Run() error {
	return s.Serve(os.Stdin, os.Stdout)
}

// Serve answers newline-delimited JSON-RPC requests from r on w until r is
// exhausted. Lines that are not JSON get a parse error response.
func (s *Server) Serve(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	// requests carrying point lists can be long
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	encoder := json.NewEncoder(w)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var resp *MCPResponse
		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			log.Printf("Failed to parse request: %v", err)
			resp = s.errorResponse(nil, codeParseError, "Parse error", err.Error())
		} else {
			resp = s.handleRequest(&req)
		}
		if resp == nil {
			continue
		}
		if err := encoder.Encode(resp); err != nil {
			log.Printf("Failed to encode response: %v", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}
	return nil
}

// handleRequest routes req to its method. A panic inside a handler answers
// the request with an internal error and leaves the server running.
func (s *Server) handleRequest(req *MCPRequest) (resp *MCPResponse) {
	handle, ok := s.methods[req.Method]
	if !ok {
		return s.errorResponse(req.ID, codeMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method), nil)
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: %s panicked: %v", req.Method, r)
			resp = s.errorResponse(req.ID, codeInternalError, "Internal error", fmt.Sprint(r))
		}
	}()
	return handle(req)
}

func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return reply(req.ID, map[string]interface{}{
		"protocolVersion": protocolVersion,
		"capabilities": map[string]interface{}{
			"tools": map[string]interface{}{},
		},
		"serverInfo": map[string]interface{}{
			"name":    ServerName,
			"version": s.version,
		},
	})
}

func reply(id interface{}, result interface{}) *MCPResponse {
	return &MCPResponse{JSONRPC: "2.0", ID: id, Result: result}
}
