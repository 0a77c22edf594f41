package main

import (
	"fmt"
	"log"
	"os"

	"github.com/ironsheep/image-import-mcp/internal/config"
	"github.com/ironsheep/image-import-mcp/internal/decode"
	"github.com/ironsheep/image-import-mcp/internal/diag"
	"github.com/ironsheep/image-import-mcp/internal/importer"
	"github.com/ironsheep/image-import-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("image-import-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("image-import-mcp - MCP server for multi-format image import")
			fmt.Println()
			fmt.Println("Usage: image-import-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables:")
			fmt.Printf("  %s=2.2               Screen gamma applied to decoded colors (default 1.0)\n", config.EnvScreenGamma)
			fmt.Printf("  %s=dir1:dir2    Directories searched for relative image names\n", config.EnvSearchPath)
			fmt.Printf("  %s=png,xpm   Formats whose decoders are turned off\n", config.EnvDisable)
			fmt.Printf("  %s=debug    Enable debug logging\n", config.EnvLogLevel)
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
			return
		}
	}

	// Configure logging to stderr (stdout is for MCP protocol)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	cfg := config.Load()
	for _, w := range cfg.Warnings {
		log.Printf("WARNING: %s", w)
	}

	// import failures always reach stderr; decode warnings only when debugging
	var report diag.Reporter = diag.ErrorsOnly(diag.NewLogReporter(nil))
	if cfg.Debug() {
		log.Printf("Image Import MCP Server v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
		log.Printf("screen gamma %v, search path %v, disabled %v", cfg.ScreenGamma, cfg.SearchPaths, cfg.Disabled)
		report = diag.NewLogReporter(nil)
	}

	imp := importer.New(
		importer.WithGamma(cfg.ScreenGamma),
		importer.WithSearchPaths(cfg.SearchPaths),
		importer.WithRegistry(decode.NewRegistry(cfg.Disabled...)),
		importer.WithReporter(report),
	)

	srv := server.New(imp, Version)
	if err := srv.Run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
