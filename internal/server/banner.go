package server

import (
	"fmt"
	"io"
	"strings"

	"github.com/outbank-dev/outbank-mcp/internal/config"
	"github.com/outbank-dev/outbank-mcp/internal/exclusion"
	"github.com/outbank-dev/outbank-mcp/internal/store"
)

// PrintBanner writes the startup summary. It must go to stderr so the
// stdio transport's stdout stays pure JSON-RPC.
func PrintBanner(w io.Writer, cfg *config.Config, stats store.ReloadStats, loadErr error) {
	fmt.Fprintln(w, "Outbank MCP server")
	fmt.Fprintf(w, "  Transport:     %s\n", strings.ToUpper(cfg.Transport))
	if cfg.Transport == config.TransportHTTP {
		fmt.Fprintf(w, "  Endpoint:      http://%s:%d%s\n", cfg.HTTP.Host, cfg.HTTP.Port, RPCPath)
		fmt.Fprintf(w, "  Auth:          required (bearer token)\n")
	}
	fmt.Fprintf(w, "  CSV directory: %s\n", cfg.CSVDir)
	fmt.Fprintf(w, "  CSV pattern:   %s\n", cfg.CSVGlob)

	if loadErr != nil {
		fmt.Fprintf(w, "  Warning:       could not load transactions: %v\n", loadErr)
	} else {
		fmt.Fprintf(w, "  Files scanned: %d\n", stats.FilesScanned)
		fmt.Fprintf(w, "  Parsed:        %d\n", stats.TotalParsed)
		if stats.ExcludedCount > 0 {
			fmt.Fprintf(w, "  Excluded:      %d\n", stats.ExcludedCount)
		}
		fmt.Fprintf(w, "  Loaded:        %d\n", stats.TotalRecords)
	}

	// Original-case lists read better in a terminal than normalized ones.
	if categories := exclusion.ParseListDisplay(cfg.ExcludedCategories); len(categories) > 0 {
		fmt.Fprintf(w, "  Excluded categories: %s\n", strings.Join(categories, ", "))
	}
	if tags := exclusion.ParseListDisplay(cfg.ExcludedTags); len(tags) > 0 {
		fmt.Fprintf(w, "  Excluded tags: %s\n", strings.Join(tags, ", "))
	}

	if cfg.Transport == config.TransportStdio {
		fmt.Fprintln(w, "Ready for stdio client connections.")
	}
}
