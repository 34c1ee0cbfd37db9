// Command mcp exposes wallet risk scoring as MCP tools over stdio.
//
// An MCP-capable client launches this binary and speaks the protocol
// on stdin/stdout. Configuration comes from the environment:
//
//	WALLETGUARD_API_URL  scoring API base URL (default http://localhost:8080)
//	WALLETGUARD_API_KEY  optional bearer token forwarded to the API
package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/mbd888/walletguard/internal/mcpserver"
)

func main() {
	cfg := mcpserver.Config{
		APIURL: envOrDefault("WALLETGUARD_API_URL", "http://localhost:8080"),
		APIKey: os.Getenv("WALLETGUARD_API_KEY"),
	}

	if err := server.ServeStdio(mcpserver.NewMCPServer(cfg)); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}

func envOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
