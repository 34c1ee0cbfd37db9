package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer creates a configured MCP server with all WalletGuard tools registered.
func NewMCPServer(cfg Config) *server.MCPServer {
	s := server.NewMCPServer("walletguard", "0.1.0")
	client := NewClient(cfg)
	h := NewHandlers(client)

	s.AddTool(ToolAnalyzeWallet, h.HandleAnalyzeWallet)
	s.AddTool(ToolScoreTransaction, h.HandleScoreTransaction)
	s.AddTool(ToolIngestTransaction, h.HandleIngestTransaction)
	s.AddTool(ToolGetWalletChecks, h.HandleGetWalletChecks)
	s.AddTool(ToolGetRecentChecks, h.HandleGetRecentChecks)
	s.AddTool(ToolListWalletTransactions, h.HandleListWalletTransactions)

	return s
}
