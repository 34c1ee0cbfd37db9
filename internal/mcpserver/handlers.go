package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Handlers holds the handler functions for each MCP tool.
type Handlers struct {
	client *Client
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(client *Client) *Handlers {
	return &Handlers{client: client}
}

// HandleAnalyzeWallet runs an analysis over a wallet's stored history.
func (h *Handlers) HandleAnalyzeWallet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	address := req.GetString("address", "")
	if address == "" {
		return mcp.NewToolResultError("address is required"), nil
	}

	raw, err := h.client.AnalyzeWallet(ctx, address)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Analysis failed: %v", err)), nil
	}

	text, err := formatAnalysis(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse analysis: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleScoreTransaction scores a single record without storing it.
func (h *Handlers) HandleScoreTransaction(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rec := buildRecord(req)
	if len(rec) == 0 {
		return mcp.NewToolResultError("provide at least one transaction field to score"), nil
	}

	raw, err := h.client.ScoreTransaction(ctx, rec)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Scoring failed: %v", err)), nil
	}

	text, err := formatScore(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse score: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleIngestTransaction stores a record for later analysis.
func (h *Handlers) HandleIngestTransaction(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if req.GetString("wallet_id", "") == "" {
		return mcp.NewToolResultError("wallet_id is required"), nil
	}

	raw, err := h.client.IngestTransaction(ctx, buildRecord(req))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Ingest failed: %v", err)), nil
	}

	var resp struct {
		ID       string `json:"id"`
		WalletID string `json:"wallet_id"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse response: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"Stored transaction %s for wallet %s.\n"+
			"Run analyze_wallet to include it in a fresh verdict.",
		resp.ID, resp.WalletID)), nil
}

// HandleGetWalletChecks lists one wallet's past checks.
func (h *Handlers) HandleGetWalletChecks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	address := req.GetString("address", "")
	if address == "" {
		return mcp.NewToolResultError("address is required"), nil
	}
	limit := req.GetInt("limit", 20)

	raw, err := h.client.ListWalletChecks(ctx, address, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list checks: %v", err)), nil
	}

	text, err := formatCheckList(raw, false)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse checks: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleGetRecentChecks lists the newest checks across all wallets.
func (h *Handlers) HandleGetRecentChecks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 20)

	raw, err := h.client.RecentChecks(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list recent checks: %v", err)), nil
	}

	text, err := formatCheckList(raw, true)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse checks: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleListWalletTransactions lists the raw records stored for a wallet.
func (h *Handlers) HandleListWalletTransactions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	address := req.GetString("address", "")
	if address == "" {
		return mcp.NewToolResultError("address is required"), nil
	}

	raw, err := h.client.ListTransactions(ctx, address)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list transactions: %v", err)), nil
	}

	text, err := formatTransactionList(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse transactions: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// buildRecord assembles a transaction record from tool arguments, keeping
// only the fields the caller actually provided so the scoring defaults
// stay in play for the rest.
func buildRecord(req mcp.CallToolRequest) map[string]any {
	rec := make(map[string]any)
	args := req.GetArguments()
	for _, key := range []string{"wallet_id", "method", "timestamp"} {
		if s := req.GetString(key, ""); s != "" {
			rec[key] = s
		}
	}
	for _, key := range []string{"amount", "gas_fee", "frequency"} {
		if v, ok := args[key]; ok {
			rec[key] = v
		}
	}
	return rec
}

// --- Formatting helpers ---

type analysisResult struct {
	TransactionID string  `json:"transaction_id"`
	Method        string  `json:"method"`
	RiskScore     float64 `json:"risk_score"`
	RiskLevel     string  `json:"risk_level"`
}

type walletCheck struct {
	ID           string   `json:"id"`
	Address      string   `json:"address"`
	RiskLevel    string   `json:"risk_level"`
	TopScore     float64  `json:"top_score"`
	Transactions int      `json:"transactions"`
	Flags        []string `json:"flags"`
	Reason       string   `json:"reason"`
	CheckedAt    string   `json:"checked_at"`
}

func formatAnalysis(raw json.RawMessage) (string, error) {
	var resp struct {
		Wallet  string           `json:"wallet"`
		Count   int              `json:"count"`
		Results []analysisResult `json:"results"`
		Check   *walletCheck     `json:"check"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Wallet %s\n", resp.Wallet)
	if resp.Check != nil {
		fmt.Fprintf(&sb, "Risk level: %s", strings.ToUpper(resp.Check.RiskLevel))
		if resp.Count > 0 {
			fmt.Fprintf(&sb, " (top score %.4f)", resp.Check.TopScore)
		}
		sb.WriteString("\n")
		fmt.Fprintf(&sb, "Reason: %s\n", resp.Check.Reason)
		if len(resp.Check.Flags) > 0 {
			fmt.Fprintf(&sb, "Flags: %s\n", strings.Join(resp.Check.Flags, ", "))
		}
	}

	if resp.Count == 0 {
		sb.WriteString("\nNo transactions were scored. Either the wallet has no stored history or the scoring backend is unavailable.")
		return sb.String(), nil
	}

	fmt.Fprintf(&sb, "\nScored %d transaction(s), most suspicious first:\n", resp.Count)
	for i, r := range resp.Results {
		method := r.Method
		if method == "" {
			method = "unknown"
		}
		fmt.Fprintf(&sb, "%d. %s (%s) score %.4f [%s]\n", i+1, r.TransactionID, method, r.RiskScore, r.RiskLevel)
	}
	return sb.String(), nil
}

func formatScore(raw json.RawMessage) (string, error) {
	var res struct {
		Method    string  `json:"method"`
		RiskScore float64 `json:"risk_score"`
		RiskLevel string  `json:"risk_level"`
		Features  struct {
			Amount        float64 `json:"amount"`
			GasFee        float64 `json:"gas_fee"`
			TimeSinceLast float64 `json:"time_since_last_transaction"`
			Frequency     int     `json:"transaction_frequency"`
			MethodNumeric int     `json:"method_numeric"`
		} `json:"features"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return "", err
	}

	method := res.Method
	if method == "" {
		method = "unknown"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Risk score: %.4f (%s)\n", res.RiskScore, res.RiskLevel)
	fmt.Fprintf(&sb, "Method: %s (code %d)\n", method, res.Features.MethodNumeric)
	fmt.Fprintf(&sb, "Features: amount=%g gas_fee=%g hours_since_last=%g frequency=%d\n",
		res.Features.Amount, res.Features.GasFee, res.Features.TimeSinceLast, res.Features.Frequency)
	return sb.String(), nil
}

func formatCheckList(raw json.RawMessage, showAddress bool) (string, error) {
	var resp struct {
		Checks  []walletCheck `json:"checks"`
		HasMore bool          `json:"has_more"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}
	if len(resp.Checks) == 0 {
		return "No checks recorded.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d check(s), newest first:\n\n", len(resp.Checks))
	for i, ch := range resp.Checks {
		fmt.Fprintf(&sb, "%d. [%s] ", i+1, ch.RiskLevel)
		if showAddress {
			fmt.Fprintf(&sb, "%s ", ch.Address)
		}
		fmt.Fprintf(&sb, "at %s\n", ch.CheckedAt)
		fmt.Fprintf(&sb, "   %s", ch.Reason)
		if ch.Transactions > 0 {
			fmt.Fprintf(&sb, " (top score %.4f)", ch.TopScore)
		}
		sb.WriteString("\n")
		if len(ch.Flags) > 0 {
			fmt.Fprintf(&sb, "   Flags: %s\n", strings.Join(ch.Flags, ", "))
		}
	}
	if resp.HasMore {
		sb.WriteString("\nMore checks are available; raise the limit to see older ones.")
	}
	return sb.String(), nil
}

func formatTransactionList(raw json.RawMessage) (string, error) {
	var resp struct {
		Wallet       string           `json:"wallet"`
		Count        int              `json:"count"`
		Transactions []map[string]any `json:"transactions"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}
	if resp.Count == 0 {
		return fmt.Sprintf("No transactions stored for %s.", resp.Wallet), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d transaction(s) stored for %s:\n\n", resp.Count, resp.Wallet)
	for i, rec := range resp.Transactions {
		id := getString(rec, "_id")
		method := getString(rec, "method")
		if method == "" {
			method = "unknown"
		}
		fmt.Fprintf(&sb, "%d. %s method=%s", i+1, id, method)
		if v, ok := getFloat(rec, "amount"); ok {
			fmt.Fprintf(&sb, " amount=%g", v)
		}
		if ts := getString(rec, "timestamp"); ts != "" {
			fmt.Fprintf(&sb, " at %s", ts)
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// getString extracts a string value from a map, trying multiple key names.
func getString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok {
				return s
			}
			if f, ok := v.(float64); ok {
				return fmt.Sprintf("%g", f)
			}
		}
	}
	return ""
}

// getFloat extracts a float64 value from a map, trying multiple key names.
func getFloat(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if f, ok := v.(float64); ok {
				return f, true
			}
		}
	}
	return 0, false
}
