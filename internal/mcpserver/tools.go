package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions for the WalletGuard MCP server.
// Descriptions are what the LLM reads to decide which tool to use.

var ToolAnalyzeWallet = mcp.NewTool("analyze_wallet",
	mcp.WithDescription(
		"Run a fraud-risk analysis over every stored transaction for a wallet. "+
			"Each transaction is scored between 0 and 1 and the list comes back "+
			"most suspicious first, together with the wallet check that summarizes "+
			"the verdict. Use this to judge whether a wallet looks fraudulent."),
	mcp.WithString("address",
		mcp.Required(),
		mcp.Description("Wallet address to analyze (e.g. '0x1234...')")),
)

var ToolScoreTransaction = mcp.NewTool("score_transaction",
	mcp.WithDescription(
		"Score a single transaction without storing it. "+
			"Missing fields fall back to neutral defaults, so partial records are fine. "+
			"Returns the fraud probability, the risk level, and the feature vector "+
			"the score was computed from."),
	mcp.WithString("wallet_id",
		mcp.Description("Wallet the transaction belongs to (e.g. '0x1234...')")),
	mcp.WithString("method",
		mcp.Description("Transaction method, e.g. 'transfer', 'swap', 'stake', 'bridge'. Unrecognized methods are scored with an unknown-method code.")),
	mcp.WithNumber("amount",
		mcp.Description("Transaction amount")),
	mcp.WithNumber("gas_fee",
		mcp.Description("Gas fee paid for the transaction")),
	mcp.WithString("timestamp",
		mcp.Description("When the transaction happened, ISO 8601 (e.g. '2024-05-01T12:00:00Z')")),
	mcp.WithNumber("frequency",
		mcp.Description("The wallet's recent transaction frequency")),
)

var ToolIngestTransaction = mcp.NewTool("ingest_transaction",
	mcp.WithDescription(
		"Store a transaction record for a wallet so later analyze_wallet runs "+
			"include it. Only wallet_id is mandatory; other fields are kept as sent."),
	mcp.WithString("wallet_id",
		mcp.Required(),
		mcp.Description("Wallet address the transaction belongs to (e.g. '0x1234...')")),
	mcp.WithString("method",
		mcp.Description("Transaction method, e.g. 'transfer', 'swap', 'stake'")),
	mcp.WithNumber("amount",
		mcp.Description("Transaction amount")),
	mcp.WithNumber("gas_fee",
		mcp.Description("Gas fee paid for the transaction")),
	mcp.WithString("timestamp",
		mcp.Description("When the transaction happened, ISO 8601")),
	mcp.WithNumber("frequency",
		mcp.Description("The wallet's recent transaction frequency")),
)

var ToolGetWalletChecks = mcp.NewTool("get_wallet_checks",
	mcp.WithDescription(
		"List past fraud checks for one wallet, newest first. "+
			"Each check records the risk level, top score, and flags from one "+
			"analyze_wallet run. Use this to see how a wallet's risk changed over time."),
	mcp.WithString("address",
		mcp.Required(),
		mcp.Description("Wallet address to look up (e.g. '0x1234...')")),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of checks to return (default 20)")),
)

var ToolGetRecentChecks = mcp.NewTool("get_recent_checks",
	mcp.WithDescription(
		"List the most recent fraud checks across all wallets, newest first. "+
			"Use this to see what the scoring service has been flagging lately."),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of checks to return (default 20)")),
)

var ToolListWalletTransactions = mcp.NewTool("list_wallet_transactions",
	mcp.WithDescription(
		"List the raw transaction records stored for a wallet, oldest first. "+
			"Use this to inspect the activity behind an analysis verdict."),
	mcp.WithString("address",
		mcp.Required(),
		mcp.Description("Wallet address to look up (e.g. '0x1234...')")),
)
