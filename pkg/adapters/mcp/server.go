package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/aretw0/toolflow"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Statement is one fiscal year of summarized financial data.
type Statement struct {
	Year             int     `json:"year"`
	Revenue          float64 `json:"revenue"`
	NetProfit        float64 `json:"net_profit"`
	TotalAssets      float64 `json:"total_assets"`
	TotalLiabilities float64 `json:"total_liabilities"`
	EarningsPerShare float64 `json:"eps"`
}

// Company groups the statements published for a listed symbol. Amounts are in millions.
type Company struct {
	Symbol     string      `json:"symbol"`
	Name       string      `json:"name"`
	Currency   string      `json:"currency"`
	Statements []Statement `json:"statements"`
}

// SampleCompanies is the fixed dataset served by the demo server.
var SampleCompanies = map[string]Company{
	"AOT": {Symbol: "AOT", Name: "Airports of Thailand", Currency: "THB", Statements: []Statement{
		{Year: 2020, Revenue: 47075, NetProfit: 11846, TotalAssets: 199869, TotalLiabilities: 52811, EarningsPerShare: 0.83},
		{Year: 2021, Revenue: 13214, NetProfit: -16322, TotalAssets: 193076, TotalLiabilities: 61912, EarningsPerShare: -1.14},
		{Year: 2022, Revenue: 16560, NetProfit: -11087, TotalAssets: 189343, TotalLiabilities: 69314, EarningsPerShare: -0.78},
		{Year: 2023, Revenue: 48141, NetProfit: 8744, TotalAssets: 194552, TotalLiabilities: 66099, EarningsPerShare: 0.61},
		{Year: 2024, Revenue: 67201, NetProfit: 19226, TotalAssets: 201837, TotalLiabilities: 60871, EarningsPerShare: 1.35},
	}},
	"PTT": {Symbol: "PTT", Name: "PTT Public Company", Currency: "THB", Statements: []Statement{
		{Year: 2020, Revenue: 1615665, NetProfit: 37766, TotalAssets: 2760280, TotalLiabilities: 1364566, EarningsPerShare: 1.32},
		{Year: 2021, Revenue: 2258818, NetProfit: 108363, TotalAssets: 3275357, TotalLiabilities: 1662015, EarningsPerShare: 3.79},
		{Year: 2022, Revenue: 3367203, NetProfit: 91175, TotalAssets: 3554519, TotalLiabilities: 1866417, EarningsPerShare: 3.19},
		{Year: 2023, Revenue: 3144636, NetProfit: 112024, TotalAssets: 3486713, TotalLiabilities: 1762488, EarningsPerShare: 3.92},
		{Year: 2024, Revenue: 3090181, NetProfit: 92147, TotalAssets: 3451905, TotalLiabilities: 1702119, EarningsPerShare: 3.23},
	}},
	"CPALL": {Symbol: "CPALL", Name: "CP ALL", Currency: "THB", Statements: []Statement{
		{Year: 2020, Revenue: 546590, NetProfit: 16102, TotalAssets: 938513, TotalLiabilities: 708128, EarningsPerShare: 1.71},
		{Year: 2021, Revenue: 565207, NetProfit: 12985, TotalAssets: 1015346, TotalLiabilities: 785401, EarningsPerShare: 1.36},
		{Year: 2022, Revenue: 829099, NetProfit: 13272, TotalAssets: 1006402, TotalLiabilities: 764208, EarningsPerShare: 1.39},
		{Year: 2023, Revenue: 896156, NetProfit: 18482, TotalAssets: 1006728, TotalLiabilities: 748935, EarningsPerShare: 1.96},
		{Year: 2024, Revenue: 956543, NetProfit: 25346, TotalAssets: 1008614, TotalLiabilities: 733054, EarningsPerShare: 2.70},
	}},
}

// FinanceServer is a small MCP tool server over SampleCompanies. It backs the
// demo run and the integration tests of the client.
type FinanceServer struct {
	companies map[string]Company
	mcpServer *server.MCPServer
}

// NewFinanceServer creates the server. A nil dataset selects SampleCompanies.
func NewFinanceServer(companies map[string]Company) *FinanceServer {
	if companies == nil {
		companies = SampleCompanies
	}
	s := &FinanceServer{
		companies: companies,
		mcpServer: server.NewMCPServer("toolflow-finance", strings.TrimSpace(toolflow.Version),
			server.WithToolCapabilities(false),
		),
	}
	s.registerTools()
	return s
}

// MCPServer exposes the underlying mcp-go server.
func (s *FinanceServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves on Stdin/Stdout until stdin is closed.
func (s *FinanceServer) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *FinanceServer) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("get_financial_statement",
		mcp.WithDescription("Get yearly financial statements of a listed company."),
		mcp.WithString("symbol", mcp.Required(), mcp.Description("Stock symbol, e.g. AOT")),
		mcp.WithNumber("from_year", mcp.Required(), mcp.Description("First fiscal year to include")),
		mcp.WithNumber("to_year", mcp.Required(), mcp.Description("Last fiscal year to include")),
	), s.handleStatement)

	s.mcpServer.AddTool(mcp.NewTool("list_symbols",
		mcp.WithDescription("List the stock symbols that have financial statements."),
	), s.handleListSymbols)
}

func (s *FinanceServer) handleStatement(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	symbol, _ := args["symbol"].(string)
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	company, ok := s.companies[symbol]
	if !ok {
		slog.Debug("finance server: unknown symbol", "symbol", symbol)
		return mcp.NewToolResultError("symbol not found"), nil
	}

	from, err := intArg(args, "from_year")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	to, err := intArg(args, "to_year")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if from > to {
		return mcp.NewToolResultError(fmt.Sprintf("from_year %d is after to_year %d", from, to)), nil
	}

	out := Company{Symbol: company.Symbol, Name: company.Name, Currency: company.Currency, Statements: []Statement{}}
	for _, st := range company.Statements {
		if st.Year >= from && st.Year <= to {
			out.Statements = append(out.Statements, st)
		}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode statements: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *FinanceServer) handleListSymbols(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	symbols := make([]string, 0, len(s.companies))
	for sym := range s.companies {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return mcp.NewToolResultText(strings.Join(symbols, "\n")), nil
}

// intArg reads a numeric argument. JSON numbers arrive as float64; numeric strings are accepted too.
func intArg(args map[string]any, key string) (int, error) {
	switch v := args[key].(type) {
	case float64:
		return int(v), nil
	case int:
		return v, nil
	case string:
		var n int
		if _, err := fmt.Sscanf(strings.TrimSpace(v), "%d", &n); err != nil {
			return 0, fmt.Errorf("%s must be a number, got %q", key, v)
		}
		return n, nil
	case nil:
		return 0, fmt.Errorf("missing required parameter %s", key)
	default:
		return 0, fmt.Errorf("%s must be a number, got %T", key, v)
	}
}
