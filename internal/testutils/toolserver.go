package testutils

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	mcpadapter "github.com/aretw0/toolflow/pkg/adapters/mcp"
	"github.com/mark3labs/mcp-go/mcp"
)

// EchoTool is the single tool advertised by the scripted server modes.
var EchoTool = map[string]any{
	"name":        "echo",
	"description": "Echo the text parameter back",
	"inputSchema": map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{"type": "string", "description": "Text to echo"},
		},
		"required": []string{"text"},
	},
}

// PagedTool is returned on the second page in ModePaged.
var PagedTool = map[string]any{
	"name":        "count",
	"description": "Count to n",
	"inputSchema": map[string]any{
		"type": "object",
		"properties": map[string]any{
			"n": map[string]any{"type": "integer"},
		},
	},
}

type inbound struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
}

type scripted struct {
	mode string
	out  *json.Encoder
}

func serveHelper(mode string, in io.Reader, out io.Writer) error {
	if mode == ModeFinance {
		return mcpadapter.NewFinanceServer(nil).ServeStdio()
	}

	s := &scripted{mode: mode, out: json.NewEncoder(out)}
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		var msg inbound
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			continue
		}
		if len(msg.ID) == 0 || msg.Method == "" {
			// Notifications and replies to our own requests.
			continue
		}
		s.handle(msg)
	}

	if mode == ModeStubborn {
		// Outlive stdin so the client has to kill us.
		time.Sleep(time.Hour)
	}
	return scanner.Err()
}

func (s *scripted) handle(msg inbound) {
	switch msg.Method {
	case "initialize":
		s.initialize(msg)
	case "tools/list":
		s.listTools(msg)
	case "tools/call":
		s.callTool(msg)
	case "ping":
		s.result(msg.ID, map[string]any{})
	default:
		s.send(map[string]any{
			"jsonrpc": "2.0",
			"id":      msg.ID,
			"error":   map[string]any{"code": mcp.METHOD_NOT_FOUND, "message": "method not found"},
		})
	}
}

func (s *scripted) initialize(msg inbound) {
	switch s.mode {
	case ModeSilent:
		return
	case ModeNoisy:
		fmt.Fprintln(os.Stdout, "this line is not JSON")
		s.send(map[string]any{"jsonrpc": "2.0", "method": "notifications/message", "params": map[string]any{"level": "info", "data": "warming up"}})
		s.send(map[string]any{"jsonrpc": "2.0", "id": 9999, "result": map[string]any{}})
		s.send(map[string]any{"jsonrpc": "2.0", "id": "srv-1", "method": "ping"})
		s.send(map[string]any{"jsonrpc": "2.0", "id": "srv-2", "method": "sampling/createMessage", "params": map[string]any{}})
	}

	version := mcp.LATEST_PROTOCOL_VERSION
	if s.mode == ModeBadVersion {
		version = "1999-01-01"
	}
	reply := map[string]any{
		"protocolVersion": version,
		"capabilities":    map[string]any{"tools": map[string]any{}},
		"serverInfo":      map[string]any{"name": "scripted-" + s.mode, "version": "0.0.1"},
	}
	s.result(msg.ID, reply)
	if s.mode == ModeNoisy {
		s.result(msg.ID, reply)
	}
}

func (s *scripted) listTools(msg inbound) {
	switch s.mode {
	case ModeGarbage:
		s.result(msg.ID, "not a tool list")
	case ModeCrash:
		os.Exit(3)
	case ModePaged:
		var params struct {
			Cursor string `json:"cursor"`
		}
		_ = json.Unmarshal(msg.Params, &params)
		if params.Cursor == "" {
			s.result(msg.ID, map[string]any{"tools": []any{EchoTool}, "nextCursor": "page-2"})
			return
		}
		s.result(msg.ID, map[string]any{"tools": []any{PagedTool}})
	default:
		s.result(msg.ID, map[string]any{"tools": []any{EchoTool}})
	}
}

func (s *scripted) callTool(msg inbound) {
	if s.mode == ModeSlow {
		return
	}
	var params struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	}
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.send(map[string]any{
			"jsonrpc": "2.0",
			"id":      msg.ID,
			"error":   map[string]any{"code": mcp.INVALID_PARAMS, "message": err.Error()},
		})
		return
	}

	switch params.Name {
	case "echo":
		text, _ := params.Arguments["text"].(string)
		s.result(msg.ID, map[string]any{"content": []any{map[string]any{"type": "text", "text": text}}})
	case "structured":
		s.result(msg.ID, map[string]any{
			"content":           []any{map[string]any{"type": "text", "text": `{"answer":42}`}},
			"structuredContent": map[string]any{"answer": 42},
		})
	case "rejected":
		s.send(map[string]any{
			"jsonrpc": "2.0",
			"id":      msg.ID,
			"error":   map[string]any{"code": mcp.INVALID_PARAMS, "message": "rejected by server"},
		})
	default:
		s.result(msg.ID, map[string]any{
			"content": []any{map[string]any{"type": "text", "text": "unknown tool: " + params.Name}},
			"isError": true,
		})
	}
}

func (s *scripted) result(id json.RawMessage, result any) {
	s.send(map[string]any{"jsonrpc": "2.0", "id": id, "result": result})
}

func (s *scripted) send(v any) {
	_ = s.out.Encode(v)
}
