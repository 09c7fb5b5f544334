package toolserver

import (
	"context"
	"encoding/json"
	"io"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/tianpeijun/email-mcp/gateway"
	"github.com/tianpeijun/email-mcp/present"
)

const serverName = "email-mcp-server"

// Caller runs one named operation. *gateway.Service implements it.
type Caller interface {
	Call(ctx context.Context, name string, args json.RawMessage) gateway.Outcome
}

// Tools returns the tool definitions in operation order.
func Tools() []mcp.Tool {
	return []mcp.Tool{
		mcp.NewTool(string(gateway.OpListAccounts),
			mcp.WithDescription("List all configured email accounts"),
		),
		mcp.NewTool(string(gateway.OpSendEmail),
			mcp.WithDescription("Send an email to specified recipients. Supports multiple email accounts (QQ, 163, etc.). If 'from' is specified, the system will automatically select the matching account."),
			mcp.WithString("to", mcp.Required(), mcp.Description("Recipient email address")),
			mcp.WithString("subject", mcp.Required(), mcp.Description("Email subject")),
			mcp.WithString("body", mcp.Required(), mcp.Description("Email body content")),
			mcp.WithString("from", mcp.Description("Sender email address (optional, used to select account. e.g., xxx@qq.com or xxx@163.com)")),
			mcp.WithBoolean("html", mcp.Description("Whether the body is HTML format")),
			mcp.WithArray("attachments",
				mcp.Description("Email attachments"),
				mcp.Items(map[string]any{
					"type": "object",
					"properties": map[string]any{
						"filename": map[string]any{"type": "string"},
						"path":     map[string]any{"type": "string"},
						"content":  map[string]any{"type": "string"},
					},
					"required": []string{"filename"},
				}),
			),
		),
		mcp.NewTool(string(gateway.OpReadEmails),
			mcp.WithDescription("Read emails from inbox or specified folder. Supports multiple accounts (QQ, 163, etc.)"),
			mcp.WithNumber("limit", mcp.Description("Number of emails to retrieve (default: 10)"), mcp.DefaultNumber(gateway.DefaultLimit)),
			mcp.WithString("folder", mcp.Description("Email folder to read from (default: INBOX)"), mcp.DefaultString(gateway.DefaultFolder)),
			mcp.WithBoolean("unreadOnly", mcp.Description("Only retrieve unread emails"), mcp.DefaultBool(false)),
			accountArg("read from"),
		),
		mcp.NewTool(string(gateway.OpSearchEmails),
			mcp.WithDescription("Search emails by query"),
			mcp.WithString("query", mcp.Required(), mcp.Description("Search query")),
			mcp.WithNumber("limit", mcp.Description("Number of results to return (default: 10)"), mcp.DefaultNumber(gateway.DefaultLimit)),
			mcp.WithString("folder", mcp.Description("Folder to search in (default: INBOX)"), mcp.DefaultString(gateway.DefaultFolder)),
			accountArg("search"),
		),
		mcp.NewTool(string(gateway.OpDeleteEmail),
			mcp.WithDescription("Delete an email by message ID"),
			mcp.WithString("messageId", mcp.Required(), mcp.Description("Email message ID to delete")),
			mcp.WithString("folder", mcp.Description("Folder holding the message (default: INBOX)"), mcp.DefaultString(gateway.DefaultFolder)),
			accountArg("delete from"),
		),
		mcp.NewTool(string(gateway.OpReplyEmail),
			mcp.WithDescription("Reply to an email"),
			mcp.WithString("messageId", mcp.Required(), mcp.Description("Original message ID to reply to")),
			mcp.WithString("body", mcp.Required(), mcp.Description("Reply body content")),
			mcp.WithBoolean("replyAll", mcp.Description("Reply to all recipients"), mcp.DefaultBool(false)),
			mcp.WithBoolean("html", mcp.Description("Whether the body is HTML format"), mcp.DefaultBool(false)),
			mcp.WithString("folder", mcp.Description("Folder holding the original message (default: INBOX)"), mcp.DefaultString(gateway.DefaultFolder)),
			accountArg("reply from"),
		),
	}
}

func accountArg(verb string) mcp.ToolOption {
	return mcp.WithString("account",
		mcp.Description("Account name (qq, 163) or email address to "+verb+" (optional, uses default if not specified)"),
	)
}

// New returns an MCP server exposing every operation of caller as a tool.
func New(caller Caller, version string, logger zerolog.Logger) *server.MCPServer {
	s := server.NewMCPServer(serverName, version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	for _, tool := range Tools() {
		s.AddTool(tool, Handler(caller, tool.Name, logger))
	}
	return s
}

// Handler adapts one operation to an MCP tool handler. Operation failures are
// returned as error results rather than protocol errors.
func Handler(caller Caller, name string, logger zerolog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := json.Marshal(req.GetArguments())
		if err != nil {
			return mcp.NewToolResultError("Error (invalid_request): " + err.Error()), nil
		}

		out := caller.Call(ctx, name, args)
		text := present.Text(out)
		if !out.OK() {
			logger.Debug().
				Str("tool", name).
				Str("kind", out.Failure.Kind).
				Msg("tool call failed")
			return mcp.NewToolResultError(text), nil
		}
		return mcp.NewToolResultText(text), nil
	}
}

// Serve runs s over the given streams until ctx is cancelled or in closes.
func Serve(ctx context.Context, s *server.MCPServer, in io.Reader, out io.Writer, logger zerolog.Logger) error {
	stdio := server.NewStdioServer(s)
	stdio.SetErrorLogger(log.New(logger, "", 0))
	logger.Info().Str("server", serverName).Msg("serving tools over stdio")
	return stdio.Listen(ctx, in, out)
}
