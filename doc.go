// Package emailmcp is a lightweight index for the packages in this module.
//
// This root package is documentation-only. Import specific subpackages to use
// concrete helpers.
//
// Available packages:
//   - github.com/tianpeijun/email-mcp/account
//     Named accounts, endpoint settings and hint resolution.
//   - github.com/tianpeijun/email-mcp/message
//     The provider-neutral message record and RFC 822 normalization.
//   - github.com/tianpeijun/email-mcp/provider
//     The provider contract, error taxonomy and outgoing message composer.
//   - github.com/tianpeijun/email-mcp/provider/session
//     SMTP submission and IMAP retrieval, including the ID handshake.
//   - github.com/tianpeijun/email-mcp/provider/gmailapi
//     The Gmail REST API backend.
//   - github.com/tianpeijun/email-mcp/gateway
//     The six operations and their request, result and failure types.
//   - github.com/tianpeijun/email-mcp/present
//     Text rendering of operation outcomes.
//
// The email-mcp command (cmd/email-mcp) serves the operations as MCP tools
// over stdio and runs them one at a time from the shell.
//
// Discovery workflow for agents:
//   - Run: go doc github.com/tianpeijun/email-mcp
//   - Then drill in with:
//     go doc github.com/tianpeijun/email-mcp/gateway
//     go doc github.com/tianpeijun/email-mcp/provider
package emailmcp
