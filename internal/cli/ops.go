package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tianpeijun/email-mcp/gateway"
	"github.com/tianpeijun/email-mcp/present"
	"github.com/tianpeijun/email-mcp/provider"
)

// errOperationFailed makes the process exit non-zero after the failure text
// has been printed.
var errOperationFailed = errors.New("operation failed")

func (a *app) run(cmd *cobra.Command, op gateway.Operation, req any) error {
	args, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return a.dispatch(cmd, string(op), args)
}

func (a *app) dispatch(cmd *cobra.Command, name string, args json.RawMessage) error {
	out := a.caller.Call(cmd.Context(), name, args)
	fmt.Fprintln(cmd.OutOrStdout(), present.Text(out))
	if !out.OK() {
		return errOperationFailed
	}
	return nil
}

func (a *app) accountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List configured email accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, gateway.OpListAccounts, struct{}{})
		},
	}
}

func (a *app) sendCmd() *cobra.Command {
	var req gateway.SendRequest
	var attach []string
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send an email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range attach {
				req.Attachments = append(req.Attachments, provider.Attachment{Filename: filepath.Base(path), Path: path})
			}
			return a.run(cmd, gateway.OpSendEmail, req)
		},
	}
	cmd.Flags().StringVar(&req.To, "to", "", "recipient address list")
	cmd.Flags().StringVar(&req.Subject, "subject", "", "subject")
	cmd.Flags().StringVar(&req.Body, "body", "", "body")
	cmd.Flags().StringVar(&req.From, "from", "", "sender address or account name")
	cmd.Flags().BoolVar(&req.HTML, "html", false, "body is HTML")
	cmd.Flags().StringArrayVar(&attach, "attach", nil, "file to attach (repeatable)")
	return cmd
}

func (a *app) readCmd() *cobra.Command {
	var req gateway.ReadRequest
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Read the most recent emails of a folder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, gateway.OpReadEmails, req)
		},
	}
	cmd.Flags().IntVar(&req.Limit, "limit", gateway.DefaultLimit, "number of emails")
	cmd.Flags().StringVar(&req.Folder, "folder", gateway.DefaultFolder, "folder")
	cmd.Flags().BoolVar(&req.UnreadOnly, "unread", false, "only unread emails")
	cmd.Flags().StringVar(&req.Account, "account", "", "account name or address")
	return cmd
}

func (a *app) searchCmd() *cobra.Command {
	var req gateway.SearchRequest
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search emails",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Query = args[0]
			return a.run(cmd, gateway.OpSearchEmails, req)
		},
	}
	cmd.Flags().IntVar(&req.Limit, "limit", gateway.DefaultLimit, "number of results")
	cmd.Flags().StringVar(&req.Folder, "folder", gateway.DefaultFolder, "folder")
	cmd.Flags().StringVar(&req.Account, "account", "", "account name or address")
	return cmd
}

func (a *app) deleteCmd() *cobra.Command {
	var req gateway.DeleteRequest
	cmd := &cobra.Command{
		Use:   "delete <message-id>",
		Short: "Delete an email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.MessageID = args[0]
			return a.run(cmd, gateway.OpDeleteEmail, req)
		},
	}
	cmd.Flags().StringVar(&req.Folder, "folder", gateway.DefaultFolder, "folder")
	cmd.Flags().StringVar(&req.Account, "account", "", "account name or address")
	return cmd
}

func (a *app) replyCmd() *cobra.Command {
	var req gateway.ReplyRequest
	cmd := &cobra.Command{
		Use:   "reply <message-id>",
		Short: "Reply to an email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.MessageID = args[0]
			return a.run(cmd, gateway.OpReplyEmail, req)
		},
	}
	cmd.Flags().StringVar(&req.Body, "body", "", "reply body")
	cmd.Flags().BoolVar(&req.ReplyAll, "all", false, "reply to all recipients")
	cmd.Flags().BoolVar(&req.HTML, "html", false, "body is HTML")
	cmd.Flags().StringVar(&req.Folder, "folder", gateway.DefaultFolder, "folder")
	cmd.Flags().StringVar(&req.Account, "account", "", "account name or address")
	return cmd
}

func (a *app) callCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "call <operation> [json-arguments]",
		Short: "Run an operation by name with JSON arguments",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw json.RawMessage
			if len(args) == 2 {
				raw = json.RawMessage(args[1])
			}
			return a.dispatch(cmd, args[0], raw)
		},
	}
}
