package present

import (
	"fmt"
	"strings"
	"sync"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"

	"github.com/tianpeijun/email-mcp/gateway"
	"github.com/tianpeijun/email-mcp/message"
)

// PreviewLen bounds the body preview of each listed message, in characters.
const PreviewLen = 200

const dateLayout = "Mon, 02 Jan 2006 15:04:05 -0700"

var converter = sync.OnceValue(func() *md.Converter {
	return md.NewConverter(
		md.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(
				commonmark.WithStrongDelimiter("**"),
				commonmark.WithEmDelimiter("_"),
			),
		),
		md.WithEscapeMode(md.EscapeModeDisabled),
	)
})

// Text renders an outcome as the text returned to the caller.
func Text(out gateway.Outcome) string {
	if out.Failure != nil {
		return Failure(out.Failure)
	}
	switch p := out.Payload.(type) {
	case gateway.AccountsResult:
		return Accounts(p)
	case gateway.SendResult:
		return Sent(p)
	case gateway.MessagesResult:
		return Messages(p)
	case gateway.DeleteResult:
		return Deleted(p)
	case gateway.ReplyResult:
		return Replied(p)
	case nil:
		return fmt.Sprintf("%s completed with no result.", out.Operation)
	default:
		return fmt.Sprintf("%s completed: %v", out.Operation, p)
	}
}

// Failure renders a classified error.
func Failure(f *gateway.Failure) string {
	return fmt.Sprintf("Error (%s): %s", f.Kind, f.Reason)
}

// Accounts renders the configured accounts.
func Accounts(res gateway.AccountsResult) string {
	if len(res.Accounts) == 0 {
		return "No email accounts are configured."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d email account(s) configured (provider: %s):\n\n", len(res.Accounts), res.Provider)
	for i, a := range res.Accounts {
		fmt.Fprintf(&b, "%d. %s", i+1, a.Name)
		if a.Default {
			b.WriteString(" (default)")
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "   Address: %s\n", a.Address)
		if a.SMTP != "" {
			fmt.Fprintf(&b, "   SMTP: %s\n", a.SMTP)
		}
		if a.IMAP != "" {
			fmt.Fprintf(&b, "   IMAP: %s\n", a.IMAP)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// Sent renders a send receipt.
func Sent(res gateway.SendResult) string {
	var b strings.Builder
	b.WriteString("Email sent.\n\n")
	fmt.Fprintf(&b, "- From: %s\n", res.From)
	fmt.Fprintf(&b, "- To: %s\n", strings.Join(res.To, ", "))
	fmt.Fprintf(&b, "- Subject: %s\n", res.Subject)
	fmt.Fprintf(&b, "- Message ID: %s\n", res.MessageID)
	fmt.Fprintf(&b, "- Format: %s", format(res.HTML))
	if res.Attachments > 0 {
		fmt.Fprintf(&b, "\n- Attachments: %d", res.Attachments)
	}
	return b.String()
}

// Messages renders a read or search result.
func Messages(res gateway.MessagesResult) string {
	if len(res.Messages) == 0 {
		if res.Query != "" {
			return fmt.Sprintf("No emails found matching %q in %s.", res.Query, res.Folder)
		}
		if res.UnreadOnly {
			return fmt.Sprintf("No emails found in %s (unread only).", res.Folder)
		}
		return fmt.Sprintf("No emails found in %s.", res.Folder)
	}

	var b strings.Builder
	if res.Query != "" {
		fmt.Fprintf(&b, "Found %d email(s) matching %q in %s:\n\n", len(res.Messages), res.Query, res.Folder)
	} else {
		fmt.Fprintf(&b, "Found %d email(s) in %s:\n\n", len(res.Messages), res.Folder)
	}
	for i, m := range res.Messages {
		writeMessage(&b, i+1, m)
	}
	if res.VolatileIDs {
		b.WriteString("\nNote: message ids are mailbox positions and change after a deletion; read the folder again before deleting or replying to another message.")
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeMessage(b *strings.Builder, n int, m message.Message) {
	marker := ""
	if m.IsUnread {
		marker = "[unread] "
	}
	fmt.Fprintf(b, "%d. %s**%s**\n", n, marker, m.Subject)
	fmt.Fprintf(b, "   From: %s\n", m.From)
	fmt.Fprintf(b, "   Date: %s\n", formatDate(m.Date))
	if m.Snippet != "" {
		fmt.Fprintf(b, "   Snippet: %s\n", oneLine(m.Snippet))
	}
	fmt.Fprintf(b, "   Message ID: %s\n", m.ID)
	if preview := Preview(m); preview != "" {
		fmt.Fprintf(b, "   Body Preview: %s\n", preview)
	}
	b.WriteString("   ---\n")
}

// Preview returns the first PreviewLen characters of a message body on one
// line. HTML bodies are converted to Markdown first; the message keeps its
// original body.
func Preview(m message.Message) string {
	body := m.Body
	if m.HTML {
		if converted, err := converter().ConvertString(body); err == nil {
			body = converted
		}
	}
	body = oneLine(body)
	if body == "" {
		return ""
	}
	cut := message.Truncate(body, PreviewLen)
	if cut != body {
		cut += "..."
	}
	return cut
}

// Deleted renders a delete confirmation.
func Deleted(res gateway.DeleteResult) string {
	return fmt.Sprintf("Email deleted.\n\nMessage ID: %s", res.MessageID)
}

// Replied renders a reply receipt.
func Replied(res gateway.ReplyResult) string {
	var b strings.Builder
	b.WriteString("Reply sent.\n\n")
	fmt.Fprintf(&b, "- To: %s\n", strings.Join(res.To, ", "))
	fmt.Fprintf(&b, "- Subject: %s\n", res.Subject)
	fmt.Fprintf(&b, "- Message ID: %s\n", res.MessageID)
	fmt.Fprintf(&b, "- Reply all: %s\n", yesNo(res.ReplyAll))
	fmt.Fprintf(&b, "- Format: %s", format(res.HTML))
	return b.String()
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Format(dateLayout)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func format(html bool) string {
	if html {
		return "HTML"
	}
	return "plain text"
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
