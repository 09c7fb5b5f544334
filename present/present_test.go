package present

import (
	"strings"
	"testing"
	"time"

	"github.com/nalgeon/be"

	"github.com/tianpeijun/email-mcp/gateway"
	"github.com/tianpeijun/email-mcp/message"
)

func TestTextFailure(t *testing.T) {
	got := Text(gateway.Outcome{
		Operation: gateway.OpDeleteEmail,
		Failure:   &gateway.Failure{Kind: gateway.KindInvalidID, Reason: `invalid message id: "x"`},
	})
	be.Equal(t, got, `Error (invalid_id): invalid message id: "x"`)
}

func TestMessagesEmptyStates(t *testing.T) {
	be.Equal(t, Messages(gateway.MessagesResult{Folder: "INBOX"}), "No emails found in INBOX.")
	be.Equal(t, Messages(gateway.MessagesResult{Folder: "INBOX", UnreadOnly: true}), "No emails found in INBOX (unread only).")
	be.Equal(t, Messages(gateway.MessagesResult{Folder: "Sent", Query: "invoice"}), `No emails found matching "invoice" in Sent.`)
}

func TestMessagesList(t *testing.T) {
	res := gateway.MessagesResult{
		Folder: "INBOX",
		Messages: []message.Message{
			{
				ID:       "12",
				From:     "Alice <alice@example.com>",
				Subject:  "Lunch?",
				Date:     time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
				Snippet:  "Are you free",
				Body:     "Are you free\ntomorrow?",
				IsUnread: true,
			},
			{ID: "11", Subject: "Old"},
		},
		VolatileIDs: true,
	}
	got := Text(gateway.Outcome{Operation: gateway.OpReadEmails, Payload: res})

	be.True(t, strings.HasPrefix(got, "Found 2 email(s) in INBOX:"))
	be.True(t, strings.Contains(got, "1. [unread] **Lunch?**"))
	be.True(t, strings.Contains(got, "Date: Fri, 01 Mar 2024 12:00:00 +0000"))
	be.True(t, strings.Contains(got, "Message ID: 12"))
	be.True(t, strings.Contains(got, "Body Preview: Are you free tomorrow?"))
	be.True(t, strings.Contains(got, "2. **Old**"))
	be.True(t, strings.Contains(got, "Date: unknown"))
	be.True(t, strings.Contains(got, "change after a deletion"))
}

func TestPreview(t *testing.T) {
	html := message.Message{Body: "<p>Hello <strong>world</strong></p>", HTML: true}
	be.Equal(t, Preview(html), "Hello **world**")
	// the record keeps its markup
	be.Equal(t, html.Body, "<p>Hello <strong>world</strong></p>")

	long := message.Message{Body: strings.Repeat("é", 250)}
	got := Preview(long)
	be.Equal(t, got, strings.Repeat("é", PreviewLen)+"...")

	be.Equal(t, Preview(message.Message{}), "")
}

func TestAccounts(t *testing.T) {
	be.Equal(t, Accounts(gateway.AccountsResult{}), "No email accounts are configured.")

	got := Accounts(gateway.AccountsResult{
		Provider: "smtp",
		Accounts: []gateway.AccountSummary{
			{Name: "qq", Address: "ab***@qq.com", SMTP: "smtp.qq.com:465", IMAP: "imap.qq.com:993", Default: true},
		},
	})
	be.True(t, strings.Contains(got, "1. qq (default)"))
	be.True(t, strings.Contains(got, "Address: ab***@qq.com"))
	be.True(t, strings.Contains(got, "IMAP: imap.qq.com:993"))
}

func TestReceipts(t *testing.T) {
	sent := Text(gateway.Outcome{Operation: gateway.OpSendEmail, Payload: gateway.SendResult{
		From: "me@example.com", To: []string{"a@example.com", "b@example.com"},
		Subject: "Hi", MessageID: "<x@example.com>", HTML: true, Attachments: 2,
	}})
	be.True(t, strings.Contains(sent, "- To: a@example.com, b@example.com"))
	be.True(t, strings.Contains(sent, "- Format: HTML"))
	be.True(t, strings.Contains(sent, "- Attachments: 2"))

	replied := Text(gateway.Outcome{Operation: gateway.OpReplyEmail, Payload: gateway.ReplyResult{
		To: []string{"a@example.com"}, Subject: "Re: Hi", ReplyAll: true,
	}})
	be.True(t, strings.Contains(replied, "- Reply all: yes"))
	be.True(t, strings.Contains(replied, "- Format: plain text"))

	deleted := Text(gateway.Outcome{Operation: gateway.OpDeleteEmail, Payload: gateway.DeleteResult{MessageID: "3"}})
	be.Equal(t, deleted, "Email deleted.\n\nMessage ID: 3")
}
