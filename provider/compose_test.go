package provider

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nalgeon/be"

	"github.com/tianpeijun/email-mcp/account"
	"github.com/tianpeijun/email-mcp/message"
)

func TestComposePlain(t *testing.T) {
	raw, err := Compose("me@qq.com", Outgoing{
		To:         []string{"a@example.com", " a@example.com ", "b@example.com"},
		Subject:    "Hello\r\nInjected: yes",
		Body:       "line one\nline two",
		InReplyTo:  "<orig@example.com>",
		References: []string{"<root@example.com>", "orig@example.com"},
	}, "<id-1@qq.com>", time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
	be.Err(t, err, nil)

	text := string(raw)
	be.True(t, strings.Contains(text, "Message-Id: <id-1@qq.com>"))
	be.True(t, strings.Contains(text, "In-Reply-To: <orig@example.com>"))
	be.True(t, strings.Contains(text, "References: <root@example.com> <orig@example.com>"))
	be.True(t, strings.Contains(text, "text/plain"))
	be.True(t, !strings.Contains(text, "\r\nInjected: yes"))

	msg, err := message.FromRaw("1", raw, false)
	be.Err(t, err, nil)
	be.Equal(t, msg.To, "<a@example.com>, <b@example.com>")
	be.True(t, strings.HasPrefix(msg.Body, "line one\r\nline two"))
}

func TestComposeHTMLWithAttachments(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.txt")
	be.Err(t, os.WriteFile(path, []byte("file data"), 0o600), nil)

	raw, err := Compose("", Outgoing{
		To:      []string{"a@example.com"},
		Subject: "Report",
		Body:    "<p>see attached</p>",
		HTML:    true,
		Attachments: []Attachment{
			{Filename: "inline.csv", Content: "a,b\n1,2"},
			{Path: path},
		},
	}, "<id-2@localhost>", time.Now())
	be.Err(t, err, nil)

	text := string(raw)
	be.True(t, !strings.Contains(text, "From:"))
	be.True(t, strings.Contains(text, "multipart/mixed"))
	be.True(t, strings.Contains(text, "text/html"))
	be.True(t, strings.Contains(text, `filename=inline.csv`))
	be.True(t, strings.Contains(text, `filename=report.txt`))
}

func TestComposeMissingAttachment(t *testing.T) {
	_, err := Compose("me@qq.com", Outgoing{
		To:          []string{"a@example.com"},
		Attachments: []Attachment{{Path: "/does/not/exist.bin"}},
	}, "<x@qq.com>", time.Now())
	be.True(t, errors.Is(err, os.ErrNotExist))
}

func TestSplitAddresses(t *testing.T) {
	be.Equal(t, SplitAddresses(`"Alice A" <alice@example.com>, bob@example.com`),
		[]string{"Alice A <alice@example.com>", "bob@example.com"})
	be.Equal(t, len(SplitAddresses("  ")), 0)
	be.Equal(t, BareAddress("Alice <alice@example.com>"), "alice@example.com")
	be.Equal(t, BareAddress("bob@example.com"), "bob@example.com")
}

func TestUniqueRecipients(t *testing.T) {
	got := UniqueRecipients([]string{"a@x.com", ""}, []string{" a@x.com", "b@x.com"})
	be.Equal(t, got, []string{"a@x.com", "b@x.com"})
}

func TestNewMessageID(t *testing.T) {
	id := NewMessageID("me@163.com")
	be.True(t, strings.HasPrefix(id, "<"))
	be.True(t, strings.HasSuffix(id, "@163.com>"))
	be.True(t, NewMessageID("me@163.com") != id)
	be.True(t, strings.HasSuffix(NewMessageID(""), "@localhost>"))
}

func TestErrorTaxonomy(t *testing.T) {
	err := Transport(errors.New("dial refused"))
	be.Err(t, err, ErrTransport)
	be.Equal(t, Transport(err), err)
	be.Err(t, InvalidID("abc", "is not a sequence number"), ErrInvalidID)
	be.True(t, errors.Is(ErrAccountNotFound, account.ErrAccountNotFound))
	be.True(t, errors.Is(ErrParse, message.ErrParse))
}
