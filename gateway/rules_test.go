package gateway

import (
	"fmt"
	"testing"

	"github.com/nalgeon/be"

	"github.com/tianpeijun/email-mcp/message"
)

func TestReplySubject(t *testing.T) {
	be.Equal(t, ReplySubject("Lunch?"), "Re: Lunch?")
	be.Equal(t, ReplySubject("Re: Lunch?"), "Re: Lunch?")
	// the prefix check is exact
	be.Equal(t, ReplySubject("RE: Lunch?"), "Re: RE: Lunch?")
	be.Equal(t, ReplySubject(""), "Re: ")
}

func TestReplyRecipients(t *testing.T) {
	rc := message.ReplyContext{
		From: "Alice <alice@example.com>",
		To:   "me@example.com, Bob <bob@example.com>",
		Cc:   "Alice <alice@example.com>, carol@example.com",
	}

	be.Equal(t, ReplyRecipients(rc, false), []string{"Alice <alice@example.com>"})
	be.Equal(t, ReplyRecipients(rc, true), []string{
		"Alice <alice@example.com>",
		"me@example.com",
		"Bob <bob@example.com>",
		"carol@example.com",
	})

	be.Equal(t, len(ReplyRecipients(message.ReplyContext{}, true)), 0)
}

func TestReplyReferences(t *testing.T) {
	rc := message.ReplyContext{MessageID: "<b@x>", References: []string{"<a@x>"}}
	be.Equal(t, ReplyReferences(rc), []string{"<a@x>", "<b@x>"})
	// the original slice is not modified
	be.Equal(t, rc.References, []string{"<a@x>"})

	be.Equal(t, len(ReplyReferences(message.ReplyContext{})), 0)
}

func TestMatchQuery(t *testing.T) {
	m := message.Message{
		From:    "Alice <alice@example.com>",
		Subject: "Quarterly Invoice",
		Body:    "Please find the numbers attached.",
	}

	be.True(t, MatchQuery(m, "invoice"))
	be.True(t, MatchQuery(m, "NUMBERS"))
	be.True(t, MatchQuery(m, "alice"))
	be.True(t, MatchQuery(m, "from:alice@example"))
	be.True(t, MatchQuery(m, "  From: ALICE "))
	be.True(t, !MatchQuery(m, "from:invoice"))
	be.True(t, !MatchQuery(m, "bob"))
}

func TestFilterMessages(t *testing.T) {
	msgs := []message.Message{
		{ID: "1", Subject: "invoice one"},
		{ID: "2", Subject: "hello"},
		{ID: "3", Subject: "invoice two"},
	}
	got := FilterMessages(msgs, "invoice")
	be.Equal(t, len(got), 2)
	be.Equal(t, got[0].ID, "1")
	be.Equal(t, got[1].ID, "3")
}

func TestTakeRecent(t *testing.T) {
	var msgs []message.Message
	for i := 1; i <= 5; i++ {
		msgs = append(msgs, message.Message{ID: fmt.Sprint(i)})
	}

	ids := func(ms []message.Message) []string {
		out := make([]string, 0, len(ms))
		for _, m := range ms {
			out = append(out, m.ID)
		}
		return out
	}

	be.Equal(t, ids(TakeRecent(msgs, 3)), []string{"5", "4", "3"})
	be.Equal(t, ids(TakeRecent(msgs, 10)), []string{"5", "4", "3", "2", "1"})
	be.Equal(t, len(TakeRecent(nil, 3)), 0)
	// input order is untouched
	be.Equal(t, msgs[0].ID, "1")
}

func TestParseOperation(t *testing.T) {
	for _, op := range Operations() {
		got, err := ParseOperation(string(op))
		be.Err(t, err, nil)
		be.Equal(t, got, op)
	}
	_, err := ParseOperation("forward_email")
	be.Err(t, err, ErrUnknownOperation)
}
