package gateway

import (
	"strings"

	"github.com/tianpeijun/email-mcp/message"
	"github.com/tianpeijun/email-mcp/provider"
)

const (
	replyPrefix = "Re: "
	fromPrefix  = "from:"
)

// ReplySubject prefixes "Re: " unless the subject already starts with it.
func ReplySubject(subject string) string {
	if strings.HasPrefix(subject, replyPrefix) {
		return subject
	}
	return replyPrefix + subject
}

// ReplyRecipients returns the original sender, or with replyAll the
// de-duplicated union of sender, To and Cc. Each header is split into
// individual addresses and duplicates are dropped by exact text.
func ReplyRecipients(rc message.ReplyContext, replyAll bool) []string {
	if !replyAll {
		return provider.UniqueRecipients(provider.SplitAddresses(rc.From))
	}
	return provider.UniqueRecipients(
		provider.SplitAddresses(rc.From),
		provider.SplitAddresses(rc.To),
		provider.SplitAddresses(rc.Cc),
	)
}

// ReplyReferences extends the original References chain with its Message-ID.
func ReplyReferences(rc message.ReplyContext) []string {
	refs := append([]string(nil), rc.References...)
	if rc.MessageID != "" {
		refs = append(refs, rc.MessageID)
	}
	return refs
}

// MatchQuery reports whether m matches a free-text query. A query starting
// with "from:" matches the sender only; anything else matches sender, subject
// or body. Matching is a case-insensitive substring test.
func MatchQuery(m message.Message, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	if strings.HasPrefix(q, fromPrefix) {
		needle := strings.TrimSpace(strings.TrimPrefix(q, fromPrefix))
		return strings.Contains(strings.ToLower(m.From), needle)
	}
	return strings.Contains(strings.ToLower(m.From), q) ||
		strings.Contains(strings.ToLower(m.Subject), q) ||
		strings.Contains(strings.ToLower(m.Body), q)
}

// FilterMessages keeps the messages matching query, preserving order.
func FilterMessages(msgs []message.Message, query string) []message.Message {
	out := make([]message.Message, 0, len(msgs))
	for _, m := range msgs {
		if MatchQuery(m, query) {
			out = append(out, m)
		}
	}
	return out
}

// TakeRecent keeps the last n of msgs (ordered oldest first) and returns them
// most recent first.
func TakeRecent(msgs []message.Message, n int) []message.Message {
	if n > 0 && len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	out := make([]message.Message, len(msgs))
	for i, m := range msgs {
		out[len(msgs)-1-i] = m
	}
	return out
}
