package gmailapi

import (
	"encoding/base64"
	"fmt"
	"slices"
	"strings"
	"time"

	"google.golang.org/api/gmail/v1"

	"github.com/tianpeijun/email-mcp/message"
)

const truncatedMarker = "..."

// toMessage converts a Gmail API message fetched with format=full.
func toMessage(msg *gmail.Message) (message.Message, error) {
	if msg == nil || msg.Payload == nil {
		return message.Message{}, fmt.Errorf("%w: gmail message has no payload", message.ErrParse)
	}

	headers := headerMap(msg.Payload.Headers)
	out := message.Message{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		From:     headers["from"],
		To:       headers["to"],
		Cc:       headers["cc"],
		Subject:  headers["subject"],
		Snippet:  message.Truncate(msg.Snippet, message.SnippetLen),
		IsUnread: slices.Contains(msg.LabelIds, "UNREAD"),
	}
	if msg.InternalDate > 0 {
		out.Date = time.UnixMilli(msg.InternalDate)
	}

	text, html := extractBodies(msg.Payload)
	body, isHTML := message.ChooseBody(text, html)
	if len([]rune(body)) > message.BodyPreviewLen {
		body = message.Truncate(body, message.BodyPreviewLen) + truncatedMarker
	}
	out.Body = body
	out.HTML = isHTML
	if out.Snippet == "" {
		out.Snippet = message.Snippet(body)
	}
	return out, nil
}

// toReplyContext converts a message fetched with format=metadata.
func toReplyContext(msg *gmail.Message) (message.ReplyContext, error) {
	if msg == nil || msg.Payload == nil {
		return message.ReplyContext{}, fmt.Errorf("%w: gmail message has no payload", message.ErrParse)
	}
	headers := headerMap(msg.Payload.Headers)
	rc := message.ReplyContext{
		From:      headers["from"],
		To:        headers["to"],
		Cc:        headers["cc"],
		Subject:   headers["subject"],
		MessageID: headers["message-id"],
		ThreadID:  msg.ThreadId,
	}
	if refs := strings.Fields(headers["references"]); len(refs) > 0 {
		rc.References = refs
	}
	if rc.From == "" {
		return message.ReplyContext{}, fmt.Errorf("%w: original message has no sender", message.ErrParse)
	}
	return rc, nil
}

func headerMap(headers []*gmail.MessagePartHeader) map[string]string {
	out := make(map[string]string, len(headers))
	for _, h := range headers {
		key := strings.ToLower(h.Name)
		if _, ok := out[key]; !ok {
			out[key] = strings.TrimSpace(h.Value)
		}
	}
	return out
}

// extractBodies walks the MIME tree and returns the first text/plain and
// text/html bodies, skipping attachments.
func extractBodies(part *gmail.MessagePart) (text string, html string) {
	if part == nil || part.Filename != "" {
		return "", ""
	}

	if part.Body != nil && part.Body.Data != "" {
		if decoded, err := decodeBody(part.Body.Data); err == nil {
			switch strings.ToLower(part.MimeType) {
			case "text/plain":
				text = decoded
			case "text/html":
				html = decoded
			}
		}
	}

	for _, child := range part.Parts {
		childText, childHTML := extractBodies(child)
		if text == "" {
			text = childText
		}
		if html == "" {
			html = childHTML
		}
	}
	return text, html
}

func decodeBody(data string) (string, error) {
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		decoded, err = base64.RawURLEncoding.DecodeString(data)
		if err != nil {
			return "", err
		}
	}
	return string(decoded), nil
}
