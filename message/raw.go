package message

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	gomessage "github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

// FromRaw normalizes an RFC 822 message fetched from a mailbox.
//
// Undecodable charsets degrade to raw bytes rather than failing the message.
// Structural failures return an error wrapping ErrParse; callers skip the
// message.
func FromRaw(id string, raw []byte, unread bool) (Message, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return Message{}, fmt.Errorf("%w: message %s: empty content", ErrParse, id)
	}
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && !gomessage.IsUnknownCharset(err) {
		return Message{}, fmt.Errorf("%w: message %s: %w", ErrParse, id, err)
	}
	defer mr.Close()

	h := mr.Header
	out := Message{
		ID:       id,
		From:     headerText(&h, "From"),
		To:       headerText(&h, "To"),
		Cc:       headerText(&h, "Cc"),
		IsUnread: unread,
	}
	out.Subject, _ = h.Subject()
	if date, err := h.Date(); err == nil {
		out.Date = date
	}
	if messageID, err := h.MessageID(); err == nil && messageID != "" {
		out.ThreadID = "<" + messageID + ">"
	} else {
		out.ThreadID = id
	}

	text, html, err := readBodies(mr)
	if err != nil {
		return Message{}, fmt.Errorf("%w: message %s: %w", ErrParse, id, err)
	}
	body, isHTML := ChooseBody(text, html)
	out.Body = Truncate(body, BodyPreviewLen)
	out.HTML = isHTML
	out.Snippet = Snippet(body)
	return out, nil
}

// ReplyFromRaw extracts the fields a reply needs from an RFC 822 message.
func ReplyFromRaw(raw []byte) (ReplyContext, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && !gomessage.IsUnknownCharset(err) {
		return ReplyContext{}, fmt.Errorf("%w: %w", ErrParse, err)
	}
	defer mr.Close()

	h := mr.Header
	rc := ReplyContext{
		From: headerText(&h, "From"),
		To:   headerText(&h, "To"),
		Cc:   headerText(&h, "Cc"),
	}
	rc.Subject, _ = h.Subject()
	if messageID, err := h.MessageID(); err == nil && messageID != "" {
		rc.MessageID = "<" + messageID + ">"
	}
	if refs, err := h.MsgIDList("References"); err == nil {
		for _, ref := range refs {
			rc.References = append(rc.References, "<"+ref+">")
		}
	}
	if strings.TrimSpace(rc.From) == "" {
		return ReplyContext{}, fmt.Errorf("%w: original message has no sender", ErrParse)
	}
	return rc, nil
}

func readBodies(mr *mail.Reader) (text string, html string, err error) {
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil && !gomessage.IsUnknownCharset(err) {
			return "", "", err
		}

		inline, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := inline.ContentType()
		data, err := io.ReadAll(part.Body)
		if err != nil {
			return "", "", err
		}
		switch strings.ToLower(contentType) {
		case "text/plain":
			if text == "" {
				text = string(data)
			}
		case "text/html":
			if html == "" {
				html = string(data)
			}
		}
	}
	return text, html, nil
}

func headerText(h *mail.Header, key string) string {
	value, err := h.Text(key)
	if err != nil {
		return strings.TrimSpace(h.Get(key))
	}
	return strings.TrimSpace(value)
}
