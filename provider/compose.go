package provider

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"
)

// Compose renders out as an RFC 822 message. An empty from omits the From
// header so the provider fills it in.
func Compose(from string, out Outgoing, messageID string, now time.Time) ([]byte, error) {
	var h mail.Header
	h.SetDate(now)
	if from = strings.TrimSpace(from); from != "" {
		h.SetAddressList("From", []*mail.Address{parseAddress(from)})
	}
	h.SetAddressList("To", parseAddresses(UniqueRecipients(out.To)))
	if cc := UniqueRecipients(out.Cc); len(cc) > 0 {
		h.SetAddressList("Cc", parseAddresses(cc))
	}
	h.SetSubject(sanitizeHeader(out.Subject))
	if id := trimMessageID(messageID); id != "" {
		h.SetMessageID(id)
	}
	if id := trimMessageID(out.InReplyTo); id != "" {
		h.SetMsgIDList("In-Reply-To", []string{id})
	}
	if refs := trimMessageIDs(out.References); len(refs) > 0 {
		h.SetMsgIDList("References", refs)
	}
	h.Set("MIME-Version", "1.0")

	contentType := "text/plain"
	if out.HTML {
		contentType = "text/html"
	}
	body := normalizeBody(out.Body)

	var buf bytes.Buffer
	if len(out.Attachments) == 0 {
		h.SetContentType(contentType, map[string]string{"charset": "utf-8"})
		w, err := mail.CreateSingleInlineWriter(&buf, h)
		if err != nil {
			return nil, fmt.Errorf("compose: writing header failed: %w", err)
		}
		if _, err := io.WriteString(w, body); err != nil {
			return nil, fmt.Errorf("compose: writing body failed: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("compose: finalizing body failed: %w", err)
		}
		return buf.Bytes(), nil
	}

	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("compose: writing header failed: %w", err)
	}
	var ih mail.InlineHeader
	ih.SetContentType(contentType, map[string]string{"charset": "utf-8"})
	bw, err := mw.CreateSingleInline(ih)
	if err != nil {
		return nil, fmt.Errorf("compose: creating body part failed: %w", err)
	}
	if _, err := io.WriteString(bw, body); err != nil {
		return nil, fmt.Errorf("compose: writing body failed: %w", err)
	}
	if err := bw.Close(); err != nil {
		return nil, fmt.Errorf("compose: finalizing body failed: %w", err)
	}

	for _, att := range out.Attachments {
		if err := writeAttachment(mw, att); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("compose: finalizing message failed: %w", err)
	}
	return buf.Bytes(), nil
}

func writeAttachment(mw *mail.Writer, att Attachment) error {
	name := strings.TrimSpace(att.Filename)
	if name == "" && att.Path != "" {
		name = filepath.Base(att.Path)
	}
	if name == "" {
		return fmt.Errorf("compose: attachment has no filename")
	}

	data := []byte(att.Content)
	if att.Content == "" && att.Path != "" {
		raw, err := os.ReadFile(att.Path)
		if err != nil {
			return fmt.Errorf("compose: reading attachment %q failed: %w", att.Path, err)
		}
		data = raw
	}

	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var ah mail.AttachmentHeader
	ah.SetContentType(contentType, nil)
	ah.SetFilename(name)
	w, err := mw.CreateAttachment(ah)
	if err != nil {
		return fmt.Errorf("compose: creating attachment %q failed: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("compose: writing attachment %q failed: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("compose: finalizing attachment %q failed: %w", name, err)
	}
	return nil
}

// UniqueRecipients flattens groups into trimmed, de-duplicated entries in
// first-seen order.
func UniqueRecipients(groups ...[]string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, 8)
	for _, group := range groups {
		for _, recipient := range group {
			recipient = strings.TrimSpace(recipient)
			if recipient == "" {
				continue
			}
			if _, ok := seen[recipient]; ok {
				continue
			}
			seen[recipient] = struct{}{}
			out = append(out, recipient)
		}
	}
	return out
}

// SplitAddresses splits an address-list header value into individual
// addresses, keeping display names.
func SplitAddresses(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if list, err := mail.ParseAddressList(value); err == nil {
		out := make([]string, 0, len(list))
		for _, addr := range list {
			out = append(out, formatAddress(addr))
		}
		return out
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// BareAddress returns the mailbox part of an address, dropping any display name.
func BareAddress(value string) string {
	return parseAddress(value).Address
}

// NewMessageID generates a Message-ID on the domain of address.
func NewMessageID(address string) string {
	domain := "localhost"
	if at := strings.LastIndex(address, "@"); at >= 0 && at < len(address)-1 {
		domain = strings.Trim(address[at+1:], "<> ")
	}
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)
}

func parseAddress(value string) *mail.Address {
	value = strings.TrimSpace(value)
	if addr, err := mail.ParseAddress(value); err == nil {
		return addr
	}
	return &mail.Address{Address: strings.Trim(value, "<>")}
}

func parseAddresses(values []string) []*mail.Address {
	out := make([]*mail.Address, 0, len(values))
	for _, v := range values {
		out = append(out, parseAddress(v))
	}
	return out
}

func formatAddress(addr *mail.Address) string {
	if addr.Name == "" {
		return addr.Address
	}
	return fmt.Sprintf("%s <%s>", addr.Name, addr.Address)
}

func sanitizeHeader(value string) string {
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.ReplaceAll(value, "\n", " ")
	return strings.TrimSpace(value)
}

func normalizeBody(body string) string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	body = strings.ReplaceAll(body, "\r", "\n")
	return strings.ReplaceAll(body, "\n", "\r\n")
}

func trimMessageID(value string) string {
	return strings.Trim(strings.TrimSpace(value), "<>")
}

func trimMessageIDs(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if id := trimMessageID(v); id != "" {
			out = append(out, id)
		}
	}
	return out
}
