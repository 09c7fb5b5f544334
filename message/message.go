package message

import (
	"errors"
	"strings"
	"time"
)

const (
	// BodyPreviewLen bounds Message.Body, in characters.
	BodyPreviewLen = 1000
	// SnippetLen bounds Message.Snippet, in characters.
	SnippetLen = 150
)

// ErrParse marks a message that could not be normalized.
var ErrParse = errors.New("parse failure")

// Message is the provider-independent record every retrieval returns.
type Message struct {
	// ID is valid for delete and reply. Session ids are mailbox sequence
	// numbers and shift after deletions.
	ID       string    `json:"id"`
	ThreadID string    `json:"threadId"`
	From     string    `json:"from"`
	To       string    `json:"to"`
	Cc       string    `json:"cc,omitempty"`
	Subject  string    `json:"subject"`
	Date     time.Time `json:"date"`
	Snippet  string    `json:"snippet"`
	Body     string    `json:"body,omitempty"`
	// HTML is set when Body holds markup because no plain-text part existed.
	HTML     bool `json:"html,omitempty"`
	IsUnread bool `json:"isUnread"`
}

// ReplyContext carries the header fields needed to answer a message.
type ReplyContext struct {
	From       string
	To         string
	Cc         string
	Subject    string
	MessageID  string
	References []string
	ThreadID   string
}

// Truncate cuts value to at most maxChars characters.
func Truncate(value string, maxChars int) string {
	if maxChars <= 0 {
		return value
	}
	runes := []rune(value)
	if len(runes) <= maxChars {
		return value
	}
	return string(runes[:maxChars])
}

// Snippet derives the short preview of a chosen body.
func Snippet(body string) string {
	return Truncate(strings.TrimSpace(body), SnippetLen)
}

// ChooseBody prefers the plain-text part and falls back to HTML.
func ChooseBody(text string, html string) (body string, isHTML bool) {
	if strings.TrimSpace(text) != "" {
		return text, false
	}
	if strings.TrimSpace(html) != "" {
		return html, true
	}
	return "", false
}
