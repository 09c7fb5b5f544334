package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/tianpeijun/email-mcp/account"
	"github.com/tianpeijun/email-mcp/message"
)

var (
	ErrConfigurationMissing = account.ErrConfigurationMissing
	ErrAccountNotFound      = account.ErrAccountNotFound
	ErrParse                = message.ErrParse
	// ErrInvalidID is returned for a message identifier the provider cannot address.
	ErrInvalidID = errors.New("invalid message id")
	// ErrTransport wraps connection, authentication and protocol failures.
	ErrTransport = errors.New("transport failure")
)

// Transport classifies err as a transport failure.
func Transport(err error) error {
	if err == nil {
		return ErrTransport
	}
	if errors.Is(err, ErrTransport) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrTransport, err)
}

// InvalidID builds an ErrInvalidID for id.
func InvalidID(id string, reason string) error {
	return fmt.Errorf("%w: %q %s", ErrInvalidID, id, reason)
}

// Capabilities describe how a provider's identifiers and search behave.
type Capabilities struct {
	// StableIDs is false when ids are positions that shift after deletions.
	StableIDs bool
	// ServerSideSearch is true when Search results are already filtered by
	// the provider's own query language.
	ServerSideSearch bool
}

// Attachment is a file attached to an outgoing message. Path is read from
// disk when Content is empty.
type Attachment struct {
	Filename string `json:"filename"`
	Path     string `json:"path,omitempty"`
	Content  string `json:"content,omitempty"`
}

// Outgoing is a message to submit.
type Outgoing struct {
	From        string
	To          []string
	Cc          []string
	Subject     string
	Body        string
	HTML        bool
	Attachments []Attachment
	InReplyTo   string
	References  []string
	// ThreadID keeps a reply in its conversation on providers with threads.
	ThreadID string
}

// SendReceipt reports a submitted message.
type SendReceipt struct {
	MessageID string
	ThreadID  string
	From      string
}

// ListQuery selects recent messages of a folder.
type ListQuery struct {
	Folder     string
	UnreadOnly bool
	Limit      int
}

// SearchQuery selects messages matching free text.
type SearchQuery struct {
	Folder string
	Query  string
	Limit  int
}

// Target addresses one message of a folder.
type Target struct {
	Folder string
	ID     string
}

// Provider is one protocol backend. Retrieval results are ordered oldest
// first; callers pick the most recent from the tail.
type Provider interface {
	Name() string
	Capabilities() Capabilities
	Send(ctx context.Context, acct account.Account, out Outgoing) (SendReceipt, error)
	List(ctx context.Context, acct account.Account, query ListQuery) ([]message.Message, error)
	Search(ctx context.Context, acct account.Account, query SearchQuery) ([]message.Message, error)
	Delete(ctx context.Context, acct account.Account, target Target) error
	FetchForReply(ctx context.Context, acct account.Account, target Target) (message.ReplyContext, error)
}
