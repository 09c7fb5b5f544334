package gateway

import (
	"strings"

	"github.com/emersion/go-message/mail"

	"github.com/tianpeijun/email-mcp/message"
	"github.com/tianpeijun/email-mcp/provider"
)

const (
	DefaultLimit  = 10
	DefaultFolder = "INBOX"
)

// SendRequest is the send_email argument set.
type SendRequest struct {
	To          string                `json:"to"`
	Subject     string                `json:"subject"`
	Body        string                `json:"body"`
	From        string                `json:"from,omitempty"`
	HTML        bool                  `json:"html,omitempty"`
	Attachments []provider.Attachment `json:"attachments,omitempty"`
}

// ReadRequest is the read_emails argument set.
type ReadRequest struct {
	Limit      int    `json:"limit,omitempty"`
	Folder     string `json:"folder,omitempty"`
	UnreadOnly bool   `json:"unreadOnly,omitempty"`
	Account    string `json:"account,omitempty"`
}

// SearchRequest is the search_emails argument set.
type SearchRequest struct {
	Query   string `json:"query"`
	Limit   int    `json:"limit,omitempty"`
	Folder  string `json:"folder,omitempty"`
	Account string `json:"account,omitempty"`
}

// DeleteRequest is the delete_email argument set.
type DeleteRequest struct {
	MessageID string `json:"messageId"`
	Folder    string `json:"folder,omitempty"`
	Account   string `json:"account,omitempty"`
}

// ReplyRequest is the reply_email argument set.
type ReplyRequest struct {
	MessageID string `json:"messageId"`
	Body      string `json:"body"`
	ReplyAll  bool   `json:"replyAll,omitempty"`
	HTML      bool   `json:"html,omitempty"`
	Folder    string `json:"folder,omitempty"`
	Account   string `json:"account,omitempty"`
}

func defaultLimit(limit int) (int, error) {
	if limit < 0 {
		return 0, invalid("limit must be a positive integer, got %d", limit)
	}
	if limit == 0 {
		return DefaultLimit, nil
	}
	return limit, nil
}

func defaultFolder(folder string) string {
	if folder = strings.TrimSpace(folder); folder == "" {
		return DefaultFolder
	}
	return folder
}

func (r SendRequest) validate() ([]string, error) {
	to := strings.TrimSpace(r.To)
	if to == "" {
		return nil, invalid("to is required")
	}
	list, err := mail.ParseAddressList(to)
	if err != nil || len(list) == 0 {
		return nil, invalid("to %q is not a valid email address", r.To)
	}
	// from may also name an account
	if from := strings.TrimSpace(r.From); strings.Contains(from, "@") {
		if _, err := mail.ParseAddress(from); err != nil {
			return nil, invalid("from %q is not a valid email address", r.From)
		}
	}
	if strings.TrimSpace(r.Subject) == "" {
		return nil, invalid("subject is required")
	}
	if r.Body == "" {
		return nil, invalid("body is required")
	}
	for _, att := range r.Attachments {
		if strings.TrimSpace(att.Filename) == "" {
			return nil, invalid("attachment filename is required")
		}
		if att.Path == "" && att.Content == "" {
			return nil, invalid("attachment %q needs a path or content", att.Filename)
		}
	}

	out := make([]string, 0, len(list))
	for _, addr := range list {
		out = append(out, addr.Address)
	}
	return out, nil
}

func (r ReadRequest) withDefaults() (ReadRequest, error) {
	limit, err := defaultLimit(r.Limit)
	if err != nil {
		return r, err
	}
	r.Limit = limit
	r.Folder = defaultFolder(r.Folder)
	return r, nil
}

func (r SearchRequest) withDefaults() (SearchRequest, error) {
	if strings.TrimSpace(r.Query) == "" {
		return r, invalid("query is required")
	}
	limit, err := defaultLimit(r.Limit)
	if err != nil {
		return r, err
	}
	r.Limit = limit
	r.Folder = defaultFolder(r.Folder)
	return r, nil
}

func (r DeleteRequest) withDefaults() (DeleteRequest, error) {
	if strings.TrimSpace(r.MessageID) == "" {
		return r, invalid("messageId is required")
	}
	r.Folder = defaultFolder(r.Folder)
	return r, nil
}

func (r ReplyRequest) withDefaults() (ReplyRequest, error) {
	if strings.TrimSpace(r.MessageID) == "" {
		return r, invalid("messageId is required")
	}
	if r.Body == "" {
		return r, invalid("body is required")
	}
	r.Folder = defaultFolder(r.Folder)
	return r, nil
}

// AccountSummary describes a configured account without exposing credentials.
type AccountSummary struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	SMTP    string `json:"smtp,omitempty"`
	IMAP    string `json:"imap,omitempty"`
	Default bool   `json:"default,omitempty"`
}

// AccountsResult is the list_accounts result.
type AccountsResult struct {
	Provider string           `json:"provider"`
	Accounts []AccountSummary `json:"accounts"`
}

// SendResult is the send_email result.
type SendResult struct {
	Provider    string   `json:"provider"`
	Account     string   `json:"account"`
	From        string   `json:"from"`
	To          []string `json:"to"`
	Subject     string   `json:"subject"`
	MessageID   string   `json:"messageId"`
	HTML        bool     `json:"html"`
	Attachments int      `json:"attachments,omitempty"`
}

// MessagesResult is the read_emails and search_emails result.
type MessagesResult struct {
	Account    string            `json:"account"`
	Folder     string            `json:"folder"`
	Query      string            `json:"query,omitempty"`
	UnreadOnly bool              `json:"unreadOnly,omitempty"`
	Messages   []message.Message `json:"messages"`
	// VolatileIDs is set when ids are positions that shift after deletions.
	VolatileIDs bool `json:"volatileIds,omitempty"`
}

// DeleteResult is the delete_email result.
type DeleteResult struct {
	Provider  string `json:"provider"`
	Account   string `json:"account"`
	MessageID string `json:"messageId"`
}

// ReplyResult is the reply_email result.
type ReplyResult struct {
	Provider  string   `json:"provider"`
	Account   string   `json:"account"`
	To        []string `json:"to"`
	Subject   string   `json:"subject"`
	MessageID string   `json:"messageId"`
	ReplyAll  bool     `json:"replyAll"`
	HTML      bool     `json:"html"`
}
