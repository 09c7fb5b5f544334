package gateway

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownOperation is returned for an operation name the gateway does not serve.
	ErrUnknownOperation = errors.New("unknown operation")
	// ErrInvalidRequest is returned when arguments fail validation.
	ErrInvalidRequest = errors.New("invalid request")
)

// Operation names one of the gateway's tools.
type Operation string

const (
	OpListAccounts Operation = "list_accounts"
	OpSendEmail    Operation = "send_email"
	OpReadEmails   Operation = "read_emails"
	OpSearchEmails Operation = "search_emails"
	OpDeleteEmail  Operation = "delete_email"
	OpReplyEmail   Operation = "reply_email"
)

var operations = []Operation{
	OpListAccounts,
	OpSendEmail,
	OpReadEmails,
	OpSearchEmails,
	OpDeleteEmail,
	OpReplyEmail,
}

// Operations lists every operation in a stable order.
func Operations() []Operation {
	return append([]Operation(nil), operations...)
}

// ParseOperation maps a tool name to an Operation.
func ParseOperation(name string) (Operation, error) {
	name = strings.TrimSpace(name)
	for _, op := range operations {
		if string(op) == name {
			return op, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownOperation, name)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}
