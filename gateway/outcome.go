package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/tianpeijun/email-mcp/provider"
)

// Failure kinds reported to the caller.
const (
	KindConfigurationMissing = "configuration_missing"
	KindAccountNotFound      = "account_not_found"
	KindInvalidID            = "invalid_id"
	KindInvalidRequest       = "invalid_request"
	KindTransport            = "transport"
	KindParse                = "parse"
	KindUnknownOperation     = "unknown_operation"
	KindInternal             = "internal"
)

// Failure is a classified operation error.
type Failure struct {
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

func (f *Failure) Error() string {
	return f.Kind + ": " + f.Reason
}

// Outcome is the result of one dispatched operation. Exactly one of Payload
// and Failure is set.
type Outcome struct {
	Operation Operation `json:"operation"`
	Payload   any       `json:"payload,omitempty"`
	Failure   *Failure  `json:"failure,omitempty"`
}

// OK reports whether the operation succeeded.
func (o Outcome) OK() bool {
	return o.Failure == nil
}

// Kind classifies err into one of the failure kinds.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnknownOperation):
		return KindUnknownOperation
	case errors.Is(err, ErrInvalidRequest):
		return KindInvalidRequest
	case errors.Is(err, provider.ErrConfigurationMissing):
		return KindConfigurationMissing
	case errors.Is(err, provider.ErrAccountNotFound):
		return KindAccountNotFound
	case errors.Is(err, provider.ErrInvalidID):
		return KindInvalidID
	case errors.Is(err, provider.ErrParse):
		return KindParse
	case errors.Is(err, provider.ErrTransport):
		return KindTransport
	default:
		return KindInternal
	}
}

// Fail builds an Outcome for err.
func Fail(op Operation, err error) Outcome {
	return Outcome{
		Operation: op,
		Failure:   &Failure{Kind: Kind(err), Reason: err.Error()},
	}
}

// Call decodes args for the named operation, runs it and classifies the
// result. It never panics.
func (s *Service) Call(ctx context.Context, name string, args json.RawMessage) (out Outcome) {
	op, err := ParseOperation(name)
	if err != nil {
		return Fail(Operation(name), err)
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("op", string(op)).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("operation panicked")
			out = Fail(op, fmt.Errorf("operation %s panicked: %v", op, r))
		}
	}()

	payload, err := s.dispatch(ctx, op, args)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("op", string(op)).
			Str("kind", Kind(err)).
			Msg("operation failed")
		return Fail(op, err)
	}
	return Outcome{Operation: op, Payload: payload}
}

func (s *Service) dispatch(ctx context.Context, op Operation, args json.RawMessage) (any, error) {
	switch op {
	case OpListAccounts:
		return s.ListAccounts(ctx)
	case OpSendEmail:
		var req SendRequest
		if err := decode(args, &req); err != nil {
			return nil, err
		}
		return s.Send(ctx, req)
	case OpReadEmails:
		var req ReadRequest
		if err := decode(args, &req); err != nil {
			return nil, err
		}
		return s.Read(ctx, req)
	case OpSearchEmails:
		var req SearchRequest
		if err := decode(args, &req); err != nil {
			return nil, err
		}
		return s.Search(ctx, req)
	case OpDeleteEmail:
		var req DeleteRequest
		if err := decode(args, &req); err != nil {
			return nil, err
		}
		return s.Delete(ctx, req)
	case OpReplyEmail:
		var req ReplyRequest
		if err := decode(args, &req); err != nil {
			return nil, err
		}
		return s.Reply(ctx, req)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, op)
}

// decode accepts empty or null args as an empty request.
func decode(args json.RawMessage, v any) error {
	trimmed := bytes.TrimSpace(args)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return fmt.Errorf("%w: decoding arguments: %v", ErrInvalidRequest, err)
	}
	return nil
}
