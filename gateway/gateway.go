package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/rs/zerolog"

	"github.com/tianpeijun/email-mcp/account"
	"github.com/tianpeijun/email-mcp/provider"
)

// Options tune the Service.
type Options struct {
	// DefaultFrom is the sender used when the resolved account has no address.
	DefaultFrom string
}

// Service coordinates the six operations over one provider and a registry
// of accounts.
type Service struct {
	registry *account.Registry
	provider provider.Provider
	opts     Options
	logger   zerolog.Logger
}

// New returns a Service. It holds the registry and provider by reference and
// never reads the environment.
func New(registry *account.Registry, p provider.Provider, opts Options, logger zerolog.Logger) *Service {
	return &Service{
		registry: registry,
		provider: p,
		opts:     opts,
		logger:   logger.With().Str("component", "gateway").Str("provider", p.Name()).Logger(),
	}
}

// ListAccounts summarizes the configured accounts with masked addresses.
func (s *Service) ListAccounts(ctx context.Context) (AccountsResult, error) {
	res := AccountsResult{Provider: s.provider.Name()}
	for _, acct := range s.registry.Accounts() {
		summary := AccountSummary{
			Name:    acct.Name,
			Address: account.Mask(acct.Address),
			Default: s.registry.IsDefault(acct.Name),
		}
		if acct.SMTP.Configured() {
			summary.SMTP = acct.SMTP.Addr()
		}
		if acct.IMAP.Configured() {
			summary.IMAP = acct.IMAP.Addr()
		}
		res.Accounts = append(res.Accounts, summary)
	}
	return res, nil
}

// Send submits a new message. The account is chosen by From, falling back to
// the default account.
func (s *Service) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	to, err := req.validate()
	if err != nil {
		return SendResult{}, err
	}
	acct, err := s.resolve(req.From)
	if err != nil {
		return SendResult{}, err
	}
	if err := s.validateAccount(acct, true, false); err != nil {
		return SendResult{}, err
	}

	from := s.sender(acct, req.From)
	start := time.Now()
	receipt, err := s.provider.Send(ctx, acct, provider.Outgoing{
		From:        from,
		To:          to,
		Subject:     req.Subject,
		Body:        req.Body,
		HTML:        req.HTML,
		Attachments: req.Attachments,
	})
	if err != nil {
		return SendResult{}, err
	}
	if receipt.From != "" {
		from = receipt.From
	}
	s.logger.Info().
		Str("op", string(OpSendEmail)).
		Str("account", acct.Name).
		Int("recipients", len(to)).
		Dur("took", time.Since(start)).
		Msg("message sent")

	return SendResult{
		Provider:    s.provider.Name(),
		Account:     acct.Name,
		From:        from,
		To:          to,
		Subject:     req.Subject,
		MessageID:   receipt.MessageID,
		HTML:        req.HTML,
		Attachments: len(req.Attachments),
	}, nil
}

// Read returns the most recent messages of a folder, newest first.
func (s *Service) Read(ctx context.Context, req ReadRequest) (MessagesResult, error) {
	req, err := req.withDefaults()
	if err != nil {
		return MessagesResult{}, err
	}
	acct, err := s.resolve(req.Account)
	if err != nil {
		return MessagesResult{}, err
	}
	if err := s.validateAccount(acct, false, true); err != nil {
		return MessagesResult{}, err
	}

	start := time.Now()
	msgs, err := s.provider.List(ctx, acct, provider.ListQuery{
		Folder:     req.Folder,
		UnreadOnly: req.UnreadOnly,
		Limit:      req.Limit,
	})
	if err != nil {
		return MessagesResult{}, err
	}
	msgs = TakeRecent(msgs, req.Limit)
	s.logger.Debug().
		Str("op", string(OpReadEmails)).
		Str("account", acct.Name).
		Str("folder", req.Folder).
		Int("count", len(msgs)).
		Dur("took", time.Since(start)).
		Msg("messages read")

	return MessagesResult{
		Account:     acct.Name,
		Folder:      req.Folder,
		UnreadOnly:  req.UnreadOnly,
		Messages:    msgs,
		VolatileIDs: !s.provider.Capabilities().StableIDs,
	}, nil
}

// Search returns messages matching req.Query, newest first.
func (s *Service) Search(ctx context.Context, req SearchRequest) (MessagesResult, error) {
	req, err := req.withDefaults()
	if err != nil {
		return MessagesResult{}, err
	}
	acct, err := s.resolve(req.Account)
	if err != nil {
		return MessagesResult{}, err
	}
	if err := s.validateAccount(acct, false, true); err != nil {
		return MessagesResult{}, err
	}

	start := time.Now()
	caps := s.provider.Capabilities()
	msgs, err := s.provider.Search(ctx, acct, provider.SearchQuery{
		Folder: req.Folder,
		Query:  req.Query,
		Limit:  req.Limit,
	})
	if err != nil {
		return MessagesResult{}, err
	}
	scanned := len(msgs)
	if !caps.ServerSideSearch {
		msgs = FilterMessages(msgs, req.Query)
	}
	msgs = TakeRecent(msgs, req.Limit)
	s.logger.Debug().
		Str("op", string(OpSearchEmails)).
		Str("account", acct.Name).
		Str("folder", req.Folder).
		Int("scanned", scanned).
		Int("count", len(msgs)).
		Dur("took", time.Since(start)).
		Msg("messages searched")

	return MessagesResult{
		Account:     acct.Name,
		Folder:      req.Folder,
		Query:       req.Query,
		Messages:    msgs,
		VolatileIDs: !caps.StableIDs,
	}, nil
}

// Delete removes one message.
func (s *Service) Delete(ctx context.Context, req DeleteRequest) (DeleteResult, error) {
	req, err := req.withDefaults()
	if err != nil {
		return DeleteResult{}, err
	}
	acct, err := s.resolve(req.Account)
	if err != nil {
		return DeleteResult{}, err
	}
	if err := s.validateAccount(acct, false, true); err != nil {
		return DeleteResult{}, err
	}

	id := strings.TrimSpace(req.MessageID)
	if err := s.provider.Delete(ctx, acct, provider.Target{Folder: req.Folder, ID: id}); err != nil {
		return DeleteResult{}, err
	}
	s.logger.Info().
		Str("op", string(OpDeleteEmail)).
		Str("account", acct.Name).
		Str("folder", req.Folder).
		Str("id", id).
		Msg("message deleted")

	return DeleteResult{
		Provider:  s.provider.Name(),
		Account:   acct.Name,
		MessageID: id,
	}, nil
}

// Reply answers an existing message, keeping it in its thread.
func (s *Service) Reply(ctx context.Context, req ReplyRequest) (ReplyResult, error) {
	req, err := req.withDefaults()
	if err != nil {
		return ReplyResult{}, err
	}
	acct, err := s.resolve(req.Account)
	if err != nil {
		return ReplyResult{}, err
	}
	if err := s.validateAccount(acct, true, true); err != nil {
		return ReplyResult{}, err
	}

	id := strings.TrimSpace(req.MessageID)
	rc, err := s.provider.FetchForReply(ctx, acct, provider.Target{Folder: req.Folder, ID: id})
	if err != nil {
		return ReplyResult{}, err
	}
	to := ReplyRecipients(rc, req.ReplyAll)
	if len(to) == 0 {
		return ReplyResult{}, fmt.Errorf("%w: message %s has no sender to reply to", provider.ErrParse, id)
	}
	subject := ReplySubject(rc.Subject)

	receipt, err := s.provider.Send(ctx, acct, provider.Outgoing{
		From:       s.sender(acct, ""),
		To:         to,
		Subject:    subject,
		Body:       req.Body,
		HTML:       req.HTML,
		InReplyTo:  rc.MessageID,
		References: ReplyReferences(rc),
		ThreadID:   rc.ThreadID,
	})
	if err != nil {
		return ReplyResult{}, err
	}
	s.logger.Info().
		Str("op", string(OpReplyEmail)).
		Str("account", acct.Name).
		Str("id", id).
		Bool("reply_all", req.ReplyAll).
		Int("recipients", len(to)).
		Msg("reply sent")

	return ReplyResult{
		Provider:  s.provider.Name(),
		Account:   acct.Name,
		To:        to,
		Subject:   subject,
		MessageID: receipt.MessageID,
		ReplyAll:  req.ReplyAll,
		HTML:      req.HTML,
	}, nil
}

func (s *Service) resolve(hint string) (account.Account, error) {
	acct, err := s.registry.Resolve(strings.TrimSpace(hint))
	if err != nil {
		return account.Account{}, err
	}
	return acct, nil
}

// validateAccount checks endpoint settings only for providers that use them.
func (s *Service) validateAccount(acct account.Account, needSMTP bool, needIMAP bool) error {
	if s.provider.Name() != "smtp" {
		return nil
	}
	return acct.Validate(needSMTP, needIMAP)
}

// sender picks the From header. Only a legacy single-account setup honours
// an explicit from that differs from the account's own address.
func (s *Service) sender(acct account.Account, requested string) string {
	requested = strings.TrimSpace(requested)
	if _, err := mail.ParseAddress(requested); err != nil {
		requested = ""
	}
	if requested != "" && s.registry.IsLegacy() {
		return requested
	}
	if acct.Address != "" {
		return acct.Address
	}
	if requested != "" {
		return requested
	}
	return s.opts.DefaultFrom
}
