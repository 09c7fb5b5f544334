package gmailapi

import (
	"context"
	"encoding/base64"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/tianpeijun/email-mcp/account"
	"github.com/tianpeijun/email-mcp/message"
	"github.com/tianpeijun/email-mcp/provider"
)

const (
	userID                    = "me"
	defaultPageSize           = 100
	defaultHydrateConcurrency = 8
)

// Credentials are the OAuth2 client and refresh token of the mailbox owner.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	// AccessToken seeds the token source; it is refreshed when expired.
	AccessToken string
}

// Options tunes the REST adapter. Zero values select defaults.
type Options struct {
	PageSize           int64
	HydrateConcurrency int
	// ClientOptions are appended to the authenticated defaults, which lets
	// tests point the client at another endpoint.
	ClientOptions []option.ClientOption
}

// Provider talks to the Gmail REST API.
type Provider struct {
	svc    *gmail.Service
	opts   Options
	logger zerolog.Logger
	now    func() time.Time
}

var _ provider.Provider = (*Provider)(nil)

// New builds a Gmail API provider. Missing client id, client secret or
// refresh token is ErrConfigurationMissing.
func New(ctx context.Context, creds Credentials, opts Options, logger zerolog.Logger) (*Provider, error) {
	switch {
	case strings.TrimSpace(creds.ClientID) == "":
		return nil, fmt.Errorf("%w: GMAIL_CLIENT_ID is required", provider.ErrConfigurationMissing)
	case strings.TrimSpace(creds.ClientSecret) == "":
		return nil, fmt.Errorf("%w: GMAIL_CLIENT_SECRET is required", provider.ErrConfigurationMissing)
	case strings.TrimSpace(creds.RefreshToken) == "":
		return nil, fmt.Errorf("%w: GMAIL_REFRESH_TOKEN is required", provider.ErrConfigurationMissing)
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	if opts.HydrateConcurrency <= 0 {
		opts.HydrateConcurrency = defaultHydrateConcurrency
	}

	cfg := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gmail.MailGoogleComScope},
	}
	tokenSource := cfg.TokenSource(ctx, &oauth2.Token{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
	})

	clientOpts := append([]option.ClientOption{option.WithTokenSource(tokenSource)}, opts.ClientOptions...)
	svc, err := gmail.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("gmailapi: creating service failed: %w", err)
	}

	return &Provider{
		svc:    svc,
		opts:   opts,
		logger: logger.With().Str("provider", "gmail").Logger(),
		now:    time.Now,
	}, nil
}

func (p *Provider) Name() string { return "gmail" }

func (p *Provider) Capabilities() provider.Capabilities {
	return provider.Capabilities{StableIDs: true, ServerSideSearch: true}
}

// Send submits a base64url-encoded RFC 822 message. Replies carry ThreadID so
// Gmail keeps them in the conversation.
func (p *Provider) Send(ctx context.Context, acct account.Account, out provider.Outgoing) (provider.SendReceipt, error) {
	from := strings.TrimSpace(out.From)
	if from == "" {
		from = acct.Address
	}
	messageID := provider.NewMessageID(provider.BareAddress(from))
	raw, err := provider.Compose(from, out, messageID, p.now())
	if err != nil {
		return provider.SendReceipt{}, err
	}

	msg := &gmail.Message{
		Raw:      base64.URLEncoding.EncodeToString(raw),
		ThreadId: out.ThreadID,
	}
	sent, err := p.svc.Users.Messages.Send(userID, msg).Context(ctx).Do()
	if err != nil {
		return provider.SendReceipt{}, provider.Transport(fmt.Errorf("gmailapi: send failed: %w", err))
	}

	p.logger.Info().Str("id", sent.Id).Str("thread", sent.ThreadId).Msg("message submitted")
	return provider.SendReceipt{MessageID: sent.Id, ThreadID: sent.ThreadId, From: from}, nil
}

// List returns up to Limit messages of a folder, oldest first.
func (p *Provider) List(ctx context.Context, acct account.Account, query provider.ListQuery) ([]message.Message, error) {
	var (
		parts  []string
		labels []string
	)
	if isInbox(query.Folder) {
		labels = []string{"INBOX"}
	} else {
		parts = append(parts, "in:"+strings.TrimSpace(query.Folder))
	}
	if query.UnreadOnly {
		parts = append(parts, "is:unread")
	}
	return p.retrieve(ctx, strings.Join(parts, " "), labels, query.Limit)
}

// Search runs the caller's query through Gmail's own search, scoped to a
// folder other than INBOX with in:<folder>.
func (p *Provider) Search(ctx context.Context, acct account.Account, query provider.SearchQuery) ([]message.Message, error) {
	q := strings.TrimSpace(query.Query)
	if !isInbox(query.Folder) {
		q = strings.TrimSpace(q + " in:" + strings.TrimSpace(query.Folder))
	}
	return p.retrieve(ctx, q, nil, query.Limit)
}

func (p *Provider) retrieve(ctx context.Context, q string, labels []string, limit int) ([]message.Message, error) {
	ids, err := p.collectIDs(ctx, q, labels, limit)
	if err != nil {
		return nil, err
	}
	msgs, err := p.hydrate(ctx, ids)
	if err != nil {
		return nil, err
	}
	// Gmail lists newest first.
	slices.Reverse(msgs)

	p.logger.Debug().Str("query", q).Int("listed", len(ids)).Int("parsed", len(msgs)).Msg("retrieved messages")
	return msgs, nil
}

// collectIDs pages through messages.list until limit ids are gathered.
func (p *Provider) collectIDs(ctx context.Context, q string, labels []string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = int(p.opts.PageSize)
	}
	call := p.svc.Users.Messages.List(userID).Context(ctx)
	if q != "" {
		call = call.Q(q)
	}
	if len(labels) > 0 {
		call = call.LabelIds(labels...)
	}

	ids := make([]string, 0, limit)
	for len(ids) < limit {
		call = call.MaxResults(min(p.opts.PageSize, int64(limit-len(ids))))
		resp, err := call.Do()
		if err != nil {
			return nil, provider.Transport(fmt.Errorf("gmailapi: listing messages failed: %w", err))
		}
		for _, m := range resp.Messages {
			if len(ids) == limit {
				break
			}
			ids = append(ids, m.Id)
		}
		if resp.NextPageToken == "" {
			break
		}
		call = call.PageToken(resp.NextPageToken)
	}
	return ids, nil
}

// hydrate fetches full messages concurrently, keeping the listed order.
func (p *Provider) hydrate(ctx context.Context, ids []string) ([]message.Message, error) {
	parsed := make([]*message.Message, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.HydrateConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			full, err := p.svc.Users.Messages.Get(userID, id).Format("full").Context(gctx).Do()
			if err != nil {
				return provider.Transport(fmt.Errorf("gmailapi: getting message %s failed: %w", id, err))
			}
			msg, err := toMessage(full)
			if err != nil {
				p.logger.Warn().Err(err).Str("id", id).Msg("skipping unparsable message")
				return nil
			}
			parsed[i] = &msg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]message.Message, 0, len(parsed))
	for _, msg := range parsed {
		if msg != nil {
			out = append(out, *msg)
		}
	}
	return out, nil
}

// Delete permanently removes a message. An id Gmail does not know surfaces as
// the API's error.
func (p *Provider) Delete(ctx context.Context, acct account.Account, target provider.Target) error {
	id := strings.TrimSpace(target.ID)
	if id == "" {
		return provider.InvalidID(id, "is empty")
	}
	if err := p.svc.Users.Messages.Delete(userID, id).Context(ctx).Do(); err != nil {
		return provider.Transport(fmt.Errorf("gmailapi: deleting message %s failed: %w", id, err))
	}
	p.logger.Info().Str("id", id).Msg("message deleted")
	return nil
}

// FetchForReply loads the reply headers and thread of a message.
func (p *Provider) FetchForReply(ctx context.Context, acct account.Account, target provider.Target) (message.ReplyContext, error) {
	id := strings.TrimSpace(target.ID)
	if id == "" {
		return message.ReplyContext{}, provider.InvalidID(id, "is empty")
	}
	msg, err := p.svc.Users.Messages.Get(userID, id).
		Format("metadata").
		MetadataHeaders("From", "To", "Cc", "Subject", "Message-ID", "References").
		Context(ctx).
		Do()
	if err != nil {
		return message.ReplyContext{}, provider.Transport(fmt.Errorf("gmailapi: getting message %s failed: %w", id, err))
	}
	return toReplyContext(msg)
}

func isInbox(folder string) bool {
	folder = strings.TrimSpace(folder)
	return folder == "" || strings.EqualFold(folder, "INBOX")
}
