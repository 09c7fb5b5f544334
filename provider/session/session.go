package session

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/rs/zerolog"

	"github.com/tianpeijun/email-mcp/account"
	"github.com/tianpeijun/email-mcp/provider"
)

const (
	defaultDialTimeout      = 30 * time.Second
	defaultCommandTimeout   = 2 * time.Minute
	defaultParseConcurrency = 8
)

// DefaultIDHosts lists IMAP hosts that refuse mailbox access until the client
// identifies itself with the RFC 2971 ID command.
var DefaultIDHosts = []string{"imap.163.com", "imap.126.com", "imap.yeah.net"}

// ClientID is the identity announced by the ID handshake.
type ClientID struct {
	Name    string
	Version string
	Vendor  string
}

// Options tunes the session adapter. Zero values select defaults.
type Options struct {
	// IDHosts are host names (or parent domains) that need the ID handshake
	// in addition to endpoints flagged with RequiresID.
	IDHosts  []string
	ClientID ClientID

	DialTimeout    time.Duration
	CommandTimeout time.Duration
	// InsecureSkipVerify disables certificate verification. Test servers only.
	InsecureSkipVerify bool

	// ParseConcurrency bounds concurrent per-message parsing.
	ParseConcurrency int
	// ScanLimit bounds how many of the most recent messages a search scans.
	// Zero scans the whole folder.
	ScanLimit int
}

// Provider submits over SMTP and retrieves over IMAP, opening a fresh session
// for every call.
type Provider struct {
	opts   Options
	logger zerolog.Logger
	now    func() time.Time
}

var _ provider.Provider = (*Provider)(nil)

// New returns a session provider.
func New(opts Options, logger zerolog.Logger) *Provider {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = defaultDialTimeout
	}
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = defaultCommandTimeout
	}
	if opts.ParseConcurrency <= 0 {
		opts.ParseConcurrency = defaultParseConcurrency
	}
	if opts.IDHosts == nil {
		opts.IDHosts = DefaultIDHosts
	}
	if opts.ClientID.Name == "" {
		opts.ClientID = ClientID{Name: "email-mcp", Version: "1.0.0", Vendor: "email-mcp-client"}
	}
	return &Provider{
		opts:   opts,
		logger: logger.With().Str("provider", "smtp").Logger(),
		now:    time.Now,
	}
}

func (p *Provider) Name() string { return "smtp" }

func (p *Provider) Capabilities() provider.Capabilities {
	return provider.Capabilities{StableIDs: false, ServerSideSearch: false}
}

func (p *Provider) tlsConfig(host string) *tls.Config {
	return &tls.Config{ServerName: host, InsecureSkipVerify: p.opts.InsecureSkipVerify} //nolint:gosec // opt-in for test servers
}

// connectIMAP opens an authenticated IMAP session. When the host requires it,
// the ID handshake completes before the session is returned.
func (p *Provider) connectIMAP(ctx context.Context, acct account.Account) (*client.Client, error) {
	ep := acct.IMAP
	dialer := &net.Dialer{Timeout: p.opts.DialTimeout}

	var (
		imapClient *client.Client
		err        error
	)
	if ep.Secure {
		imapClient, err = client.DialWithDialerTLS(dialer, ep.Addr(), p.tlsConfig(ep.Host))
	} else {
		imapClient, err = client.DialWithDialer(dialer, ep.Addr())
	}
	if err != nil {
		return nil, provider.Transport(fmt.Errorf("session: IMAP dial %s failed: %w", ep.Addr(), err))
	}
	imapClient.Timeout = p.opts.CommandTimeout

	if err := ctx.Err(); err != nil {
		imapClient.Terminate()
		return nil, provider.Transport(err)
	}

	if !ep.Secure {
		if ok, _ := imapClient.SupportStartTLS(); ok {
			if err := imapClient.StartTLS(p.tlsConfig(ep.Host)); err != nil {
				imapClient.Terminate()
				return nil, provider.Transport(fmt.Errorf("session: IMAP STARTTLS failed: %w", err))
			}
		}
	}

	if err := imapClient.Login(ep.Username, ep.Password); err != nil {
		imapClient.Logout()
		return nil, provider.Transport(fmt.Errorf("session: IMAP login failed: %w", err))
	}

	if p.needsID(ep) {
		if err := p.identify(imapClient, acct); err != nil {
			imapClient.Logout()
			return nil, provider.Transport(err)
		}
	}

	return imapClient, nil
}

// release ends the session on every exit path.
func (p *Provider) release(imapClient *client.Client) {
	if err := imapClient.Logout(); err != nil {
		imapClient.Terminate()
	}
}

// watch terminates the session when ctx is done. go-imap v1 has no context
// support, so this is how blocked commands are interrupted.
func watch(ctx context.Context, imapClient *client.Client) (stop func() bool) {
	return context.AfterFunc(ctx, func() {
		imapClient.Terminate()
	})
}

func (p *Provider) needsID(ep account.Endpoint) bool {
	if ep.RequiresID {
		return true
	}
	host := strings.ToLower(strings.TrimSpace(ep.Host))
	for _, candidate := range p.opts.IDHosts {
		candidate = strings.ToLower(strings.TrimSpace(candidate))
		if candidate == "" {
			continue
		}
		if host == candidate || strings.HasSuffix(host, "."+candidate) {
			return true
		}
	}
	return false
}

func (p *Provider) identify(imapClient *client.Client, acct account.Account) error {
	cmd := &idCommand{Fields: []string{
		"name", p.opts.ClientID.Name,
		"version", p.opts.ClientID.Version,
		"vendor", p.opts.ClientID.Vendor,
		"support-email", acct.IMAP.Username,
	}}
	status, err := imapClient.Execute(cmd, nil)
	if err != nil {
		return fmt.Errorf("session: IMAP ID handshake failed: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("session: IMAP ID handshake rejected: %w", err)
	}
	p.logger.Debug().Str("account", acct.Name).Str("host", acct.IMAP.Host).Msg("identified to IMAP server")
	return nil
}

// idCommand is the RFC 2971 ID command: ID ("key" "value" ...).
type idCommand struct {
	Fields []string
}

func (c *idCommand) Command() *imap.Command {
	params := make([]any, 0, len(c.Fields))
	for _, field := range c.Fields {
		params = append(params, field)
	}
	return &imap.Command{
		Name:      "ID",
		Arguments: []any{params},
	}
}
