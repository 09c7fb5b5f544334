package session

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strings"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"github.com/tianpeijun/email-mcp/account"
	"github.com/tianpeijun/email-mcp/provider"
)

// Send submits out over the account's SMTP endpoint in a one-shot session.
func (p *Provider) Send(ctx context.Context, acct account.Account, out provider.Outgoing) (provider.SendReceipt, error) {
	if err := acct.Validate(true, false); err != nil {
		return provider.SendReceipt{}, err
	}

	from := strings.TrimSpace(out.From)
	if from == "" {
		from = acct.Address
	}
	envelopeFrom := provider.BareAddress(from)
	if envelopeFrom == "" {
		envelopeFrom = acct.SMTP.Username
	}

	recipients := provider.UniqueRecipients(bareAll(out.To), bareAll(out.Cc))
	if len(recipients) == 0 {
		return provider.SendReceipt{}, fmt.Errorf("session: at least one recipient is required")
	}

	messageID := provider.NewMessageID(envelopeFrom)
	raw, err := provider.Compose(from, out, messageID, p.now())
	if err != nil {
		return provider.SendReceipt{}, err
	}

	smtpClient, err := p.connectSMTP(ctx, acct.SMTP)
	if err != nil {
		return provider.SendReceipt{}, err
	}
	defer smtpClient.Close()
	stop := context.AfterFunc(ctx, func() { smtpClient.Close() })
	defer stop()

	if err := smtpClient.Mail(envelopeFrom, nil); err != nil {
		return provider.SendReceipt{}, provider.Transport(fmt.Errorf("session: MAIL FROM failed: %w", err))
	}
	for _, rcpt := range recipients {
		if err := smtpClient.Rcpt(rcpt, nil); err != nil {
			return provider.SendReceipt{}, provider.Transport(fmt.Errorf("session: RCPT TO %q failed: %w", rcpt, err))
		}
	}

	writer, err := smtpClient.Data()
	if err != nil {
		return provider.SendReceipt{}, provider.Transport(fmt.Errorf("session: DATA failed: %w", err))
	}
	if _, err := writer.Write(raw); err != nil {
		return provider.SendReceipt{}, provider.Transport(fmt.Errorf("session: writing message failed: %w", err))
	}
	if err := writer.Close(); err != nil {
		return provider.SendReceipt{}, provider.Transport(fmt.Errorf("session: finalizing message failed: %w", err))
	}
	if err := smtpClient.Quit(); err != nil {
		return provider.SendReceipt{}, provider.Transport(fmt.Errorf("session: QUIT failed: %w", err))
	}

	p.logger.Info().
		Str("account", acct.Name).
		Int("recipients", len(recipients)).
		Str("message_id", messageID).
		Msg("message submitted")
	return provider.SendReceipt{MessageID: messageID, From: from}, nil
}

// connectSMTP dials with implicit TLS when Secure is set and upgrades with
// STARTTLS otherwise when the server offers it.
func (p *Provider) connectSMTP(ctx context.Context, ep account.Endpoint) (*smtp.Client, error) {
	dialer := &net.Dialer{Timeout: p.opts.DialTimeout}

	var (
		conn net.Conn
		err  error
	)
	if ep.Secure {
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: p.tlsConfig(ep.Host)}
		conn, err = tlsDialer.DialContext(ctx, "tcp", ep.Addr())
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", ep.Addr())
	}
	if err != nil {
		return nil, provider.Transport(fmt.Errorf("session: SMTP dial %s failed: %w", ep.Addr(), err))
	}

	smtpClient := smtp.NewClient(conn)
	if !ep.Secure {
		if ok, _ := smtpClient.Extension("STARTTLS"); ok {
			if err := smtpClient.StartTLS(p.tlsConfig(ep.Host)); err != nil {
				smtpClient.Close()
				return nil, provider.Transport(fmt.Errorf("session: SMTP STARTTLS failed: %w", err))
			}
		}
	}

	if ok, _ := smtpClient.Extension("AUTH"); ok {
		auth := sasl.NewPlainClient("", ep.Username, ep.Password)
		if err := smtpClient.Auth(auth); err != nil {
			smtpClient.Close()
			return nil, provider.Transport(fmt.Errorf("session: SMTP auth failed: %w", err))
		}
	}

	return smtpClient, nil
}

func bareAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if addr := provider.BareAddress(v); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}
