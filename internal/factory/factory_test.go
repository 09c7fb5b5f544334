package factory

import (
	"context"
	"testing"

	"github.com/nalgeon/be"
	"github.com/rs/zerolog"

	"github.com/tianpeijun/email-mcp/internal/config"
	"github.com/tianpeijun/email-mcp/provider"
)

func TestProviderSMTP(t *testing.T) {
	p, err := Provider(context.Background(), &config.Config{Provider: "smtp"}, zerolog.Nop())
	be.Err(t, err, nil)
	be.Equal(t, p.Name(), "smtp")
	be.True(t, !p.Capabilities().StableIDs)
}

func TestProviderGmailNeedsCredentials(t *testing.T) {
	_, err := Provider(context.Background(), &config.Config{Provider: "gmail"}, zerolog.Nop())
	be.Err(t, err, provider.ErrConfigurationMissing)

	p, err := Provider(context.Background(), &config.Config{
		Provider: "gmail",
		Gmail:    config.GmailConfig{ClientID: "id", ClientSecret: "secret", RefreshToken: "refresh"},
	}, zerolog.Nop())
	be.Err(t, err, nil)
	be.Equal(t, p.Name(), "gmail")
}

func TestProviderUnknown(t *testing.T) {
	_, err := Provider(context.Background(), &config.Config{Provider: "pigeon"}, zerolog.Nop())
	be.True(t, err != nil)
}

func TestService(t *testing.T) {
	cfg := &config.Config{
		Provider: "smtp",
		Accounts: []config.AccountConfig{{
			Name: "work",
			SMTP: config.EndpointConfig{Host: "smtp.example.com", Port: 465, User: "me@example.com", Pass: "x"},
		}},
	}
	svc, err := Service(context.Background(), cfg, zerolog.Nop())
	be.Err(t, err, nil)

	res, err := svc.ListAccounts(context.Background())
	be.Err(t, err, nil)
	be.Equal(t, len(res.Accounts), 1)
	be.Equal(t, res.Accounts[0].Name, "work")
	be.Equal(t, res.Accounts[0].SMTP, "smtp.example.com:465")
}
