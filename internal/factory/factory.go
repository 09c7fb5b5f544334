package factory

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tianpeijun/email-mcp/gateway"
	"github.com/tianpeijun/email-mcp/internal/config"
	"github.com/tianpeijun/email-mcp/provider"
	"github.com/tianpeijun/email-mcp/provider/gmailapi"
	"github.com/tianpeijun/email-mcp/provider/session"
)

// Provider constructs the configured provider backend.
func Provider(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (provider.Provider, error) {
	switch cfg.Provider {
	case "smtp", "":
		p := session.New(session.Options{
			IDHosts:            cfg.Session.IDHosts,
			DialTimeout:        cfg.Session.DialTimeout,
			CommandTimeout:     cfg.Session.CommandTimeout,
			InsecureSkipVerify: cfg.Session.InsecureSkipVerify,
			ParseConcurrency:   cfg.Session.ParseConcurrency,
			ScanLimit:          cfg.Session.ScanLimit,
		}, logger)
		logger.Info().
			Str("backend", "smtp").
			Msg("email provider initialised")
		return p, nil
	case "gmail":
		p, err := gmailapi.New(ctx, gmailapi.Credentials{
			ClientID:     cfg.Gmail.ClientID,
			ClientSecret: cfg.Gmail.ClientSecret,
			RefreshToken: cfg.Gmail.RefreshToken,
			AccessToken:  cfg.Gmail.AccessToken,
		}, gmailapi.Options{PageSize: cfg.Gmail.PageSize}, logger)
		if err != nil {
			return nil, fmt.Errorf("factory: gmail provider init: %w", err)
		}
		logger.Info().
			Str("backend", "gmail").
			Msg("email provider initialised")
		return p, nil
	default:
		return nil, fmt.Errorf("factory: unsupported email provider backend %q", cfg.Provider)
	}
}

// Service wires the registry and provider into a gateway.
func Service(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*gateway.Service, error) {
	registry, err := cfg.Registry()
	if err != nil {
		return nil, err
	}
	p, err := Provider(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	logger.Debug().
		Int("accounts", registry.Len()).
		Bool("legacy", registry.IsLegacy()).
		Msg("account registry loaded")
	return gateway.New(registry, p, gateway.Options{DefaultFrom: cfg.DefaultFrom}, logger), nil
}
