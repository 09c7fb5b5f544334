package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"

	"github.com/tianpeijun/email-mcp/account"
)

// KeyringService is the OS keyring service holding account passwords, keyed
// by login name.
const KeyringService = "email-mcp"

// NamedAccounts returns the file accounts followed by every enabled preset
// whose name is not already taken.
func (c *Config) NamedAccounts() []account.Account {
	out := make([]account.Account, 0, len(c.Accounts)+len(presetNames))
	taken := map[string]bool{}
	for _, a := range c.Accounts {
		taken[strings.ToLower(strings.TrimSpace(a.Name))] = true
		out = append(out, account.Account{
			Name:    strings.TrimSpace(a.Name),
			Address: strings.TrimSpace(a.Address),
			Domains: a.Domains,
			SMTP:    a.SMTP.endpoint(),
			IMAP:    a.IMAP.endpoint(),
		})
	}

	for _, name := range presetNames {
		p, ok := c.Presets[name]
		if !ok || taken[name] || p.User == "" || p.Pass == "" {
			continue
		}
		out = append(out, account.Account{
			Name:    name,
			Address: p.User,
			SMTP: account.Endpoint{
				Host:     p.SMTPHost,
				Port:     p.SMTPPort,
				Secure:   p.SMTPSecure,
				Username: p.User,
				Password: p.Pass,
			},
			IMAP: account.Endpoint{
				Host:       p.IMAPHost,
				Port:       p.IMAPPort,
				Secure:     p.IMAPSecure,
				Username:   p.User,
				Password:   p.Pass,
				RequiresID: p.RequiresID,
			},
		})
	}
	return out
}

// LegacyAccount returns the flat single account, or nil when SMTP_USER is
// unset. IMAP credentials fall back to the SMTP ones.
func (c *Config) LegacyAccount() *account.Account {
	if strings.TrimSpace(c.SMTP.User) == "" {
		return nil
	}
	imap := c.IMAP
	if imap.User == "" {
		imap.User = c.SMTP.User
	}
	if imap.Pass == "" {
		imap.Pass = c.SMTP.Pass
	}
	address := strings.TrimSpace(c.DefaultFrom)
	if address == "" {
		address = c.SMTP.User
	}
	return &account.Account{
		Name:    account.LegacyName,
		Address: address,
		SMTP:    c.SMTP.endpoint(),
		IMAP:    imap.endpoint(),
	}
}

// Registry builds the account registry for the configured provider. The
// Gmail backend authenticates with OAuth and has a single synthetic account.
func (c *Config) Registry() (*account.Registry, error) {
	if c.Provider == "gmail" {
		return account.NewRegistry(nil, "", &account.Account{
			Name:    "gmail",
			Address: strings.TrimSpace(c.DefaultFrom),
		})
	}

	accounts := c.NamedAccounts()
	if c.Keyring {
		if err := fillFromKeyring(accounts); err != nil {
			return nil, err
		}
	}
	legacy := c.LegacyAccount()
	if legacy != nil && c.Keyring {
		one := []account.Account{*legacy}
		if err := fillFromKeyring(one); err != nil {
			return nil, err
		}
		legacy = &one[0]
	}
	return account.NewRegistry(accounts, c.DefaultAccount, legacy)
}

// fillFromKeyring fills empty passwords from the OS keyring.
func fillFromKeyring(accounts []account.Account) error {
	for i := range accounts {
		for _, ep := range []*account.Endpoint{&accounts[i].SMTP, &accounts[i].IMAP} {
			if ep.Password != "" || ep.Username == "" {
				continue
			}
			secret, err := keyring.Get(KeyringService, ep.Username)
			if errors.Is(err, keyring.ErrNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("config: reading keyring for %s: %w", ep.Username, err)
			}
			ep.Password = secret
		}
	}
	return nil
}

func (e EndpointConfig) endpoint() account.Endpoint {
	secure := e.Port == 465 || e.Port == 993
	if e.Secure != nil {
		secure = *e.Secure
	}
	return account.Endpoint{
		Host:       strings.TrimSpace(e.Host),
		Port:       e.Port,
		Secure:     secure,
		Username:   strings.TrimSpace(e.User),
		Password:   e.Pass,
		RequiresID: e.RequiresID,
	}
}
