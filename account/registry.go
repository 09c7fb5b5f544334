package account

import (
	"fmt"
	"strings"

	"github.com/emersion/go-message/mail"
)

// Registry resolves account hints against an immutable configuration snapshot.
// It is safe for concurrent use.
type Registry struct {
	accounts    []Account
	byName      map[string]int
	byAddress   map[string]int
	byDomain    map[string]int
	defaultName string
	legacy      *Account
}

// NewRegistry builds a registry from accounts in configuration order.
//
// defaultName selects the account used when a hint is empty or its domain is
// not routed; an empty defaultName means the first account. legacy, when not
// nil, serves every hint while no named accounts are configured.
func NewRegistry(accounts []Account, defaultName string, legacy *Account) (*Registry, error) {
	r := &Registry{
		accounts:    make([]Account, 0, len(accounts)),
		byName:      make(map[string]int, len(accounts)),
		byAddress:   make(map[string]int, len(accounts)),
		byDomain:    make(map[string]int, len(accounts)),
		defaultName: strings.ToLower(strings.TrimSpace(defaultName)),
	}

	for _, acct := range accounts {
		name := strings.ToLower(strings.TrimSpace(acct.Name))
		if name == "" {
			return nil, fmt.Errorf("account: account with address %q has no name", acct.Address)
		}
		if _, ok := r.byName[name]; ok {
			return nil, fmt.Errorf("account: duplicate account name %q", acct.Name)
		}
		if strings.TrimSpace(acct.Address) == "" {
			acct.Address = acct.SMTP.Username
		}

		idx := len(r.accounts)
		r.accounts = append(r.accounts, acct)
		r.byName[name] = idx

		if addr := strings.ToLower(strings.TrimSpace(acct.Address)); addr != "" {
			if _, ok := r.byAddress[addr]; !ok {
				r.byAddress[addr] = idx
			}
		}

		// First account in configuration order wins a contested domain.
		domains := append([]string{domainOf(acct.Address)}, acct.Domains...)
		for _, domain := range domains {
			domain = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(domain), "@"))
			if domain == "" {
				continue
			}
			if _, ok := r.byDomain[domain]; !ok {
				r.byDomain[domain] = idx
			}
		}
	}

	if legacy != nil {
		l := *legacy
		if strings.TrimSpace(l.Name) == "" {
			l.Name = LegacyName
		}
		if strings.TrimSpace(l.Address) == "" {
			l.Address = l.SMTP.Username
		}
		r.legacy = &l
	}

	return r, nil
}

// Resolve maps a hint (account name, address, or empty) to an account.
//
// A name matches case-insensitively. An address is routed by its exact value,
// then by its domain, then to the default account. An empty hint selects the
// default account.
func (r *Registry) Resolve(hint string) (Account, error) {
	hint = strings.TrimSpace(hint)

	if len(r.accounts) == 0 {
		if r.legacy != nil {
			return *r.legacy, nil
		}
		return Account{}, fmt.Errorf("%w: no email accounts are configured", ErrAccountNotFound)
	}

	if hint == "" {
		return r.Default()
	}

	key := strings.ToLower(hint)
	if idx, ok := r.byName[key]; ok {
		return r.accounts[idx], nil
	}

	if strings.Contains(hint, "@") {
		key = mailbox(key)
		if idx, ok := r.byAddress[key]; ok {
			return r.accounts[idx], nil
		}
		if idx, ok := r.byDomain[domainOf(key)]; ok {
			return r.accounts[idx], nil
		}
		return r.Default()
	}

	return Account{}, fmt.Errorf("%w: %q", ErrAccountNotFound, hint)
}

// Default returns the configured default account.
func (r *Registry) Default() (Account, error) {
	if len(r.accounts) == 0 {
		if r.legacy != nil {
			return *r.legacy, nil
		}
		return Account{}, fmt.Errorf("%w: no email accounts are configured", ErrAccountNotFound)
	}
	if r.defaultName == "" {
		return r.accounts[0], nil
	}
	idx, ok := r.byName[r.defaultName]
	if !ok {
		return Account{}, fmt.Errorf("%w: default account %q is not configured", ErrAccountNotFound, r.defaultName)
	}
	return r.accounts[idx], nil
}

// Accounts returns the named accounts in configuration order. In legacy mode
// the single flat account is returned instead.
func (r *Registry) Accounts() []Account {
	if len(r.accounts) == 0 && r.legacy != nil {
		return []Account{*r.legacy}
	}
	return append([]Account(nil), r.accounts...)
}

// IsDefault reports whether name is the account Default would return.
func (r *Registry) IsDefault(name string) bool {
	def, err := r.Default()
	if err != nil {
		return false
	}
	return strings.EqualFold(def.Name, name)
}

// Len returns the number of named accounts.
func (r *Registry) Len() int {
	return len(r.accounts)
}

// IsLegacy reports whether resolution falls back to the flat account.
func (r *Registry) IsLegacy() bool {
	return len(r.accounts) == 0 && r.legacy != nil
}

// mailbox strips a display name from hint, so "Name <a@b.com>" routes as
// "a@b.com". Unparsable hints are returned unchanged.
func mailbox(hint string) string {
	addr, err := mail.ParseAddress(hint)
	if err != nil {
		return hint
	}
	return strings.ToLower(addr.Address)
}
