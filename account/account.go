package account

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

var (
	// ErrAccountNotFound is returned when a hint resolves to no configured account.
	ErrAccountNotFound = errors.New("account not found")
	// ErrConfigurationMissing is returned when a required credential or endpoint is absent.
	ErrConfigurationMissing = errors.New("configuration missing")
)

// LegacyName is the name given to the single account built from flat
// configuration when no named accounts exist.
const LegacyName = "default"

// Endpoint describes one protocol server of an account.
type Endpoint struct {
	Host     string
	Port     int
	Secure   bool
	Username string
	Password string
	// RequiresID forces the IMAP identification handshake for this host.
	RequiresID bool
}

// Addr returns host:port.
func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// Configured reports whether the endpoint has enough to open a session.
func (e Endpoint) Configured() bool {
	return strings.TrimSpace(e.Host) != "" && e.Port > 0 && strings.TrimSpace(e.Username) != "" && e.Password != ""
}

// Account is a named mailbox identity with submission and retrieval endpoints.
type Account struct {
	Name    string
	Address string
	// Domains lists additional address domains routed to this account. The
	// domain of Address is always implied.
	Domains []string
	SMTP    Endpoint
	IMAP    Endpoint
}

// Validate checks the endpoints an operation is about to use.
func (a Account) Validate(needSMTP bool, needIMAP bool) error {
	if needSMTP {
		if err := validateEndpoint(a.Name, "smtp", a.SMTP); err != nil {
			return err
		}
	}
	if needIMAP {
		if err := validateEndpoint(a.Name, "imap", a.IMAP); err != nil {
			return err
		}
	}
	return nil
}

func validateEndpoint(name string, proto string, e Endpoint) error {
	switch {
	case strings.TrimSpace(e.Host) == "":
		return fmt.Errorf("%w: account %q has no %s host", ErrConfigurationMissing, name, proto)
	case e.Port <= 0:
		return fmt.Errorf("%w: account %q has no %s port", ErrConfigurationMissing, name, proto)
	case strings.TrimSpace(e.Username) == "":
		return fmt.Errorf("%w: account %q has no %s user", ErrConfigurationMissing, name, proto)
	case e.Password == "":
		return fmt.Errorf("%w: account %q has no %s password", ErrConfigurationMissing, name, proto)
	}
	return nil
}

// Mask hides most of the local part of an address, keeping the domain.
func Mask(address string) string {
	address = strings.TrimSpace(address)
	at := strings.LastIndex(address, "@")
	if at < 0 {
		if address == "" {
			return ""
		}
		return maskLocal(address)
	}
	return maskLocal(address[:at]) + address[at:]
}

func maskLocal(local string) string {
	runes := []rune(local)
	keep := 2
	if len(runes) <= keep {
		keep = 1
	}
	if len(runes) == 0 {
		return "***"
	}
	return string(runes[:keep]) + "***"
}

func domainOf(address string) string {
	at := strings.LastIndex(address, "@")
	if at < 0 || at == len(address)-1 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(address[at+1:]))
}
