// Package provider defines the contract every email backend implements and
// the error taxonomy shared across the gateway.
//
// Two variants exist:
//
//   - provider/session: per-call SMTP submission and IMAP retrieval sessions.
//     Identifiers are mailbox sequence numbers and shift after deletions.
//   - provider/gmailapi: the Gmail REST API with OAuth2 refresh tokens.
//     Identifiers are stable and search is done by Gmail's query language.
//
// Callers branch on Capabilities, never on the concrete type.
//
// # Errors
//
// Every failure returned by a provider matches one of the sentinels with
// errors.Is:
//
//   - ErrConfigurationMissing: a credential or endpoint is absent.
//   - ErrAccountNotFound: the hint resolved to no account.
//   - ErrInvalidID: the message id cannot address a message.
//   - ErrTransport: connection, authentication or protocol failure.
//   - ErrParse: a message could not be normalized.
//
// # Composition
//
// Compose renders the minimal RFC 822 message both variants submit: address
// headers, Subject, Date, Message-ID, the reply threading headers, a single
// text or HTML body, and optional attachment parts.
package provider
