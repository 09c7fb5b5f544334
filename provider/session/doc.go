// Package session implements provider.Provider over SMTP submission and IMAP
// retrieval, opening one short-lived session per call.
//
// # Identifiers
//
// Message ids are IMAP sequence numbers of the selected folder. They are only
// valid until the next expunge: deleting message 3 renumbers every later
// message. Capabilities reports StableIDs=false so callers can warn.
//
// # Retrieval
//
// A retrieval selects the folder read-only, searches (ALL or UNSEEN), keeps
// the most recent sequence numbers, and fetches FLAGS plus BODY.PEEK[] so
// reading never marks mail seen. Each fetched message is parsed on a bounded
// worker group and the result is assembled only after every parse finished.
// Unread state comes from the \Seen flag of each message.
//
// Search does not use IMAP SEARCH TEXT; it returns the scanned folder and the
// gateway filters client-side. Options.ScanLimit bounds that scan.
//
// # Identification handshake
//
// Some providers (163.com, 126.com, yeah.net) reject SELECT from clients that
// did not send an RFC 2971 ID command. Hosts listed in Options.IDHosts, or
// endpoints flagged RequiresID, get:
//
//	ID ("name" "email-mcp" "version" "1.0.0" "vendor" "email-mcp-client" "support-email" "<user>")
//
// right after LOGIN. A rejected handshake fails the call as a transport error.
//
// # Deletion
//
// Delete validates the id before connecting, selects the folder read-write,
// stores +FLAGS.SILENT (\Deleted) and expunges.
package session
