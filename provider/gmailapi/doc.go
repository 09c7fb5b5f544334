// Package gmailapi implements provider.Provider on the Gmail REST API.
//
// Authentication uses an OAuth2 client id and secret with a long-lived
// refresh token; bearer tokens are minted and refreshed by the token source.
//
// Message ids are Gmail's stable ids. Retrieval pages through messages.list
// until the limit is reached and hydrates each id with messages.get, fanning
// out on a bounded errgroup while keeping the listed order. Search hands the
// query to Gmail unchanged (plus in:<folder> outside INBOX), so callers must
// not filter the results again.
//
// Bodies prefer text/plain over text/html and are cut to
// message.BodyPreviewLen characters with a trailing "..." when cut. Unread
// state is the UNREAD label.
package gmailapi
