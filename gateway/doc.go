// Package gateway coordinates the email operations on top of one provider.
//
// A Service owns an account registry and a provider.Provider. Each operation
// fills request defaults, validates arguments before any network call,
// resolves the account, checks its configuration and then calls the
// provider once:
//
//   - ListAccounts summarizes accounts with masked addresses.
//   - Send submits a message from the account chosen by SendRequest.From.
//   - Read and Search return messages newest first, at most Limit of them.
//   - Delete removes one message by id.
//   - Reply fetches the original, derives recipients, subject and threading
//     headers, and sends the answer from the same account.
//
// Providers return messages oldest first; TakeRecent keeps the tail and
// reverses it. Search results are filtered with MatchQuery only when the
// provider has no server-side search.
//
// Call is the boundary used by the tool server and the CLI. It decodes JSON
// arguments, recovers panics and turns every error into an Outcome with a
// Failure kind, so callers never see a crash or a silent empty result.
//
// Composition examples:
//
//	res, err := svc.Read(ctx, gateway.ReadRequest{UnreadOnly: true, Account: "work"})
//	if err != nil {
//		return err
//	}
//	for _, m := range res.Messages {
//		_, err := svc.Reply(ctx, gateway.ReplyRequest{
//			MessageID: m.ID,
//			Body:      "Thanks, on it.",
//			Account:   "work",
//		})
//		if err != nil {
//			return err
//		}
//	}
//
// Positional ids (VolatileIDs) shift after a delete; read again before
// deleting a second message.
package gateway
