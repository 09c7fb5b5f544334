// Package account holds the configured mailbox identities and resolves which
// one an operation runs against.
//
// A Registry is built once from a configuration snapshot and never changes
// afterwards. Resolution is a pure function of the hint and that snapshot:
//
//   - a hint equal to an account name (case-insensitive) selects that account;
//   - a hint containing "@" is routed by exact address, then by domain, then to
//     the default account;
//   - an empty hint selects the default account;
//   - any other hint is ErrAccountNotFound.
//
// When no named accounts are configured the registry runs in legacy mode and
// every hint resolves to the single flat account.
//
// Example:
//
//	reg, err := account.NewRegistry([]account.Account{
//		{Name: "qq", Address: "me@qq.com", SMTP: qqSMTP, IMAP: qqIMAP},
//		{Name: "163", Address: "me@163.com", SMTP: smtp163, IMAP: imap163},
//	}, "qq", nil)
//	if err != nil { /* handle */ }
//
//	acct, err := reg.Resolve("someone@163.com") // -> "163"
package account
