package gateway_test

import (
	"context"
	"fmt"
	"strings"

	"github.com/tianpeijun/email-mcp/gateway"
	"github.com/tianpeijun/email-mcp/message"
)

func composeAcknowledgeUnreadFromDomain(ctx context.Context, svc *gateway.Service, domain string, dryRun bool) ([]string, error) {
	read, err := svc.Read(ctx, gateway.ReadRequest{UnreadOnly: true, Limit: 50})
	if err != nil {
		return nil, err
	}

	var answered []string
	for _, m := range read.Messages {
		if !strings.HasSuffix(strings.ToLower(strings.TrimRight(m.From, ">")), "@"+domain) {
			continue
		}
		answered = append(answered, m.ID)
		if dryRun {
			continue
		}
		if _, err := svc.Reply(ctx, gateway.ReplyRequest{
			MessageID: m.ID,
			Body:      "Received, thank you.",
			Account:   read.Account,
		}); err != nil {
			return answered, err
		}
	}
	return answered, nil
}

func composeDeleteOldestMatch(ctx context.Context, svc *gateway.Service, query string) (string, error) {
	found, err := svc.Search(ctx, gateway.SearchRequest{Query: query, Limit: 100})
	if err != nil {
		return "", err
	}
	if len(found.Messages) == 0 {
		return "", nil
	}

	// results are newest first
	oldest := found.Messages[len(found.Messages)-1]
	if _, err := svc.Delete(ctx, gateway.DeleteRequest{MessageID: oldest.ID, Folder: found.Folder}); err != nil {
		return "", err
	}
	return oldest.Subject, nil
}

func composeDigestToSelf(ctx context.Context, svc *gateway.Service, accountName string) (gateway.SendResult, error) {
	accounts, err := svc.ListAccounts(ctx)
	if err != nil {
		return gateway.SendResult{}, err
	}

	var self string
	for _, a := range accounts.Accounts {
		if a.Name == accountName {
			self = a.Name
		}
	}
	if self == "" {
		return gateway.SendResult{}, fmt.Errorf("no account %q", accountName)
	}

	read, err := svc.Read(ctx, gateway.ReadRequest{Account: self, Limit: 20})
	if err != nil {
		return gateway.SendResult{}, err
	}

	return svc.Send(ctx, gateway.SendRequest{
		To:      "me@example.com",
		From:    self,
		Subject: fmt.Sprintf("Digest: %d messages", len(read.Messages)),
		Body:    digestBody(read.Messages),
	})
}

func composeDispatchByName(ctx context.Context, svc *gateway.Service, name string, args []byte) (bool, string) {
	out := svc.Call(ctx, name, args)
	if !out.OK() {
		return false, out.Failure.Kind
	}
	return true, string(out.Operation)
}

func digestBody(msgs []message.Message) string {
	var b strings.Builder
	for i, m := range msgs {
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, m.Subject, m.From)
	}
	return b.String()
}

var (
	_ = composeAcknowledgeUnreadFromDomain
	_ = composeDeleteOldestMatch
	_ = composeDigestToSelf
	_ = composeDispatchByName
)
