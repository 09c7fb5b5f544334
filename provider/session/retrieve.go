package session

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"golang.org/x/sync/errgroup"

	"github.com/tianpeijun/email-mcp/account"
	"github.com/tianpeijun/email-mcp/message"
	"github.com/tianpeijun/email-mcp/provider"
)

type fetchedMessage struct {
	SeqNum uint32
	Flags  []string
	Raw    []byte
}

// List returns the most recent Limit messages of a folder, oldest first.
func (p *Provider) List(ctx context.Context, acct account.Account, query provider.ListQuery) ([]message.Message, error) {
	criteria := imap.NewSearchCriteria()
	if query.UnreadOnly {
		criteria.WithoutFlags = []string{imap.SeenFlag}
	}
	return p.retrieve(ctx, acct, query.Folder, criteria, query.Limit)
}

// Search returns every message of a folder for client-side filtering, oldest
// first. Options.ScanLimit bounds the scan to the most recent messages.
func (p *Provider) Search(ctx context.Context, acct account.Account, query provider.SearchQuery) ([]message.Message, error) {
	return p.retrieve(ctx, acct, query.Folder, imap.NewSearchCriteria(), p.opts.ScanLimit)
}

func (p *Provider) retrieve(ctx context.Context, acct account.Account, folder string, criteria *imap.SearchCriteria, tail int) ([]message.Message, error) {
	if err := acct.Validate(false, true); err != nil {
		return nil, err
	}
	folder = normalizeFolder(folder)

	imapClient, err := p.connectIMAP(ctx, acct)
	if err != nil {
		return nil, err
	}
	defer p.release(imapClient)
	stop := watch(ctx, imapClient)
	defer stop()

	if _, err := imapClient.Select(folder, true); err != nil {
		return nil, provider.Transport(fmt.Errorf("session: selecting mailbox %q failed: %w", folder, err))
	}

	seqNums, err := imapClient.Search(criteria)
	if err != nil {
		return nil, provider.Transport(fmt.Errorf("session: searching mailbox %q failed: %w", folder, err))
	}
	sort.Slice(seqNums, func(i, j int) bool { return seqNums[i] < seqNums[j] })
	if tail > 0 && len(seqNums) > tail {
		seqNums = seqNums[len(seqNums)-tail:]
	}
	if len(seqNums) == 0 {
		return []message.Message{}, nil
	}

	fetched, err := fetchMessagesBySeq(imapClient, seqNums)
	if err != nil {
		return nil, provider.Transport(err)
	}
	out := p.parseAll(acct, fetched)

	p.logger.Debug().
		Str("account", acct.Name).
		Str("folder", folder).
		Int("matched", len(seqNums)).
		Int("parsed", len(out)).
		Msg("retrieved messages")
	return out, nil
}

// parseAll normalizes fetched messages concurrently. Wait is the completion
// barrier: every parse has finished before the result is assembled.
func (p *Provider) parseAll(acct account.Account, fetched []fetchedMessage) []message.Message {
	parsed := make([]*message.Message, len(fetched))

	var g errgroup.Group
	g.SetLimit(p.opts.ParseConcurrency)
	for i, entry := range fetched {
		g.Go(func() error {
			id := strconv.FormatUint(uint64(entry.SeqNum), 10)
			msg, err := message.FromRaw(id, entry.Raw, !hasFlag(entry.Flags, imap.SeenFlag))
			if err != nil {
				p.logger.Warn().Err(err).Str("account", acct.Name).Str("id", id).Msg("skipping unparsable message")
				return nil
			}
			parsed[i] = &msg
			return nil
		})
	}
	_ = g.Wait()

	out := make([]message.Message, 0, len(parsed))
	for _, msg := range parsed {
		if msg != nil {
			out = append(out, *msg)
		}
	}
	return out
}

func fetchMessagesBySeq(imapClient *client.Client, seqNums []uint32) ([]fetchedMessage, error) {
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(seqNums...)

	bodySection := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchFlags, bodySection.FetchItem()}

	messages := make(chan *imap.Message, len(seqNums)+8)
	done := make(chan error, 1)
	go func() {
		done <- imapClient.Fetch(seqSet, items, messages)
	}()

	out := make([]fetchedMessage, 0, len(seqNums))
	var readErr error
	for msg := range messages {
		entry := fetchedMessage{
			SeqNum: msg.SeqNum,
			Flags:  append([]string(nil), msg.Flags...),
		}
		if literal := msg.GetBody(bodySection); literal != nil {
			raw, err := io.ReadAll(literal)
			if err != nil && readErr == nil {
				readErr = fmt.Errorf("session: reading fetched body failed: %w", err)
			}
			entry.Raw = raw
		}
		out = append(out, entry)
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("session: fetching messages failed: %w", err)
	}
	if readErr != nil {
		return nil, readErr
	}

	sort.Slice(out, func(i, j int) bool { return out[i].SeqNum < out[j].SeqNum })
	return out, nil
}

func hasFlag(flags []string, target string) bool {
	for _, flag := range flags {
		if strings.EqualFold(flag, target) {
			return true
		}
	}
	return false
}

func normalizeFolder(folder string) string {
	folder = strings.TrimSpace(folder)
	if folder == "" {
		return "INBOX"
	}
	return folder
}

// parseSeqNum validates a session message id.
func parseSeqNum(id string) (uint32, error) {
	id = strings.TrimSpace(id)
	n, err := strconv.ParseUint(id, 10, 32)
	if err != nil || n == 0 {
		return 0, provider.InvalidID(id, "is not a mailbox sequence number")
	}
	return uint32(n), nil
}
