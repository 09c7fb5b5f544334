package session

import (
	"context"
	"fmt"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/tianpeijun/email-mcp/account"
	"github.com/tianpeijun/email-mcp/message"
	"github.com/tianpeijun/email-mcp/provider"
)

// Delete flags the message \Deleted and expunges the folder. The id is
// validated before any session is opened, so a malformed id never mutates.
func (p *Provider) Delete(ctx context.Context, acct account.Account, target provider.Target) error {
	seqNum, err := parseSeqNum(target.ID)
	if err != nil {
		return err
	}
	if err := acct.Validate(false, true); err != nil {
		return err
	}
	folder := normalizeFolder(target.Folder)

	imapClient, err := p.connectIMAP(ctx, acct)
	if err != nil {
		return err
	}
	defer p.release(imapClient)
	stop := watch(ctx, imapClient)
	defer stop()

	if err := selectContaining(imapClient, folder, false, seqNum, target.ID); err != nil {
		return err
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(seqNum)
	if err := markDeleted(imapClient, seqSet); err != nil {
		return provider.Transport(err)
	}

	p.logger.Info().Str("account", acct.Name).Str("folder", folder).Uint32("seq", seqNum).Msg("message deleted")
	return nil
}

// FetchForReply loads the headers a reply needs without marking the message seen.
func (p *Provider) FetchForReply(ctx context.Context, acct account.Account, target provider.Target) (message.ReplyContext, error) {
	seqNum, err := parseSeqNum(target.ID)
	if err != nil {
		return message.ReplyContext{}, err
	}
	if err := acct.Validate(false, true); err != nil {
		return message.ReplyContext{}, err
	}
	folder := normalizeFolder(target.Folder)

	imapClient, err := p.connectIMAP(ctx, acct)
	if err != nil {
		return message.ReplyContext{}, err
	}
	defer p.release(imapClient)
	stop := watch(ctx, imapClient)
	defer stop()

	if err := selectContaining(imapClient, folder, true, seqNum, target.ID); err != nil {
		return message.ReplyContext{}, err
	}

	fetched, err := fetchMessagesBySeq(imapClient, []uint32{seqNum})
	if err != nil {
		return message.ReplyContext{}, provider.Transport(err)
	}
	if len(fetched) == 0 || len(fetched[0].Raw) == 0 {
		return message.ReplyContext{}, provider.InvalidID(target.ID, "was not found")
	}
	return message.ReplyFromRaw(fetched[0].Raw)
}

// selectContaining selects folder and checks seqNum addresses a message in it.
func selectContaining(imapClient *client.Client, folder string, readOnly bool, seqNum uint32, id string) error {
	status, err := imapClient.Select(folder, readOnly)
	if err != nil {
		return provider.Transport(fmt.Errorf("session: selecting mailbox %q failed: %w", folder, err))
	}
	if seqNum > status.Messages {
		return provider.InvalidID(id, fmt.Sprintf("is beyond the %d messages in %s", status.Messages, folder))
	}
	return nil
}

func markDeleted(imapClient *client.Client, seqSet *imap.SeqSet) error {
	item := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := imapClient.Store(seqSet, item, []any{imap.DeletedFlag}, nil); err != nil {
		return fmt.Errorf("session: setting \\Deleted failed: %w", err)
	}
	if err := imapClient.Expunge(nil); err != nil {
		return fmt.Errorf("session: expunge failed: %w", err)
	}
	return nil
}
