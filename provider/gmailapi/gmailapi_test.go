package gmailapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/nalgeon/be"
	"github.com/rs/zerolog"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/tianpeijun/email-mcp/account"
	"github.com/tianpeijun/email-mcp/provider"
)

type fakeGmail struct {
	mu       sync.Mutex
	pages    [][]string
	messages map[string]*gmail.Message
	queries  []string
	labels   []string
	deleted  []string
	sent     []*gmail.Message
}

func encode(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func fixture(id string, subject string, unread bool) *gmail.Message {
	labels := []string{"INBOX"}
	if unread {
		labels = append(labels, "UNREAD")
	}
	return &gmail.Message{
		Id:           id,
		ThreadId:     "t-" + id,
		LabelIds:     labels,
		Snippet:      "snippet " + id,
		InternalDate: 1700000000000,
		Payload: &gmail.MessagePart{
			MimeType: "multipart/alternative",
			Headers: []*gmail.MessagePartHeader{
				{Name: "From", Value: "Alice <alice@example.com>"},
				{Name: "To", Value: "me@gmail.com"},
				{Name: "Cc", Value: "carol@example.com"},
				{Name: "Subject", Value: subject},
				{Name: "Message-ID", Value: "<" + id + "@mail.example.com>"},
				{Name: "References", Value: "<root@mail.example.com>"},
			},
			Parts: []*gmail.MessagePart{
				{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: encode("<p>html " + id + "</p>")}},
				{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: encode("plain " + id)}},
				{MimeType: "application/pdf", Filename: "a.pdf", Body: &gmail.MessagePartBody{AttachmentId: "att"}},
			},
		},
	}
}

func (f *fakeGmail) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /gmail/v1/users/me/messages", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.queries = append(f.queries, r.URL.Query().Get("q"))
		f.labels = append(f.labels, strings.Join(r.URL.Query()["labelIds"], ","))

		page := 0
		if tok := r.URL.Query().Get("pageToken"); tok != "" {
			fmt.Sscanf(tok, "p%d", &page)
		}
		resp := &gmail.ListMessagesResponse{}
		if page < len(f.pages) {
			for _, id := range f.pages[page] {
				resp.Messages = append(resp.Messages, &gmail.Message{Id: id})
			}
			if page+1 < len(f.pages) {
				resp.NextPageToken = fmt.Sprintf("p%d", page+1)
			}
		}
		json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("GET /gmail/v1/users/me/messages/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		msg, ok := f.messages[r.PathValue("id")]
		f.mu.Unlock()
		if !ok {
			http.Error(w, `{"error":{"code":404,"message":"Requested entity was not found."}}`, http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(msg)
	})
	mux.HandleFunc("DELETE /gmail/v1/users/me/messages/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		id := r.PathValue("id")
		if _, ok := f.messages[id]; !ok {
			http.Error(w, `{"error":{"code":404,"message":"Requested entity was not found."}}`, http.StatusNotFound)
			return
		}
		delete(f.messages, id)
		f.deleted = append(f.deleted, id)
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /gmail/v1/users/me/messages/send", func(w http.ResponseWriter, r *http.Request) {
		var msg gmail.Message
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.sent = append(f.sent, &msg)
		f.mu.Unlock()
		threadID := msg.ThreadId
		if threadID == "" {
			threadID = "t-new"
		}
		json.NewEncoder(w).Encode(&gmail.Message{Id: "sent-1", ThreadId: threadID})
	})
	return mux
}

func newTestProvider(t *testing.T, fake *fakeGmail) *Provider {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	p, err := New(context.Background(), Credentials{
		ClientID:     "client",
		ClientSecret: "secret",
		RefreshToken: "refresh",
	}, Options{
		PageSize: 2,
		ClientOptions: []option.ClientOption{
			option.WithEndpoint(srv.URL + "/"),
			option.WithHTTPClient(srv.Client()),
		},
	}, zerolog.Nop())
	be.Err(t, err, nil)
	return p
}

var gmailAccount = account.Account{Name: "gmail", Address: "me@gmail.com"}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(context.Background(), Credentials{ClientID: "id", ClientSecret: "secret"}, Options{}, zerolog.Nop())
	be.Err(t, err, provider.ErrConfigurationMissing)
	_, err = New(context.Background(), Credentials{}, Options{}, zerolog.Nop())
	be.Err(t, err, provider.ErrConfigurationMissing)
}

func TestListPaginatesAndHydrates(t *testing.T) {
	fake := &fakeGmail{
		pages: [][]string{{"m3", "m2"}, {"m1", "m0"}},
		messages: map[string]*gmail.Message{
			"m3": fixture("m3", "third", true),
			"m2": {Id: "m2"},
			"m1": fixture("m1", "first", false),
			"m0": fixture("m0", "zeroth", false),
		},
	}
	p := newTestProvider(t, fake)

	msgs, err := p.List(context.Background(), gmailAccount, provider.ListQuery{Folder: "INBOX", UnreadOnly: true, Limit: 3})
	be.Err(t, err, nil)

	// m2 has no payload and is skipped; results are oldest first
	be.Equal(t, len(msgs), 2)
	be.Equal(t, msgs[0].ID, "m1")
	be.Equal(t, msgs[1].ID, "m3")
	be.Equal(t, msgs[1].Subject, "third")
	be.Equal(t, msgs[1].Body, "plain m3")
	be.Equal(t, msgs[1].ThreadID, "t-m3")
	be.Equal(t, msgs[1].Snippet, "snippet m3")
	be.True(t, msgs[1].IsUnread)
	be.True(t, !msgs[0].IsUnread)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	be.Equal(t, len(fake.queries), 2)
	be.Equal(t, fake.queries[0], "is:unread")
	be.Equal(t, fake.labels[0], "INBOX")
}

func TestListOtherFolder(t *testing.T) {
	fake := &fakeGmail{pages: [][]string{{}}, messages: map[string]*gmail.Message{}}
	p := newTestProvider(t, fake)

	msgs, err := p.List(context.Background(), gmailAccount, provider.ListQuery{Folder: "Archive", Limit: 5})
	be.Err(t, err, nil)
	be.Equal(t, len(msgs), 0)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	be.Equal(t, fake.queries[0], "in:Archive")
	be.Equal(t, fake.labels[0], "")
}

func TestSearchPassesQuery(t *testing.T) {
	fake := &fakeGmail{
		pages:    [][]string{{"m1"}},
		messages: map[string]*gmail.Message{"m1": fixture("m1", "invoice", false)},
	}
	p := newTestProvider(t, fake)

	msgs, err := p.Search(context.Background(), gmailAccount, provider.SearchQuery{Folder: "Sent", Query: "from:bob", Limit: 10})
	be.Err(t, err, nil)
	be.Equal(t, len(msgs), 1)

	msgs, err = p.Search(context.Background(), gmailAccount, provider.SearchQuery{Folder: "INBOX", Query: "invoice", Limit: 10})
	be.Err(t, err, nil)
	be.Equal(t, len(msgs), 1)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	be.Equal(t, fake.queries, []string{"from:bob in:Sent", "invoice"})
}

func TestHydrateFailureIsTransport(t *testing.T) {
	fake := &fakeGmail{pages: [][]string{{"gone"}}, messages: map[string]*gmail.Message{}}
	p := newTestProvider(t, fake)

	_, err := p.List(context.Background(), gmailAccount, provider.ListQuery{Folder: "INBOX", Limit: 10})
	be.Err(t, err, provider.ErrTransport)
}

func TestDelete(t *testing.T) {
	fake := &fakeGmail{messages: map[string]*gmail.Message{"m1": fixture("m1", "x", false)}}
	p := newTestProvider(t, fake)

	be.Err(t, p.Delete(context.Background(), gmailAccount, provider.Target{ID: "m1"}), nil)
	// deleting again surfaces the API error
	be.Err(t, p.Delete(context.Background(), gmailAccount, provider.Target{ID: "m1"}), provider.ErrTransport)
	be.Err(t, p.Delete(context.Background(), gmailAccount, provider.Target{ID: " "}), provider.ErrInvalidID)
}

func TestReplyRoundTrip(t *testing.T) {
	fake := &fakeGmail{messages: map[string]*gmail.Message{"m1": fixture("m1", "Lunch?", false)}}
	p := newTestProvider(t, fake)

	rc, err := p.FetchForReply(context.Background(), gmailAccount, provider.Target{ID: "m1"})
	be.Err(t, err, nil)
	be.Equal(t, rc.From, "Alice <alice@example.com>")
	be.Equal(t, rc.Subject, "Lunch?")
	be.Equal(t, rc.MessageID, "<m1@mail.example.com>")
	be.Equal(t, rc.References, []string{"<root@mail.example.com>"})
	be.Equal(t, rc.ThreadID, "t-m1")

	receipt, err := p.Send(context.Background(), gmailAccount, provider.Outgoing{
		To:         []string{"alice@example.com"},
		Subject:    "Re: Lunch?",
		Body:       "Sure",
		InReplyTo:  rc.MessageID,
		References: append(rc.References, rc.MessageID),
		ThreadID:   rc.ThreadID,
	})
	be.Err(t, err, nil)
	be.Equal(t, receipt.MessageID, "sent-1")
	be.Equal(t, receipt.ThreadID, "t-m1")

	fake.mu.Lock()
	defer fake.mu.Unlock()
	be.Equal(t, len(fake.sent), 1)
	be.Equal(t, fake.sent[0].ThreadId, "t-m1")
	raw, err := base64.URLEncoding.DecodeString(fake.sent[0].Raw)
	be.Err(t, err, nil)
	be.True(t, strings.Contains(string(raw), "In-Reply-To: <m1@mail.example.com>"))
	be.True(t, strings.Contains(string(raw), "References: <root@mail.example.com> <m1@mail.example.com>"))
}

func TestToMessageBodies(t *testing.T) {
	msg := fixture("m1", "x", false)
	msg.Payload.Parts = msg.Payload.Parts[:1]
	out, err := toMessage(msg)
	be.Err(t, err, nil)
	be.True(t, out.HTML)
	be.Equal(t, out.Body, "<p>html m1</p>")

	long := strings.Repeat("a", 1200)
	msg.Payload.Parts = []*gmail.MessagePart{{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: encode(long)}}}
	out, err = toMessage(msg)
	be.Err(t, err, nil)
	be.Equal(t, len(out.Body), 1003)
	be.True(t, strings.HasSuffix(out.Body, "..."))

	_, err = toMessage(&gmail.Message{Id: "bare"})
	be.Err(t, err, provider.ErrParse)
}
