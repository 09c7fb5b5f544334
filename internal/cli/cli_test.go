package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/adrg/xdg"
	"github.com/nalgeon/be"
	"github.com/rs/zerolog"

	"github.com/tianpeijun/email-mcp/gateway"
	"github.com/tianpeijun/email-mcp/internal/config"
	"github.com/tianpeijun/email-mcp/internal/toolserver"
)

type recordingCaller struct {
	name string
	args map[string]any
	out  gateway.Outcome
}

func (r *recordingCaller) Call(ctx context.Context, name string, args json.RawMessage) gateway.Outcome {
	r.name = name
	r.args = nil
	if len(args) > 0 {
		_ = json.Unmarshal(args, &r.args)
	}
	return r.out
}

func execute(t *testing.T, caller *recordingCaller, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	xdg.Reload()
	t.Cleanup(xdg.Reload)

	a := &app{
		build: func(ctx context.Context, cfg *config.Config, log zerolog.Logger) (toolserver.Caller, error) {
			return caller, nil
		},
		logOutput: io.Discard,
		stdin:     strings.NewReader(""),
	}
	cmd := newRootCmd(a)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestReadCommand(t *testing.T) {
	caller := &recordingCaller{out: gateway.Outcome{
		Operation: gateway.OpReadEmails,
		Payload:   gateway.MessagesResult{Folder: "Archive"},
	}}
	out, err := execute(t, caller, "read", "--folder", "Archive", "--limit", "3", "--unread", "--account", "qq")
	be.Err(t, err, nil)
	be.Equal(t, out, "No emails found in Archive.\n")
	be.Equal(t, caller.name, "read_emails")
	be.Equal(t, caller.args["folder"], any("Archive"))
	be.Equal(t, caller.args["limit"], any(float64(3)))
	be.Equal(t, caller.args["unreadOnly"], any(true))
	be.Equal(t, caller.args["account"], any("qq"))
}

func TestSendCommandAttachments(t *testing.T) {
	caller := &recordingCaller{out: gateway.Outcome{Operation: gateway.OpSendEmail, Payload: gateway.SendResult{}}}
	_, err := execute(t, caller, "send", "--to", "a@example.com", "--subject", "s", "--body", "b", "--attach", "/tmp/report.pdf")
	be.Err(t, err, nil)

	atts, ok := caller.args["attachments"].([]any)
	be.True(t, ok)
	be.Equal(t, len(atts), 1)
	att := atts[0].(map[string]any)
	be.Equal(t, att["filename"], any("report.pdf"))
	be.Equal(t, att["path"], any("/tmp/report.pdf"))
}

func TestReplyAndDeleteTakeMessageID(t *testing.T) {
	caller := &recordingCaller{out: gateway.Outcome{Operation: gateway.OpReplyEmail, Payload: gateway.ReplyResult{}}}
	_, err := execute(t, caller, "reply", "17", "--body", "thanks", "--all")
	be.Err(t, err, nil)
	be.Equal(t, caller.args["messageId"], any("17"))
	be.Equal(t, caller.args["replyAll"], any(true))

	caller.out = gateway.Outcome{Operation: gateway.OpDeleteEmail, Payload: gateway.DeleteResult{MessageID: "17"}}
	_, err = execute(t, caller, "delete", "17")
	be.Err(t, err, nil)
	be.Equal(t, caller.name, "delete_email")
}

func TestCallCommandFailure(t *testing.T) {
	caller := &recordingCaller{out: gateway.Fail("forward_email", gateway.ErrUnknownOperation)}
	out, err := execute(t, caller, "call", "forward_email", `{"x":1}`)
	be.Err(t, err, errOperationFailed)
	be.True(t, strings.HasPrefix(out, "Error (unknown_operation):"))
	be.Equal(t, caller.name, "forward_email")
	be.Equal(t, caller.args["x"], any(float64(1)))
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := execute(t, &recordingCaller{}, "--log-level", "loud", "accounts")
	be.True(t, err != nil)
}
