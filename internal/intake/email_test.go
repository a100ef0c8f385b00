package intake

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-imap/backend/memory"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-imap/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sourcish/ServiceNow-Agent/internal/config"
	"github.com/Sourcish/ServiceNow-Agent/internal/logging"
	"github.com/Sourcish/ServiceNow-Agent/internal/servicenow"
)

const rawPrinterMail = "From: Alice Admin <alice@example.com>\r\n" +
	"To: helpdesk@example.com\r\n" +
	"Subject: Printer on fire\r\n" +
	"Date: Thu, 21 Aug 2025 09:30:00 +0000\r\n" +
	"Content-Type: text/plain; charset=UTF-8\r\n" +
	"\r\n" +
	"The third floor printer is smoking. Please send someone.\r\n"

type recordingCreator struct {
	mu     sync.Mutex
	inputs []servicenow.IncidentInput
	fail   bool
}

func (r *recordingCreator) CreateIncident(_ context.Context, in servicenow.IncidentInput) servicenow.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return servicenow.Result{"error": "HTTP 500: boom"}
	}
	r.inputs = append(r.inputs, in)
	return servicenow.Result{"result": map[string]any{"number": fmt.Sprintf("INC%07d", len(r.inputs))}}
}

func (r *recordingCreator) all() []servicenow.IncidentInput {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]servicenow.IncidentInput(nil), r.inputs...)
}

func (r *recordingCreator) setFail(fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = fail
}

// startIMAPServer runs an in-memory IMAP server. The canned account is
// "username"/"password" with an INBOX whose only message is already seen.
func startIMAPServer(t *testing.T) string {
	t.Helper()

	s := server.New(memory.New())
	s.AllowInsecureAuth = true
	s.ErrorLog = log.New(io.Discard, "", 0)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go s.Serve(l)
	t.Cleanup(func() { s.Close() })

	return l.Addr().String()
}

func appendMail(t *testing.T, addr, raw string) {
	t.Helper()

	c, err := client.Dial(addr)
	require.NoError(t, err)
	defer c.Logout()
	require.NoError(t, c.Login("username", "password"))
	require.NoError(t, c.Append("INBOX", nil, time.Now(), strings.NewReader(raw)))
}

func testPoller(t *testing.T, addr string, creator IncidentCreator) *EmailPoller {
	t.Helper()

	p := NewEmailPoller(config.EmailIntakeConfig{
		Server:          addr,
		Username:        "username",
		Password:        "password",
		Category:        "inquiry",
		AssignmentGroup: "Service Desk",
	}, creator, logging.New(nil, "silent"))
	p.dial = client.Dial
	return p
}

func TestPollOnceFilesUnseenMail(t *testing.T) {
	addr := startIMAPServer(t)
	appendMail(t, addr, rawPrinterMail)

	creator := &recordingCreator{}
	p := testPoller(t, addr, creator)

	created, err := p.pollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	inputs := creator.all()
	require.Len(t, inputs, 1)
	in := inputs[0]
	assert.Equal(t, "Printer on fire", in.ShortDescription)
	assert.True(t, strings.HasPrefix(in.Description, "Opened automatically from email."))
	assert.Contains(t, in.Description, "From: alice@example.com")
	assert.Contains(t, in.Description, "The third floor printer is smoking.")
	assert.Equal(t, "inquiry", in.Category)
	assert.Equal(t, "Service Desk", in.AssignmentGroup)
}

func TestPollOnceMarksHandledSeen(t *testing.T) {
	addr := startIMAPServer(t)
	appendMail(t, addr, rawPrinterMail)

	creator := &recordingCreator{}
	p := testPoller(t, addr, creator)

	created, err := p.pollOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, created)

	created, err = p.pollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.Len(t, creator.all(), 1)
}

func TestPollOnceEmptyMailbox(t *testing.T) {
	addr := startIMAPServer(t)

	creator := &recordingCreator{}
	p := testPoller(t, addr, creator)

	created, err := p.pollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.Empty(t, creator.all())
}

func TestPollOnceRetriesFailedFilings(t *testing.T) {
	addr := startIMAPServer(t)
	appendMail(t, addr, rawPrinterMail)

	creator := &recordingCreator{}
	creator.setFail(true)
	p := testPoller(t, addr, creator)

	created, err := p.pollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	// Unfiled mail stays unseen, so the next poll picks it up again.
	creator.setFail(false)
	created, err = p.pollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	assert.Len(t, creator.all(), 1)
}

func TestPollOnceConnectFailure(t *testing.T) {
	creator := &recordingCreator{}
	p := testPoller(t, "127.0.0.1:1", creator)

	_, err := p.pollOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect")
}

func TestPollOnceLoginFailure(t *testing.T) {
	addr := startIMAPServer(t)

	p := NewEmailPoller(config.EmailIntakeConfig{
		Server:   addr,
		Username: "username",
		Password: "wrong",
	}, &recordingCreator{}, logging.New(nil, "silent"))
	p.dial = client.Dial

	_, err := p.pollOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login failed")
}

func TestRunStopsOnCancel(t *testing.T) {
	addr := startIMAPServer(t)

	creator := &recordingCreator{}
	p := testPoller(t, addr, creator)
	p.cfg.PollSeconds = 1

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}

func TestDefaults(t *testing.T) {
	p := testPoller(t, "mail.example.com:993", &recordingCreator{})
	assert.Equal(t, "INBOX", p.mailbox())
	assert.Equal(t, 5*time.Minute, p.interval())

	p.cfg.Mailbox = "Helpdesk"
	p.cfg.PollSeconds = 30
	assert.Equal(t, "Helpdesk", p.mailbox())
	assert.Equal(t, 30*time.Second, p.interval())
}

func TestMessageTextPlain(t *testing.T) {
	got := messageText(strings.NewReader(rawPrinterMail))
	assert.Equal(t, "The third floor printer is smoking. Please send someone.", got)
}

func TestMessageTextMultipart(t *testing.T) {
	raw := "From: bob@example.com\r\n" +
		"Subject: VPN broken\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/alternative; boundary=frontier\r\n" +
		"\r\n" +
		"--frontier\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"\r\n" +
		"VPN drops every few minutes.\r\n" +
		"--frontier\r\n" +
		"Content-Type: text/html; charset=UTF-8\r\n" +
		"\r\n" +
		"<p>VPN drops every few minutes.</p>\r\n" +
		"--frontier--\r\n"

	got := messageText(strings.NewReader(raw))
	assert.Equal(t, "VPN drops every few minutes.", got)
}

func TestMessageTextQuotedPrintable(t *testing.T) {
	raw := "From: eve@example.com\r\n" +
		"Subject: Umlauts\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"Content-Transfer-Encoding: quoted-printable\r\n" +
		"\r\n" +
		"Caf=C3=A9 downstairs has no Wi-Fi.\r\n"

	got := messageText(strings.NewReader(raw))
	assert.Equal(t, "Café downstairs has no Wi-Fi.", got)
}

func TestMessageTextNoHeaders(t *testing.T) {
	assert.Equal(t, "", messageText(nil))
	assert.Equal(t, "", messageText(strings.NewReader("not a message")))
}
