// Package intake pulls work into ServiceNow from sources other than Teams.
package intake

import (
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/Sourcish/ServiceNow-Agent/internal/config"
	"github.com/Sourcish/ServiceNow-Agent/internal/logging"
	"github.com/Sourcish/ServiceNow-Agent/internal/servicenow"
)

const (
	defaultMailbox      = "INBOX"
	defaultPollInterval = 5 * time.Minute
)

// IncidentCreator opens incidents; *servicenow.Client implements it.
type IncidentCreator interface {
	CreateIncident(ctx context.Context, in servicenow.IncidentInput) servicenow.Result
}

// EmailPoller watches an IMAP mailbox and opens one incident per unseen
// message. Handled messages are flagged seen so restarts do not refile them.
type EmailPoller struct {
	cfg     config.EmailIntakeConfig
	creator IncidentCreator
	log     *logging.Logger

	// dial is replaced in tests to reach a plaintext server.
	dial func(addr string) (*client.Client, error)
}

// NewEmailPoller builds a poller from its config. The connection is TLS;
// plain IMAP is not supported.
func NewEmailPoller(cfg config.EmailIntakeConfig, creator IncidentCreator, log *logging.Logger) *EmailPoller {
	return &EmailPoller{
		cfg:     cfg,
		creator: creator,
		log:     log.Sub("intake"),
		dial: func(addr string) (*client.Client, error) {
			return client.DialTLS(addr, nil)
		},
	}
}

func (p *EmailPoller) mailbox() string {
	if p.cfg.Mailbox != "" {
		return p.cfg.Mailbox
	}
	return defaultMailbox
}

func (p *EmailPoller) interval() time.Duration {
	if p.cfg.PollSeconds > 0 {
		return time.Duration(p.cfg.PollSeconds) * time.Second
	}
	return defaultPollInterval
}

// Run polls the mailbox until ctx is cancelled. Poll failures are logged and
// the next tick tries again; a broken mail server never takes the bridge down.
func (p *EmailPoller) Run(ctx context.Context) {
	p.log.Info().
		Str("server", p.cfg.Server).
		Str("mailbox", p.mailbox()).
		Dur("interval", p.interval()).
		Msg("email intake started")

	ticker := time.NewTicker(p.interval())
	defer ticker.Stop()

	for {
		if created, err := p.pollOnce(ctx); err != nil {
			p.log.Error().Err(err).Msg("mailbox poll failed")
		} else if created > 0 {
			p.log.Info().Int("incidents", created).Msg("incidents opened from mail")
		}

		select {
		case <-ctx.Done():
			p.log.Info().Msg("email intake stopped")
			return
		case <-ticker.C:
		}
	}
}

// pollOnce opens a fresh connection, files every unseen message and marks the
// filed ones seen. Messages whose incident creation fails stay unseen for the
// next poll.
func (p *EmailPoller) pollOnce(ctx context.Context) (int, error) {
	c, err := p.dial(p.cfg.Server)
	if err != nil {
		return 0, fmt.Errorf("failed to connect to %s: %w", p.cfg.Server, err)
	}
	defer c.Logout()

	if err := c.Login(p.cfg.Username, p.cfg.Password); err != nil {
		return 0, fmt.Errorf("login failed: %w", err)
	}

	if _, err := c.Select(p.mailbox(), false); err != nil {
		return 0, fmt.Errorf("failed to select %s: %w", p.mailbox(), err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	ids, err := c.Search(criteria)
	if err != nil {
		return 0, fmt.Errorf("search failed: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{imap.FetchEnvelope, section.FetchItem()}

	messages := make(chan *imap.Message, len(ids))
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, items, messages)
	}()

	created := 0
	handled := new(imap.SeqSet)
	for msg := range messages {
		in := p.buildIncident(msg, section)
		res := p.creator.CreateIncident(ctx, in)
		if errMsg, failed := res["error"]; failed {
			p.log.Error().
				Interface("error", errMsg).
				Str("subject", in.ShortDescription).
				Msg("failed to open incident from mail")
			continue
		}
		created++
		handled.AddNum(msg.SeqNum)
		p.log.Info().Str("subject", in.ShortDescription).Msg("incident opened from mail")
	}
	if err := <-done; err != nil {
		return created, fmt.Errorf("fetch failed: %w", err)
	}

	if !handled.Empty() {
		op := imap.FormatFlagsOp(imap.AddFlags, true)
		if err := c.Store(handled, op, []interface{}{imap.SeenFlag}, nil); err != nil {
			return created, fmt.Errorf("failed to mark messages seen: %w", err)
		}
	}
	return created, nil
}

// buildIncident maps one message to incident fields: subject becomes the
// short description, sender and date open the description, the first text
// part follows.
func (p *EmailPoller) buildIncident(msg *imap.Message, section *imap.BodySectionName) servicenow.IncidentInput {
	subject := "(no subject)"
	from := "unknown sender"
	var date time.Time
	if env := msg.Envelope; env != nil {
		if env.Subject != "" {
			subject = env.Subject
		}
		if len(env.From) > 0 {
			from = env.From[0].Address()
		}
		date = env.Date
	}

	var desc strings.Builder
	fmt.Fprintf(&desc, "Opened automatically from email.\nFrom: %s\n", from)
	if !date.IsZero() {
		fmt.Fprintf(&desc, "Date: %s\n", date.Format(time.RFC1123Z))
	}
	if body := messageText(msg.GetBody(section)); body != "" {
		desc.WriteString("\n")
		desc.WriteString(body)
	}

	return servicenow.IncidentInput{
		ShortDescription: subject,
		Description:      desc.String(),
		Category:         p.cfg.Category,
		AssignmentGroup:  p.cfg.AssignmentGroup,
	}
}

// messageText extracts the first text part of a raw RFC 822 message. Anything
// unreadable yields "" so the incident still gets filed with the envelope.
func messageText(r io.Reader) string {
	if r == nil {
		return ""
	}
	m, err := mail.ReadMessage(r)
	if err != nil {
		return ""
	}
	text, err := textFromEntity(m.Header.Get("Content-Type"), m.Header.Get("Content-Transfer-Encoding"), m.Body)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

// textFromEntity walks one MIME entity depth-first for its first text part.
func textFromEntity(contentType, transferEncoding string, body io.Reader) (string, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		// No usable Content-Type header; treat the entity as plain text.
		data, readErr := io.ReadAll(body)
		if readErr != nil {
			return "", readErr
		}
		return string(data), nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		mr := multipart.NewReader(body, params["boundary"])
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				return "", err
			}
			text, err := textFromEntity(part.Header.Get("Content-Type"), part.Header.Get("Content-Transfer-Encoding"), part)
			if err != nil || text == "" {
				continue
			}
			return text, nil
		}
		return "", nil
	}

	if !strings.HasPrefix(mediaType, "text/") {
		return "", nil
	}
	if strings.EqualFold(transferEncoding, "quoted-printable") {
		body = quotedprintable.NewReader(body)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
