package imap

import (
	"context"
	"fmt"
	"io"
	"mime"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/mikey/activity-timeline/internal/core"
	"github.com/mikey/activity-timeline/internal/senderfilter"
	"go.uber.org/zap"
)

// wordDecoder decodes RFC 2047 encoded-words in subjects, with charset
// support beyond UTF-8
var wordDecoder = mime.WordDecoder{CharsetReader: charset.Reader}

// Source retrieves messages from an IMAP mailbox. Each Fetch opens a
// fresh connection and logs out when done.
type Source struct {
	server   string
	username string
	password string
	filter   *senderfilter.Filter
	logger   *zap.Logger
}

// NewSource creates a new IMAP email source
func NewSource(server, username, password string, filter *senderfilter.Filter, logger *zap.Logger) *Source {
	return &Source{
		server:   server,
		username: username,
		password: password,
		filter:   filter,
		logger:   logger,
	}
}

// Fetch retrieves up to limit of the newest messages from the folder
func (s *Source) Fetch(ctx context.Context, folder string, limit int) ([]core.Message, error) {
	if s.server == "" {
		return nil, fmt.Errorf("imap server is not configured")
	}
	if limit <= 0 {
		limit = 100
	}

	c, err := client.DialTLS(s.server, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IMAP server: %w", err)
	}
	defer c.Logout()

	if err := c.Login(s.username, s.password); err != nil {
		return nil, fmt.Errorf("failed to log in to IMAP server: %w", err)
	}

	mbox, err := c.Select(folder, true)
	if err != nil {
		return nil, fmt.Errorf("failed to select folder %q: %w", folder, err)
	}
	if mbox.Messages == 0 {
		return nil, nil
	}

	from := uint32(1)
	if mbox.Messages > uint32(limit) {
		from = mbox.Messages - uint32(limit) + 1
	}
	seqSet := new(imap.SeqSet)
	seqSet.AddRange(from, mbox.Messages)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, section.FetchItem()}

	fetched := make(chan *imap.Message, 16)
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqSet, items, fetched)
	}()

	var messages []core.Message
	for msg := range fetched {
		if err := ctx.Err(); err != nil {
			// Drain so the fetch goroutine can finish
			for range fetched {
			}
			<-done
			return messages, err
		}

		parsed, ok := s.parseMessage(msg, section)
		if ok {
			messages = append(messages, parsed)
		}
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	s.logger.Info("Fetched messages from IMAP",
		zap.String("folder", folder),
		zap.Int("count", len(messages)))

	return messages, nil
}

// parseMessage turns one fetched IMAP message into a core.Message.
// Messages that cannot be parsed are skipped with a warning.
func (s *Source) parseMessage(msg *imap.Message, section *imap.BodySectionName) (core.Message, bool) {
	if msg.Envelope == nil {
		return core.Message{}, false
	}

	sender := ""
	if len(msg.Envelope.From) > 0 {
		sender = msg.Envelope.From[0].Address()
	}
	if s.filter.Ignored(sender) {
		return core.Message{}, false
	}

	subject := decodeSubject(msg.Envelope.Subject)

	body := msg.GetBody(section)
	if body == nil {
		s.logger.Warn("Message has no body section", zap.String("subject", subject))
		return core.Message{}, false
	}

	text, err := extractPlainText(body)
	if err != nil {
		s.logger.Warn("Failed to extract message text",
			zap.String("subject", subject),
			zap.Error(err))
		return core.Message{}, false
	}

	ts := msg.Envelope.Date
	if ts.IsZero() {
		ts = time.Now()
	}

	return core.Message{
		Text:      text,
		Subject:   subject,
		Sender:    sender,
		Timestamp: ts,
	}, true
}

// decodeSubject decodes an encoded-word subject, falling back to the raw
// value when decoding fails
func decodeSubject(subject string) string {
	decoded, err := wordDecoder.DecodeHeader(subject)
	if err != nil {
		return subject
	}
	return decoded
}

// extractPlainText walks the MIME structure and returns the first
// text/plain part
func extractPlainText(r io.Reader) (string, error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to create mail reader: %w", err)
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read mail part: %w", err)
		}

		header, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, err := header.ContentType()
		if err != nil {
			continue
		}
		if strings.EqualFold(contentType, "text/plain") {
			data, err := io.ReadAll(part.Body)
			if err != nil {
				return "", fmt.Errorf("failed to read mail body: %w", err)
			}
			return string(data), nil
		}
	}

	return "", fmt.Errorf("no text/plain part found")
}
