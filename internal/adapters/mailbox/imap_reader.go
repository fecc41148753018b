package mailbox

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/mail"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mikey/llm-followup/internal/core"
)

var titleCaser = cases.Title(language.Und)

// IMAPReader fetches inbox messages over IMAP and reduces them to the plain
// text form the pipeline consumes.
type IMAPReader struct {
	host     string
	port     string
	username string
	password string
	tls      bool
	logger   *zap.Logger
}

// NewIMAPReader creates a new IMAP reader configuration
func NewIMAPReader(host, port, username, password string, tls bool, logger *zap.Logger) *IMAPReader {
	return &IMAPReader{
		host:     host,
		port:     port,
		username: username,
		password: password,
		tls:      tls,
		logger:   logger,
	}
}

// connect dials the IMAP server and authenticates. The caller owns the
// returned client and must Logout.
func (r *IMAPReader) connect() (*imapclient.Client, error) {
	addr := r.host + ":" + r.port

	var client *imapclient.Client
	var err error

	if r.tls {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := client.Login(r.username, r.password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("authentication failed for %s: %w", r.username, err)
	}

	return client, nil
}

// Fetch returns the INBOX messages received inside [since, until] in
// chronological order, each with its plain-text body extracted.
func (r *IMAPReader) Fetch(ctx context.Context, since, until time.Time) ([]core.Message, error) {
	client, err := r.connect()
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select("INBOX", nil).Wait(); err != nil {
		return nil, fmt.Errorf("selecting INBOX: %w", err)
	}

	// IMAP SINCE/BEFORE compare whole days; the receipt timestamp is
	// re-checked per message below.
	criteria := &imap.SearchCriteria{
		Since:  since,
		Before: until.AddDate(0, 0, 1),
	}

	searchData, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching messages: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}

	uidSet := imap.UIDSetNum(uids...)
	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchOpts := &imap.FetchOptions{
		Envelope:    true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	fetchCmd := client.Fetch(uidSet, fetchOpts)
	defer fetchCmd.Close()

	var messages []core.Message
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			r.logger.Warn("Failed to collect message, skipping", zap.Error(err))
			continue
		}

		message, ok := r.messageFromBuffer(buf, bodySection)
		if !ok {
			continue
		}
		if message.ReceivedAt.Before(since) || message.ReceivedAt.After(until) {
			continue
		}
		messages = append(messages, message)
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("fetching messages: %w", err)
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].ReceivedAt.Before(messages[j].ReceivedAt)
	})

	r.logger.Info("Fetched mailbox window",
		zap.Int("messages", len(messages)),
		zap.Time("since", since),
		zap.Time("until", until))

	return messages, nil
}

// messageFromBuffer converts one fetched message into the pipeline's Message
// form. Messages without an envelope are dropped.
func (r *IMAPReader) messageFromBuffer(
	buf *imapclient.FetchMessageBuffer,
	bodySection *imap.FetchItemBodySection,
) (core.Message, bool) {
	if buf.Envelope == nil {
		return core.Message{}, false
	}

	message := core.Message{
		ID:         buf.Envelope.MessageID,
		Subject:    buf.Envelope.Subject,
		ReceivedAt: buf.Envelope.Date,
	}
	if message.ID == "" {
		message.ID = fmt.Sprintf("uid-%d", buf.UID)
	}

	if len(buf.Envelope.From) > 0 {
		from := buf.Envelope.From[0]
		message.Sender = from.Addr()
		if from.Name != "" {
			message.SenderName = from.Name
		} else {
			message.SenderName = displayNameFromAddress(message.Sender)
		}
	}

	if raw := buf.FindBodySection(bodySection); raw != nil {
		message.Content = extractPlainText(raw)
	}

	return message, true
}

// extractPlainText parses a raw RFC 2822 body, preferring the text/plain
// part and falling back to stripped HTML, then to the raw bytes.
func extractPlainText(raw []byte) string {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return strings.TrimSpace(string(raw))
	}
	defer mr.Close()

	var textBody, htmlBody string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		header, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}

		contentType, _, _ := header.ContentType()
		body, readErr := io.ReadAll(part.Body)
		if readErr != nil {
			continue
		}

		switch {
		case strings.HasPrefix(contentType, "text/plain"):
			textBody = string(body)
		case strings.HasPrefix(contentType, "text/html"):
			htmlBody = string(body)
		}
	}

	if textBody != "" {
		return strings.TrimSpace(textBody)
	}
	return stripHTML(htmlBody)
}

// htmlTagPattern matches HTML tags for stripping.
var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// stripHTML provides a basic plain-text rendering of an HTML body.
func stripHTML(html string) string {
	if html == "" {
		return ""
	}

	result := html
	for _, tag := range []string{
		"<br>", "<br/>", "<br />", "</p>", "</div>", "</li>",
	} {
		result = strings.ReplaceAll(result, tag, "\n")
	}

	result = htmlTagPattern.ReplaceAllString(result, "")

	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	)
	result = replacer.Replace(result)

	for strings.Contains(result, "\n\n\n") {
		result = strings.ReplaceAll(result, "\n\n\n", "\n\n")
	}

	return strings.TrimSpace(result)
}

// displayNameFromAddress derives a readable name from the local part of an
// address ("jane.doe@x" -> "Jane Doe").
func displayNameFromAddress(addr string) string {
	local, _, found := strings.Cut(addr, "@")
	if !found || local == "" {
		return addr
	}
	words := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-'
	})
	for i, w := range words {
		words[i] = titleCaser.String(strings.ToLower(w))
	}
	return strings.Join(words, " ")
}
