// internal/notify/email.go

// Package notify dispatches hot-item alert emails. Delivery failures are
// logged and swallowed here; a broken mail setup must never fail a scrape.
package notify

import (
	"fmt"
	"html"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/rs/zerolog/log"
	"github.com/zalando/go-keyring"

	"github.com/wordforest/dingbot/pkg/models"
)

// KeyringService is the service name under which the SMTP app password may
// be stored in the OS keyring.
const KeyringService = "dingbot"

// Options configures the Mailer.
type Options struct {
	// SMTPHost and SMTPPort address the outbound mail server.
	SMTPHost string
	SMTPPort string
	// Sender is the authenticated from-address (a Gmail account).
	Sender string
	// Password is the app password; when empty the OS keyring is tried
	// under KeyringService/Sender.
	Password string
	// Recipients receive every alert.
	Recipients []string
}

// sendFunc matches smtp.SendMail; swapped out in tests.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends hot-item notification emails over SMTP.
type Mailer struct {
	opts Options
	send sendFunc
}

// NewMailer creates a Mailer. The app password is resolved once: explicit
// option first, then the OS keyring.
func NewMailer(opts Options) *Mailer {
	if opts.SMTPHost == "" {
		opts.SMTPHost = "smtp.gmail.com"
	}
	if opts.SMTPPort == "" {
		opts.SMTPPort = "587"
	}
	if opts.Password == "" && opts.Sender != "" {
		if secret, err := keyring.Get(KeyringService, opts.Sender); err == nil {
			opts.Password = secret
		} else {
			log.Debug().Err(err).Msg("No app password in keyring, relying on environment")
		}
	}
	return &Mailer{opts: opts, send: smtp.SendMail}
}

// Configured reports whether the mailer has enough to attempt delivery.
func (m *Mailer) Configured() bool {
	return m.opts.Sender != "" && m.opts.Password != "" && len(m.opts.Recipients) > 0
}

// NotifyHotItems dispatches one email describing the new hot items for a
// query/city pair and reports whether delivery succeeded. Failures are
// logged, never returned as errors: alerting is a best-effort outbound
// boundary, but callers need the success signal to know whether to record
// the ids as notified.
func (m *Mailer) NotifyHotItems(items []models.ClassifiedListing, query, city string) bool {
	if len(items) == 0 {
		return false
	}
	if !m.Configured() {
		log.Warn().Msg("Mailer not configured, skipping hot item notification")
		return false
	}

	msg, err := m.compose(items, query, city)
	if err != nil {
		log.Error().Err(err).Msg("Failed to compose notification email")
		return false
	}

	addr := m.opts.SMTPHost + ":" + m.opts.SMTPPort
	auth := smtp.PlainAuth("", m.opts.Sender, m.opts.Password, m.opts.SMTPHost)
	if err := m.send(addr, auth, m.opts.Sender, m.opts.Recipients, msg); err != nil {
		log.Error().Err(err).Int("items", len(items)).
			Msg("Hot item email delivery failed")
		return false
	}

	log.Info().Int("items", len(items)).Str("query", query).Str("city", city).
		Msg("Hot item email sent")
	return true
}

// compose builds a multipart/alternative message: HTML body plus a
// text/plain sibling derived from it.
func (m *Mailer) compose(items []models.ClassifiedListing, query, city string) ([]byte, error) {
	htmlBody := renderHTML(items, query, city)

	converter := md.NewConverter("", true, nil)
	plainBody, err := converter.ConvertString(htmlBody)
	if err != nil {
		return nil, fmt.Errorf("failed to derive plain-text part: %w", err)
	}

	var buf strings.Builder
	writer := multipart.NewWriter(&buf)

	subject := fmt.Sprintf("🔥 %d new HOT item(s) for %q in %s", len(items), query, city)
	fmt.Fprintf(&buf, "From: %s\r\n", m.opts.Sender)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(m.opts.Recipients, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", writer.Boundary())

	plainPart, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/plain; charset=utf-8"},
	})
	if err != nil {
		return nil, err
	}
	fmt.Fprint(plainPart, plainBody)

	htmlPart, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/html; charset=utf-8"},
	})
	if err != nil {
		return nil, err
	}
	fmt.Fprint(htmlPart, htmlBody)

	if err := writer.Close(); err != nil {
		return nil, err
	}
	return []byte(buf.String()), nil
}

// renderHTML produces the alert body: one block per item with title, image,
// and link.
func renderHTML(items []models.ClassifiedListing, query, city string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	fmt.Fprintf(&b, "<h2>New HOT items for %s in %s</h2>", html.EscapeString(query), html.EscapeString(city))
	for _, item := range items {
		b.WriteString("<div style=\"margin-bottom:16px\">")
		fmt.Fprintf(&b, "<h3><a href=%q>%s</a></h3>", item.URL, html.EscapeString(item.Title))
		fmt.Fprintf(&b, "<a href=%q><img src=%q alt=%q width=\"300\"></a>",
			item.URL, item.Image, html.EscapeString(item.Title))
		b.WriteString("</div>")
	}
	b.WriteString("</body></html>")
	return b.String()
}
