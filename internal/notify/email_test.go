// internal/notify/email_test.go
package notify

import (
	"net/smtp"
	"strings"
	"testing"

	"github.com/wordforest/dingbot/pkg/models"
)

func testMailer() (*Mailer, *capturedSend) {
	cap := &capturedSend{}
	m := &Mailer{
		opts: Options{
			SMTPHost:   "smtp.gmail.com",
			SMTPPort:   "587",
			Sender:     "alerts@example.com",
			Password:   "app-password",
			Recipients: []string{"you@example.com"},
		},
		send: cap.send,
	}
	return m, cap
}

type capturedSend struct {
	called bool
	addr   string
	from   string
	to     []string
	msg    []byte
	err    error
}

func (c *capturedSend) send(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	c.called = true
	c.addr = addr
	c.from = from
	c.to = to
	c.msg = msg
	return c.err
}

func hotItem(title, link string) models.ClassifiedListing {
	return models.ClassifiedListing{
		Name:  title,
		Title: title,
		Image: "https://scontent.example.net/photo.jpg",
		URL:   link,
		Tier:  models.TierHot,
	}
}

func TestNotifyHotItems_SendsMultipartEmail(t *testing.T) {
	m, cap := testMailer()
	items := []models.ClassifiedListing{
		hotItem("Fender Guitar Amp", "https://www.facebook.com/marketplace/item/1/"),
		hotItem("Horror VHS Lot", "https://www.facebook.com/marketplace/item/2/"),
	}

	ok := m.NotifyHotItems(items, "Guitar Amp", "Hamilton")
	if !ok {
		t.Fatal("Expected delivery to succeed")
	}
	if !cap.called {
		t.Fatal("Send func was not invoked")
	}
	if cap.addr != "smtp.gmail.com:587" {
		t.Errorf("Unexpected SMTP addr: %s", cap.addr)
	}
	if cap.from != "alerts@example.com" || len(cap.to) != 1 {
		t.Errorf("Unexpected envelope: from=%s to=%v", cap.from, cap.to)
	}

	body := string(cap.msg)
	if !strings.Contains(body, "Subject: ") || !strings.Contains(body, "2 new HOT item(s)") {
		t.Error("Subject should count the hot items")
	}
	if !strings.Contains(body, "multipart/alternative") {
		t.Error("Message should be multipart/alternative")
	}
	if !strings.Contains(body, "text/plain; charset=utf-8") {
		t.Error("Missing plain-text part")
	}
	if !strings.Contains(body, "text/html; charset=utf-8") {
		t.Error("Missing HTML part")
	}
	if !strings.Contains(body, "Fender Guitar Amp") || !strings.Contains(body, "Horror VHS Lot") {
		t.Error("Body should name every hot item")
	}
	if !strings.Contains(body, "https://www.facebook.com/marketplace/item/1/") {
		t.Error("Body should link each item")
	}
}

func TestNotifyHotItems_NoItemsNoSend(t *testing.T) {
	m, cap := testMailer()

	if m.NotifyHotItems(nil, "Guitar Amp", "Hamilton") {
		t.Error("Empty item list should not report success")
	}
	if cap.called {
		t.Error("Send must not be called with no items")
	}
}

func TestNotifyHotItems_UnconfiguredMailerSkips(t *testing.T) {
	cap := &capturedSend{}
	m := &Mailer{opts: Options{}, send: cap.send}

	ok := m.NotifyHotItems([]models.ClassifiedListing{hotItem("Amp", "https://x/1")}, "amp", "Hamilton")
	if ok {
		t.Error("Unconfigured mailer should report failure")
	}
	if cap.called {
		t.Error("Unconfigured mailer must not attempt delivery")
	}
}

func TestNotifyHotItems_DeliveryFailureReported(t *testing.T) {
	m, cap := testMailer()
	cap.err = &smtpError{}

	ok := m.NotifyHotItems([]models.ClassifiedListing{
		hotItem("Amp", "https://www.facebook.com/marketplace/item/1/"),
	}, "amp", "Hamilton")
	if ok {
		t.Error("Failed delivery must not report success")
	}
}

type smtpError struct{}

func (e *smtpError) Error() string { return "550 rejected" }

func TestRenderHTML_EscapesTitles(t *testing.T) {
	body := renderHTML([]models.ClassifiedListing{
		hotItem(`<script>alert("x")</script> Amp`, "https://www.facebook.com/marketplace/item/1/"),
	}, "amp", "Hamilton")

	if strings.Contains(body, "<script>") {
		t.Error("Titles must be HTML-escaped")
	}
	if !strings.Contains(body, "Hamilton") {
		t.Error("Body should name the city")
	}
}

func TestConfigured(t *testing.T) {
	m := NewMailer(Options{
		Sender:     "a@example.com",
		Password:   "pw",
		Recipients: []string{"b@example.com"},
	})
	if !m.Configured() {
		t.Error("Fully specified mailer should report configured")
	}

	m = NewMailer(Options{Sender: "a@example.com", Password: "pw"})
	if m.Configured() {
		t.Error("Mailer without recipients should not report configured")
	}
}
