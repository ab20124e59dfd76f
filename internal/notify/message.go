package notify

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// maxFieldLength caps client-supplied values embedded in a message.
const maxFieldLength = 500

// Notification kinds, used for logs and metrics.
const (
	KindClick = "click"
	KindVisit = "visit"
)

// Placeholders for click fields the client did not send.
const (
	UnknownLink      = "unknown link"
	UnknownPage      = "unknown page"
	UnknownUserAgent = "unknown UA"
)

// Notification is a message addressed to the administrator.
type Notification struct {
	Kind    string
	Subject string
	Body    string
}

// ClickMessage formats the link-click alert.
// Fields come straight from the browser, so each is capped and the subject is kept on one line.
func ClickMessage(linkKind, page, userAgent string) Notification {
	linkKind = oneLine(clip(linkKind))
	page = clip(page)
	userAgent = clip(userAgent)

	return Notification{
		Kind:    KindClick,
		Subject: fmt.Sprintf("🎉  [Portfolio] %s clicked", linkKind),
		Body: fmt.Sprintf("%s was clicked!\n\npage: %s\nua: %s\n",
			linkKind, page, userAgent),
	}
}

// VisitMessage formats the new-visitor alert. Absent fields render as N/A.
func VisitMessage(ipAddress string, userAgent *string, pageURL string, at time.Time) Notification {
	ua := "N/A"
	if userAgent != nil && *userAgent != "" {
		ua = clip(*userAgent)
	}
	pageURL = clip(pageURL)
	if pageURL == "" {
		pageURL = "N/A"
	}

	return Notification{
		Kind:    KindVisit,
		Subject: "🎉 New Website Visitor Alert!",
		Body: fmt.Sprintf("A new visitor just landed on your site!\n\n"+
			"Details:\n"+
			"- IP Address: %s\n"+
			"- User Agent: %s\n"+
			"- Page URL: %s\n"+
			"- Timestamp: %s\n",
			ipAddress, ua, pageURL, at.UTC().Format("2006-01-02 15:04:05 UTC")),
	}
}

func clip(s string) string {
	if len(s) <= maxFieldLength {
		return s
	}
	// Back off to a rune boundary; invalid bytes elsewhere are left for the mailer to encode.
	cut := maxFieldLength
	for i := 0; i < utf8.UTFMax-1 && cut > 0 && !utf8.RuneStart(s[cut]); i++ {
		cut--
	}
	return s[:cut] + "…"
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
