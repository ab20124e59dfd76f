package notify

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestClickMessage(t *testing.T) {
	msg := ClickMessage("LinkedIn", "/about", "Mozilla/5.0")

	if msg.Kind != KindClick {
		t.Errorf("Kind = %q, want %q", msg.Kind, KindClick)
	}
	if msg.Subject != "🎉  [Portfolio] LinkedIn clicked" {
		t.Errorf("unexpected subject %q", msg.Subject)
	}
	for _, want := range []string{"LinkedIn was clicked!", "page: /about", "ua: Mozilla/5.0"} {
		if !strings.Contains(msg.Body, want) {
			t.Errorf("body missing %q: %q", want, msg.Body)
		}
	}
}

func TestClickMessage_UntrustedFields(t *testing.T) {
	long := strings.Repeat("é", 400)
	msg := ClickMessage("GitHub\r\nBcc: someone@example.com", long, "ua")

	if strings.ContainsAny(msg.Subject, "\r\n") {
		t.Errorf("subject spans lines: %q", msg.Subject)
	}
	if msg.Subject != "🎉  [Portfolio] GitHub Bcc: someone@example.com clicked" {
		t.Errorf("unexpected subject %q", msg.Subject)
	}
	if strings.Contains(msg.Body, long) {
		t.Error("expected long page to be clipped")
	}
	if !strings.Contains(msg.Body, "…") {
		t.Error("expected clipped marker")
	}
}

func TestClip(t *testing.T) {
	short := strings.Repeat("a", maxFieldLength)
	if got := clip(short); got != short {
		t.Error("value at the limit must be unchanged")
	}

	got := clip(strings.Repeat("é", maxFieldLength))
	if !utf8.ValidString(got) {
		t.Errorf("clip produced invalid UTF-8")
	}
	if len(got) > maxFieldLength+len("…") {
		t.Errorf("clip length %d exceeds limit", len(got))
	}
}

func TestClip_InvalidBytesKeepContent(t *testing.T) {
	got := clip("\xff" + strings.Repeat("a", 600))

	if len(got) != maxFieldLength+len("…") {
		t.Errorf("clip length = %d, want %d", len(got), maxFieldLength+len("…"))
	}
	if !strings.HasPrefix(got, "\xff"+strings.Repeat("a", 100)) {
		t.Errorf("clip dropped content: %q", got[:10])
	}

	ua := "\xffMozilla/5.0 " + strings.Repeat("x", 600)
	msg := ClickMessage("GitHub", "/", ua)
	if !strings.Contains(msg.Body, "Mozilla/5.0") {
		t.Errorf("user agent lost from body: %q", msg.Body[:40])
	}
}

func TestVisitMessage(t *testing.T) {
	at := time.Date(2025, time.January, 2, 3, 4, 5, 0, time.UTC)
	ua := "curl/8.0"

	tests := []struct {
		name    string
		ua      *string
		pageURL string
		want    []string
	}{
		{
			name:    "all fields",
			ua:      &ua,
			pageURL: "https://example.com/",
			want:    []string{"IP Address: 203.0.113.5", "User Agent: curl/8.0", "Page URL: https://example.com/", "Timestamp: 2025-01-02 03:04:05 UTC"},
		},
		{
			name: "absent fields",
			want: []string{"User Agent: N/A", "Page URL: N/A"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := VisitMessage("203.0.113.5", tt.ua, tt.pageURL, at)
			if msg.Kind != KindVisit {
				t.Errorf("Kind = %q, want %q", msg.Kind, KindVisit)
			}
			for _, want := range tt.want {
				if !strings.Contains(msg.Body, want) {
					t.Errorf("body missing %q: %q", want, msg.Body)
				}
			}
		})
	}
}
