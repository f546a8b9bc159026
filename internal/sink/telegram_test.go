package sink

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"autokit/internal/sched"
	"autokit/pkg/logx"
)

func TestTelegramConfigValidation(t *testing.T) {
	if _, err := NewTelegram(TelegramConfig{ChatID: 1}, logx.Nop()); err == nil {
		t.Fatalf("empty token accepted")
	}
	if _, err := NewTelegram(TelegramConfig{Token: "t"}, logx.Nop()); err == nil {
		t.Fatalf("zero chat id accepted")
	}
}

func TestFormatTelegram(t *testing.T) {
	o := sched.Outcome{
		Job:     "scrape-news",
		Kind:    sched.Success,
		Message: "\"Front page\": 12 headings, 80 links",
		Took:    1200 * time.Millisecond,
	}
	got := formatTelegram(o)
	if !strings.HasPrefix(got, "✅ scrape-news: success") {
		t.Fatalf("header = %q", got)
	}
	if !strings.Contains(got, "(1.2s)") {
		t.Fatalf("missing duration in %q", got)
	}
	if !strings.Contains(got, "80 links") {
		t.Fatalf("missing payload in %q", got)
	}
}

func TestFormatTelegramIcons(t *testing.T) {
	if got := formatTelegram(sched.Outcome{Job: "j", Kind: sched.Failure}); !strings.HasPrefix(got, "❌") {
		t.Fatalf("failure = %q", got)
	}
	if got := formatTelegram(sched.Outcome{Job: "j", Kind: sched.TimedOut}); !strings.HasPrefix(got, "⏰") {
		t.Fatalf("timeout = %q", got)
	}
}

func TestFormatTelegramTruncatesLongMessages(t *testing.T) {
	o := sched.Outcome{
		Job:     "j",
		Kind:    sched.Failure,
		Message: strings.Repeat("x", 2000),
	}
	got := formatTelegram(o)
	if len(got) > 700 {
		t.Fatalf("message not truncated: %d bytes", len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("missing ellipsis: %q", got[len(got)-10:])
	}
}

func TestTruncateMessageKeepsRunesWhole(t *testing.T) {
	// Three-byte runes guarantee some limit falls mid-rune.
	long := strings.Repeat("仮", 400)
	for _, max := range []int{600, 601, 602} {
		got := truncateMessage(long, max)
		if len(got) > max {
			t.Fatalf("max %d: got %d bytes", max, len(got))
		}
		if !utf8.ValidString(got) {
			t.Fatalf("max %d: invalid UTF-8 after truncation", max)
		}
		if !strings.HasSuffix(got, "...") {
			t.Fatalf("max %d: missing ellipsis", max)
		}
	}
	if got := truncateMessage("short", 600); got != "short" {
		t.Fatalf("short message altered: %q", got)
	}
}
