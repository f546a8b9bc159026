package sink

import (
	"context"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"autokit/internal/sched"
	"autokit/pkg/logx"
)

func testEmailSink(t *testing.T, cfg EmailConfig) *EmailSink {
	t.Helper()
	if cfg.Host == "" {
		cfg.Host = "mail.example.com"
	}
	if cfg.From == "" {
		cfg.From = "autokit@example.com"
	}
	if len(cfg.To) == 0 {
		cfg.To = []string{"ops@example.com"}
	}
	s, err := NewEmail(cfg, logx.Nop())
	if err != nil {
		t.Fatalf("NewEmail: %v", err)
	}
	return s
}

func TestEmailConfigValidation(t *testing.T) {
	if _, err := NewEmail(EmailConfig{From: "a@b", To: []string{"c@d"}}, logx.Nop()); err == nil {
		t.Fatalf("missing host accepted")
	}
	if _, err := NewEmail(EmailConfig{Host: "h", To: []string{"c@d"}}, logx.Nop()); err == nil {
		t.Fatalf("missing from accepted")
	}
	if _, err := NewEmail(EmailConfig{Host: "h", From: "a@b"}, logx.Nop()); err == nil {
		t.Fatalf("missing recipients accepted")
	}
}

func TestEmailSendsThroughSwappableTransport(t *testing.T) {
	s := testEmailSink(t, EmailConfig{Port: 2525, RatePerMin: 100})

	var gotAddr string
	var gotMsg []byte
	s.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr = addr
		gotMsg = msg
		return nil
	}

	o := sched.Outcome{
		Job:     "backup",
		Kind:    sched.Failure,
		Time:    time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		Message: "disk full",
		Took:    3 * time.Second,
	}
	if err := s.Deliver(context.Background(), o); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if gotAddr != "mail.example.com:2525" {
		t.Fatalf("addr = %q", gotAddr)
	}
	msg := string(gotMsg)
	if !strings.Contains(msg, "Subject: [autokit] job backup failed") {
		t.Fatalf("missing subject in:\n%s", msg)
	}
	if !strings.Contains(msg, "disk full") {
		t.Fatalf("missing body payload in:\n%s", msg)
	}
	if !strings.Contains(msg, "To: ops@example.com") {
		t.Fatalf("missing recipients header in:\n%s", msg)
	}
}

func TestEmailOutcomeFilter(t *testing.T) {
	cases := []struct {
		name         string
		failuresOnly bool
		kind         sched.OutcomeKind
		want         bool
	}{
		{"success delivered by default", false, sched.Success, true},
		{"failure delivered by default", false, sched.Failure, true},
		{"skip never delivered", false, sched.SkippedOverlap, false},
		{"success suppressed by failuresOnly", true, sched.Success, false},
		{"timeout kept by failuresOnly", true, sched.TimedOut, true},
		{"skip suppressed with failuresOnly too", true, sched.SkippedOverlap, false},
	}
	for _, tc := range cases {
		s := testEmailSink(t, EmailConfig{FailuresOnly: tc.failuresOnly})
		if got := s.wants(sched.Outcome{Kind: tc.kind}); got != tc.want {
			t.Errorf("%s: wants = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestEmailRateLimitDropsQuietly(t *testing.T) {
	s := testEmailSink(t, EmailConfig{RatePerMin: 1})
	var sent int
	s.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		sent++
		return nil
	}

	// Burst capacity is RatePerMin; the second delivery within the same
	// minute is dropped without error.
	for i := 0; i < 3; i++ {
		if err := s.Deliver(context.Background(), sched.Outcome{Job: "j", Kind: sched.Failure}); err != nil {
			t.Fatalf("Deliver %d: %v", i, err)
		}
	}
	if sent != 1 {
		t.Fatalf("sent %d mails, want 1", sent)
	}
}

func TestEmailSubjectByKind(t *testing.T) {
	if got := subjectFor("[x]", sched.Outcome{Job: "j", Kind: sched.Success}); !strings.Contains(got, "succeeded") {
		t.Fatalf("success subject = %q", got)
	}
	if got := subjectFor("[x]", sched.Outcome{Job: "j", Kind: sched.TimedOut}); !strings.Contains(got, "timed out") {
		t.Fatalf("timeout subject = %q", got)
	}
	if got := subjectFor("[x]", sched.Outcome{Job: "j", Kind: sched.Failure}); !strings.Contains(got, "failed") {
		t.Fatalf("failure subject = %q", got)
	}
}
