package sink

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"autokit/internal/sched"
	"autokit/pkg/logx"
)

// EmailConfig configures the SMTP sink. STARTTLS is negotiated when the
// server advertises it (net/smtp.SendMail behavior), which covers the usual
// port-587 setups.
type EmailConfig struct {
	Host     string
	Port     int
	From     string
	To       []string
	Username string
	Password string

	// FailuresOnly suppresses Success outcomes; overlap skips are always
	// suppressed (they are operational noise, not results).
	FailuresOnly bool

	// RatePerMin caps outgoing mail. Excess outcomes are dropped with a log
	// line rather than queued; email is a notification channel, not a ledger.
	RatePerMin int

	SubjectPrefix string
}

type EmailSink struct {
	cfg EmailConfig
	log logx.Logger
	lim *rate.Limiter

	// send is swappable for tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmail(cfg EmailConfig, log logx.Logger) (*EmailSink, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, errors.New("email sink: host is required")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, errors.New("email sink: from address is required")
	}
	if len(cfg.To) == 0 {
		return nil, errors.New("email sink: at least one recipient is required")
	}
	if cfg.Port <= 0 {
		cfg.Port = 587
	}
	if cfg.RatePerMin <= 0 {
		cfg.RatePerMin = 6
	}
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = "[autokit]"
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &EmailSink{
		cfg:  cfg,
		log:  log,
		lim:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMin)), cfg.RatePerMin),
		send: smtp.SendMail,
	}, nil
}

func (s *EmailSink) Name() string { return "email" }

func (s *EmailSink) Deliver(ctx context.Context, o sched.Outcome) error {
	_ = ctx
	if !s.wants(o) {
		return nil
	}
	if !s.lim.Allow() {
		s.log.Debug("email rate limit hit; outcome not mailed", logx.String("job", o.Job))
		return nil
	}

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	msg := buildMessage(s.cfg.From, s.cfg.To, subjectFor(s.cfg.SubjectPrefix, o), bodyFor(o))
	return s.send(addr, auth, s.cfg.From, s.cfg.To, msg)
}

// wants applies the outcome filter.
func (s *EmailSink) wants(o sched.Outcome) bool {
	if o.Kind == sched.SkippedOverlap {
		return false
	}
	if s.cfg.FailuresOnly && o.Kind == sched.Success {
		return false
	}
	return true
}

func subjectFor(prefix string, o sched.Outcome) string {
	switch o.Kind {
	case sched.Success:
		return fmt.Sprintf("%s job %s succeeded", prefix, o.Job)
	case sched.TimedOut:
		return fmt.Sprintf("%s job %s timed out", prefix, o.Job)
	default:
		return fmt.Sprintf("%s job %s failed", prefix, o.Job)
	}
}

func bodyFor(o sched.Outcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Job:     %s\r\n", o.Job)
	fmt.Fprintf(&b, "Result:  %s\r\n", o.Kind)
	fmt.Fprintf(&b, "Time:    %s\r\n", o.Time.Format(time.RFC3339))
	if o.Took > 0 {
		fmt.Fprintf(&b, "Took:    %s\r\n", o.Took.Round(time.Millisecond))
	}
	if o.Message != "" {
		fmt.Fprintf(&b, "\r\n%s\r\n", o.Message)
	}
	return b.String()
}

func buildMessage(from string, to []string, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
