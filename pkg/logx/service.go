package logx

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

type Config struct {
	Level   string
	Console bool
	File    FileConfig
}

type FileConfig struct {
	Enabled bool
	Path    string
}

const defaultLogFile = "./autokit.log"

// Service owns the root zerolog logger and its outputs. Apply rebuilds the
// root from a new Config at runtime; loggers handed out earlier pick up the
// change on their next event.
type Service struct {
	mu   sync.Mutex
	cfg  Config
	file *os.File

	root atomic.Value // zerolog.Logger
}

// New builds the logging service and applies cfg. The returned Logger tracks
// later Apply calls.
func New(cfg Config) (*Service, Logger) {
	zerolog.ErrorFieldName = "err"
	zerolog.TimeFieldFormat = timeFormat

	s := &Service{}
	s.root.Store(zerolog.Nop())
	s.Apply(cfg)
	return s, s.Logger()
}

// Logger returns a logger bound to the service's current root.
func (s *Service) Logger() Logger {
	return Logger{source: s.current}
}

func (s *Service) current() zerolog.Logger {
	if zl, ok := s.root.Load().(zerolog.Logger); ok {
		return zl
	}
	return zerolog.Nop()
}

// Apply rebuilds outputs and level from cfg. Safe to call concurrently with
// logging.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sinks, file := openSinks(cfg)
	if s.file != nil {
		_ = s.file.Close()
	}
	s.file = file
	s.cfg = cfg

	root := zerolog.New(zerolog.MultiLevelWriter(sinks...)).
		Level(parseLevel(cfg.Level, zerolog.InfoLevel)).
		With().Timestamp().Logger()
	s.root.Store(root)
}

func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// openSinks assembles the writer list for cfg. With nothing configured it
// falls back to console so a misconfigured daemon is never silent.
func openSinks(cfg Config) ([]io.Writer, *os.File) {
	var (
		sinks []io.Writer
		file  *os.File
	)
	if cfg.Console {
		sinks = append(sinks, consoleWriter())
	}
	if cfg.File.Enabled {
		path := strings.TrimSpace(cfg.File.Path)
		if path == "" {
			path = defaultLogFile
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "logx: open log file %s: %v\n", path, err)
		} else {
			file = f
			sinks = append(sinks, zerolog.SyncWriter(f))
		}
	}
	if len(sinks) == 0 {
		sinks = append(sinks, consoleWriter())
	}
	return sinks, file
}

func consoleWriter() io.Writer {
	return zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: timeFormat}
}
