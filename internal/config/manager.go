package config

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"autokit/pkg/logx"
)

const (
	// reloadDebounce absorbs editor write bursts and partial writes.
	reloadDebounce = 250 * time.Millisecond
	// watchRestartBackoff spaces out watcher re-creation after a failure.
	watchRestartBackoff = time.Second
)

// Manager owns the committed config snapshot. Load parses and commits the
// file once; Watch keeps the snapshot in sync with on-disk edits, publishing
// each validated change to subscribers. A bad or rejected edit never
// replaces the committed config.
type Manager struct {
	path string
	log  logx.Logger

	validate func(ctx context.Context, cfg *Config) error

	mu   sync.RWMutex
	cur  *Config
	hash uint64 // content hash of cur, to skip no-op reloads

	subsMu sync.Mutex
	nextID int
	subs   map[int]chan *Config
	subID  map[chan *Config]int
}

func NewManager(path string) *Manager {
	return &Manager{
		path:  path,
		subs:  map[int]chan *Config{},
		subID: map[chan *Config]int{},
	}
}

func (m *Manager) SetLogger(log logx.Logger) { m.log = log }

// SetValidator installs the check Watch runs before committing a reload.
func (m *Manager) SetValidator(fn func(ctx context.Context, cfg *Config) error) {
	m.validate = fn
}

// Parse decodes the file without committing it.
func (m *Manager) Parse() (*Config, error) {
	return parseFile(m.path)
}

// Load parses the file and commits it as the current snapshot.
func (m *Manager) Load() (*Config, error) {
	cfg, err := parseFile(m.path)
	if err != nil {
		return nil, err
	}
	m.Commit(cfg)
	return cfg, nil
}

func (m *Manager) Commit(cfg *Config) {
	m.mu.Lock()
	m.cur = cfg
	m.hash = contentHash(cfg)
	m.mu.Unlock()
}

func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cur
}

func (m *Manager) Subscribe(buffer int) chan *Config {
	ch := make(chan *Config, buffer)
	m.subsMu.Lock()
	m.nextID++
	m.subs[m.nextID] = ch
	m.subID[ch] = m.nextID
	m.subsMu.Unlock()
	return ch
}

func (m *Manager) Unsubscribe(ch chan *Config) {
	if ch == nil {
		return
	}
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	id, ok := m.subID[ch]
	if !ok {
		return
	}
	delete(m.subs, id)
	delete(m.subID, ch)
	close(ch)
}

// publish delivers cfg to every subscriber, preferring the newest snapshot:
// a full buffer has its oldest entry evicted before the send is retried.
// Sends happen under subsMu so they cannot race a close in Unsubscribe.
func (m *Manager) publish(cfg *Config) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- cfg:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- cfg:
		default:
			m.log.Debug("config update dropped (subscriber slow)",
				logx.Int("queue_cap", cap(ch)))
		}
	}
}

// Watch blocks until ctx is done, reloading on file changes. The watcher is
// recreated after backend failures, so a transient error does not end the
// watch permanently.
func (m *Manager) Watch(ctx context.Context) error {
	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	scheduleReload := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(reloadDebounce, func() { m.reload(ctx) })
	}

	for ctx.Err() == nil {
		if err := m.watchSession(ctx, scheduleReload); err != nil {
			m.log.Warn("config watch interrupted; restarting", logx.Err(err))
		}
		select {
		case <-ctx.Done():
		case <-time.After(watchRestartBackoff):
		}
	}
	return nil
}

// watchSession runs one watcher lifetime: from creation until the backend
// breaks or ctx is cancelled. Watches the directory, not the file, so
// rename-based editor saves keep working.
func (m *Manager) watchSession(ctx context.Context, scheduleReload func()) error {
	dir := filepath.Dir(m.path)
	base := filepath.Base(m.path)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return err
	}
	m.log.Debug("config watcher started", logx.String("dir", dir), logx.String("file", base))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !strings.EqualFold(filepath.Base(ev.Name), base) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove|fsnotify.Chmod) != 0 {
				scheduleReload()
			}
		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			if werr != nil {
				return werr
			}
		}
	}
}

// reload parses, validates, commits and publishes the current file content.
func (m *Manager) reload(ctx context.Context) {
	cfg, err := parseFile(m.path)
	if err != nil {
		m.log.Warn("config parse failed; keeping previous config",
			logx.String("path", m.path), logx.Err(err))
		return
	}

	h := contentHash(cfg)
	m.mu.RLock()
	unchanged := h != 0 && h == m.hash
	m.mu.RUnlock()
	if unchanged {
		return
	}

	if m.validate != nil {
		vctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := m.validate(vctx, cfg)
		cancel()
		if err != nil {
			m.log.Warn("config rejected", logx.String("path", m.path), logx.Err(err))
			return
		}
	}

	m.Commit(cfg)
	m.publish(cfg)
	m.log.Info("config reloaded", logx.String("path", m.path))
}

func contentHash(cfg *Config) uint64 {
	if cfg == nil {
		return 0
	}
	b, err := json.Marshal(cfg)
	if err != nil {
		return 0
	}
	h := fnv.New64a()
	_, _ = h.Write(b)
	return h.Sum64()
}
