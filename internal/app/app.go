// Package app assembles the toolkit: config, logging, checkpoint storage,
// the action registry, sinks, and the scheduler, in that order.
package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"autokit/internal/actions/organize"
	"autokit/internal/actions/report"
	"autokit/internal/actions/scrape"
	"autokit/internal/actions/speedtest"
	"autokit/internal/actions/sysmon"
	"autokit/internal/config"
	"autokit/internal/feed"
	"autokit/internal/sched"
	"autokit/internal/sink"
	"autokit/internal/storage"
	"autokit/pkg/logx"
)

const defaultSaveEvery = 5 * time.Minute

type App struct {
	cfgMgr *config.Manager
	logs   *logx.Service
	log    logx.Logger

	store  *sched.Store
	reg    *sched.Registry
	sch    *sched.Scheduler
	router *sink.Router
	bus    feed.Bus

	ckpt      storage.Store
	saveEvery time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New loads the config file at path and wires every component. Nothing runs
// until Start.
func New(path string) (*App, error) {
	mgr := config.NewManager(path)
	cfg, err := mgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}

	logs, log := logx.New(loggingConfig(cfg.Logging))
	mgr.SetLogger(log.With(logx.String("svc", "config")))
	mgr.SetValidator(func(ctx context.Context, cfg *config.Config) error {
		return validate(cfg)
	})

	a := &App{
		cfgMgr:    mgr,
		logs:      logs,
		log:       log,
		bus:       feed.New(),
		reg:       sched.NewRegistry(),
		saveEvery: defaultSaveEvery,
	}
	a.store = sched.NewStore(log.With(logx.String("svc", "store")))

	if err := a.openStorage(cfg.Storage); err != nil {
		return nil, err
	}

	a.registerBuiltins()

	router, err := a.buildRouter(cfg.Sinks)
	if err != nil {
		return nil, err
	}
	a.router = router

	schedCfg, err := schedulerConfig(cfg.Scheduler)
	if err != nil {
		return nil, err
	}
	a.sch = sched.New(schedCfg, a.store, a.reg, router,
		log.With(logx.String("svc", "sched")))

	// The report action reads scheduler state, so it is registered after the
	// scheduler exists.
	if err := a.reg.Register(report.Unit(a)); err != nil {
		return nil, err
	}

	for _, jc := range cfg.Jobs {
		if err := a.RegisterJob(jc); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *App) openStorage(sc *config.StorageConfig) error {
	if sc == nil {
		return nil
	}
	busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, 0)
	if err != nil {
		return err
	}
	st, err := storage.Open(storage.Config{
		Driver:      sc.Driver,
		Path:        sc.Path,
		BusyTimeout: busy,
	}, a.log.With(logx.String("svc", "storage")))
	if err != nil {
		return fmt.Errorf("open checkpoint storage: %w", err)
	}
	a.ckpt = st

	if a.saveEvery, err = config.ParseDurationOrDefault("storage.save_every", sc.SaveEvery, defaultSaveEvery); err != nil {
		return err
	}
	return nil
}

func (a *App) registerBuiltins() {
	units := []sched.ActionUnit{
		organize.Unit(a.log.With(logx.String("action", "organize"))),
		scrape.Unit(&http.Client{Timeout: 30 * time.Second},
			a.log.With(logx.String("action", "scrape"))),
		sysmon.Unit(),
		speedtest.Unit(),
	}
	for _, u := range units {
		// Built-in names cannot collide with each other.
		_ = a.reg.Register(u)
	}
}

func (a *App) buildRouter(sc config.SinksConfig) (*sink.Router, error) {
	slog := a.log.With(logx.String("svc", "sink"))
	router := sink.NewRouter(slog)

	if sc.Log == nil || sc.Log.Enabled {
		router.Add(sink.NewLog(slog))
	}
	if ec := sc.Email; ec != nil {
		es, err := sink.NewEmail(sink.EmailConfig{
			Host:          ec.Host,
			Port:          ec.Port,
			From:          ec.From,
			To:            ec.To,
			Username:      ec.Username,
			Password:      ec.Password,
			FailuresOnly:  ec.FailuresOnly,
			RatePerMin:    ec.RatePerMin,
			SubjectPrefix: ec.SubjectPrefix,
		}, slog)
		if err != nil {
			return nil, fmt.Errorf("email sink: %w", err)
		}
		router.Add(es)
	}
	if tc := sc.Telegram; tc != nil {
		ts, err := sink.NewTelegram(sink.TelegramConfig{
			Token:        tc.Token,
			ChatID:       tc.ChatID,
			FailuresOnly: tc.FailuresOnly,
			RatePerMin:   tc.RatePerMin,
		}, slog)
		if err != nil {
			return nil, fmt.Errorf("telegram sink: %w", err)
		}
		router.Add(ts)
	}
	router.Add(sink.NewFeed(a.bus))
	return router, nil
}

// RegisterJob validates a job config and adds it to the store. Safe while
// the scheduler runs; the loop is kicked so a due job fires promptly.
func (a *App) RegisterJob(jc config.JobConfig) error {
	spec, err := TriggerSpec(jc.Trigger)
	if err != nil {
		return fmt.Errorf("job %q: %w", jc.Name, err)
	}
	enabled := jc.Enabled == nil || *jc.Enabled
	err = a.store.Register(sched.Job{
		Name:    jc.Name,
		Trigger: spec,
		Action:  jc.Action,
		Params:  jc.Params,
		Enabled: enabled,
	})
	if err != nil {
		return err
	}
	if a.sch != nil {
		a.sch.Kick()
	}
	return nil
}

// UnregisterJob removes a job; absent names are a no-op.
func (a *App) UnregisterJob(name string) { a.store.Unregister(name) }

// RegisterAction adds a custom unit alongside the built-ins.
func (a *App) RegisterAction(u sched.ActionUnit) error { return a.reg.Register(u) }

// Start restores checkpointed history, then launches the scheduler, the
// config watcher and the checkpoint ticker.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		return nil
	}

	if a.ckpt != nil {
		states, err := a.ckpt.Load(ctx)
		if err != nil {
			return fmt.Errorf("restore checkpoint: %w", err)
		}
		a.store.Restore(fromStorage(states))
	}

	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.sch.Start(runCtx)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		_ = a.cfgMgr.Watch(runCtx)
	}()

	a.wg.Add(1)
	go a.applyConfigUpdates(runCtx)

	if a.ckpt != nil {
		a.wg.Add(1)
		go a.checkpointLoop(runCtx)
	}

	a.log.Info("autokit started",
		logx.Int("jobs", a.store.Len()),
		logx.Int("actions", len(a.reg.Names())))
	return nil
}

// Stop shuts the scheduler down, writes a final checkpoint, and releases
// logging and storage resources. ctx bounds the whole wait.
func (a *App) Stop(ctx context.Context) {
	a.mu.Lock()
	cancel := a.cancel
	a.cancel = nil
	a.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()

	a.sch.Stop(ctx)
	a.wg.Wait()

	if a.ckpt != nil {
		if err := a.ckpt.Save(ctx, toStorage(a.store.Checkpoint())); err != nil {
			a.log.Warn("final checkpoint failed", logx.Err(err))
		}
		_ = a.ckpt.Close()
	}

	a.log.Info("autokit stopped")
	_ = a.logs.Close()
}

// Summaries implements report.Source.
func (a *App) Summaries() []sched.JobSummary { return a.store.Summaries(time.Now()) }

// History implements report.Source.
func (a *App) History() []sched.Outcome { return a.sch.History() }

// Feed exposes the outcome event stream for observers.
func (a *App) Feed() feed.Bus { return a.bus }

func (a *App) applyConfigUpdates(ctx context.Context) {
	defer a.wg.Done()
	ch := a.cfgMgr.Subscribe(2)
	defer a.cfgMgr.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-ch:
			if !ok || cfg == nil {
				return
			}
			// Only logging changes apply live. Jobs, sinks and scheduler
			// knobs need a restart; re-wiring them mid-dispatch is not worth
			// the state transfer.
			a.logs.Apply(loggingConfig(cfg.Logging))
			a.log.Info("logging config applied", logx.String("level", cfg.Logging.Level))
		}
	}
}

func (a *App) checkpointLoop(ctx context.Context) {
	defer a.wg.Done()
	t := time.NewTicker(a.saveEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := a.ckpt.Save(sctx, toStorage(a.store.Checkpoint()))
			cancel()
			if err != nil {
				a.log.Warn("checkpoint save failed", logx.Err(err))
			}
		}
	}
}

func loggingConfig(lc config.LoggingConfig) logx.Config {
	console := lc.Console == nil || *lc.Console
	return logx.Config{
		Level:   lc.Level,
		Console: console,
		File: logx.FileConfig{
			Enabled: lc.File.Enabled,
			Path:    lc.File.Path,
		},
	}
}

func schedulerConfig(sc config.SchedulerConfig) (sched.Config, error) {
	minPoll, err := config.ParseDurationOrDefault("scheduler.min_poll", sc.MinPoll, 0)
	if err != nil {
		return sched.Config{}, err
	}
	maxPoll, err := config.ParseDurationOrDefault("scheduler.max_poll", sc.MaxPoll, 0)
	if err != nil {
		return sched.Config{}, err
	}
	defTimeout, err := config.ParseDurationOrDefault("scheduler.default_timeout", sc.DefaultTimeout, 0)
	if err != nil {
		return sched.Config{}, err
	}
	return sched.Config{
		MinPoll:        minPoll,
		MaxPoll:        maxPoll,
		DefaultTimeout: defTimeout,
		HistorySize:    sc.HistorySize,
	}, nil
}

// TriggerSpec maps the on-disk trigger form to the scheduler's spec.
func TriggerSpec(tc config.TriggerConfig) (sched.TriggerSpec, error) {
	var spec sched.TriggerSpec

	switch strings.ToLower(strings.TrimSpace(tc.Kind)) {
	case "interval":
		spec.Kind = sched.TriggerInterval
		every, err := config.ParseDurationField("trigger.every", tc.Every)
		if err != nil {
			return spec, err
		}
		spec.Every = every

	case "fixed_time":
		spec.Kind = sched.TriggerFixedTime
		spec.At = tc.At
		for _, d := range tc.Days {
			wd, err := parseWeekday(d)
			if err != nil {
				return spec, err
			}
			spec.Days = append(spec.Days, wd)
		}

	case "fs_change":
		spec.Kind = sched.TriggerFilesystemChange
		spec.Path = tc.Path
		spec.Pattern = tc.Pattern
		poll, err := config.ParseDurationOrDefault("trigger.poll_every", tc.PollEvery, 0)
		if err != nil {
			return spec, err
		}
		spec.PollEvery = poll

	default:
		return spec, fmt.Errorf("unknown trigger kind %q", tc.Kind)
	}

	return spec, spec.Validate()
}

func parseWeekday(s string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sun", "sunday":
		return time.Sunday, nil
	case "mon", "monday":
		return time.Monday, nil
	case "tue", "tues", "tuesday":
		return time.Tuesday, nil
	case "wed", "wednesday":
		return time.Wednesday, nil
	case "thu", "thur", "thursday":
		return time.Thursday, nil
	case "fri", "friday":
		return time.Friday, nil
	case "sat", "saturday":
		return time.Saturday, nil
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

// validate is the reload-time config check: structure and trigger specs must
// parse even though most changes only apply after a restart.
func validate(cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("empty config")
	}
	if _, err := schedulerConfig(cfg.Scheduler); err != nil {
		return err
	}
	seen := map[string]bool{}
	for _, jc := range cfg.Jobs {
		if strings.TrimSpace(jc.Name) == "" {
			return fmt.Errorf("job with empty name")
		}
		if seen[jc.Name] {
			return fmt.Errorf("duplicate job name %q", jc.Name)
		}
		seen[jc.Name] = true
		if _, err := TriggerSpec(jc.Trigger); err != nil {
			return fmt.Errorf("job %q: %w", jc.Name, err)
		}
	}
	return nil
}

func toStorage(states map[string]sched.JobState) map[string]storage.JobState {
	out := make(map[string]storage.JobState, len(states))
	for name, st := range states {
		out[name] = storage.JobState{
			LastRun:     st.LastRun,
			LastOutcome: st.LastOutcome.String(),
			RunCount:    st.RunCount,
		}
	}
	return out
}

func fromStorage(states map[string]storage.JobState) map[string]sched.JobState {
	out := make(map[string]sched.JobState, len(states))
	for name, st := range states {
		out[name] = sched.JobState{
			LastRun:     st.LastRun,
			LastOutcome: sched.ParseOutcomeKind(st.LastOutcome),
			RunCount:    st.RunCount,
		}
	}
	return out
}
