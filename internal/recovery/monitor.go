package recovery

import (
	"log/slog"
	"net/url"
	"path"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const defaultResetAfter = 5 * time.Second

// stalePhrases are the messages browsers and bundlers emit when a hashed
// chunk disappears after a redeploy rotated the asset filenames.
var stalePhrases = []string{
	"failed to fetch dynamically imported module",
	"error loading dynamically imported module",
	"importing a module script failed",
	"chunkloaderror",
}

var scriptExtRe = regexp.MustCompile(`\.m?js\b`)

// Store holds the reload guard flag. CompareAndSwap must be atomic; the
// monitor relies on it to keep reloads at one per episode when
// notifications race.
type Store interface {
	Get() bool
	CompareAndSwap(old, new bool) bool
	Clear()
}

// Monitor watches for the failure signature of clients that kept running
// after their hashed assets were replaced underneath them, and triggers at
// most one reload per failure episode. A quiet period re-arms it so a
// later, independent episode gets its own recovery attempt.
type Monitor struct {
	store      Store
	reload     func()
	resetAfter time.Duration
	logger     *slog.Logger

	installed atomic.Bool

	mu    sync.Mutex
	timer *time.Timer
}

// Config configures a Monitor. Reload is required; a nil Store gets an
// in-memory SessionStore and a zero ResetAfter falls back to a few seconds.
type Config struct {
	Store      Store
	Reload     func()
	ResetAfter time.Duration
	Logger     *slog.Logger
}

// NewMonitor creates a Monitor. It does nothing until Install is called.
func NewMonitor(cfg Config) *Monitor {
	m := &Monitor{
		store:      cfg.Store,
		reload:     cfg.Reload,
		resetAfter: cfg.ResetAfter,
		logger:     cfg.Logger,
	}
	if m.store == nil {
		m.store = NewSessionStore()
	}
	if m.resetAfter <= 0 {
		m.resetAfter = defaultResetAfter
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

// Install arms the monitor and schedules the guard to clear after the
// quiet period, so a flag left over from a previous episode cannot
// suppress the next genuine failure. Repeat calls are no-ops.
func (m *Monitor) Install() {
	if !m.installed.CompareAndSwap(false, true) {
		return
	}
	m.scheduleReset()
}

// Stop cancels the pending re-arm timer. The monitor stops triggering
// reloads once stopped.
func (m *Monitor) Stop() {
	if !m.installed.CompareAndSwap(true, false) {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// Armed reports whether the next qualifying failure would trigger a
// reload.
func (m *Monitor) Armed() bool {
	return m.installed.Load() && !m.store.Get()
}

// Reset clears the guard immediately, making the monitor eligible to
// reload again without waiting out the quiet period.
func (m *Monitor) Reset() {
	m.store.Clear()
}

// NotifyResourceError reports a failed load of the resource at ref.
// Script-like resources qualify as a stale-asset signal; anything else is
// ignored. Reports whether a reload was triggered.
func (m *Monitor) NotifyResourceError(ref string) bool {
	if !scriptLike(ref) {
		return false
	}
	return m.trigger("resource load failure", ref)
}

// NotifyRejection reports an unhandled asynchronous rejection from a
// client. Only messages with known stale-chunk phrasing that also
// reference a script-like file qualify; rejections that merely mention
// similar words are ignored. Reports whether a reload was triggered.
func (m *Monitor) NotifyRejection(message string) bool {
	if !rejectionQualifies(message) {
		return false
	}
	return m.trigger("stale chunk rejection", message)
}

func (m *Monitor) trigger(reason, detail string) bool {
	if !m.installed.Load() {
		return false
	}
	if !m.store.CompareAndSwap(false, true) {
		m.logger.Debug("reload already attempted this episode, suppressing",
			"reason", reason, "detail", detail)
		return false
	}

	m.logger.Warn("stale asset failure detected, reloading",
		"reason", reason, "detail", detail)
	m.scheduleReset()
	if m.reload != nil {
		m.reload()
	}
	return true
}

func (m *Monitor) scheduleReset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = time.AfterFunc(m.resetAfter, m.store.Clear)
}

// scriptLike reports whether ref points at a script asset. Query strings
// and fragments do not count toward the extension.
func scriptLike(ref string) bool {
	if u, err := url.Parse(ref); err == nil && u.Path != "" {
		ref = u.Path
	}
	switch strings.ToLower(path.Ext(ref)) {
	case ".js", ".mjs":
		return true
	}
	return false
}

func rejectionQualifies(message string) bool {
	lower := strings.ToLower(message)
	if !scriptExtRe.MatchString(lower) {
		return false
	}
	for _, phrase := range stalePhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
