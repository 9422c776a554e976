package hook

import (
	"log/slog"
	"sync"

	"cookiegate/internal/consent/scripts"
)

// AnalyticsLoader gates one integration on its category. The tag is
// injected once and initialized after injection. Revocation does not remove
// a loaded tag; it stops further events.
type AnalyticsLoader struct {
	hook   *Hook
	doc    scripts.Document
	script scripts.Script
	logger *slog.Logger

	mu     sync.Mutex
	loaded bool
	stop   func()
}

// NewAnalyticsLoader binds script to the hook's state.
func NewAnalyticsLoader(h *Hook, doc scripts.Document, script scripts.Script, logger *slog.Logger) *AnalyticsLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalyticsLoader{hook: h, doc: doc, script: script, logger: logger}
}

// Start evaluates the current state and every later change.
func (l *AnalyticsLoader) Start() {
	l.mu.Lock()
	if l.stop == nil {
		l.stop = l.hook.Watch(l.sync)
	}
	l.mu.Unlock()
	l.sync(l.hook.Snapshot())
}

// Stop detaches from the hook.
func (l *AnalyticsLoader) Stop() {
	l.mu.Lock()
	stop := l.stop
	l.stop = nil
	l.mu.Unlock()
	if stop != nil {
		stop()
	}
}

// Loaded reports whether the tag is present.
func (l *AnalyticsLoader) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded
}

func (l *AnalyticsLoader) sync(snap Snapshot) {
	if snap.Loading || !snap.Categories.Get(l.script.Category) {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loaded {
		return
	}
	if l.doc.HasScript(l.script.ID) {
		l.loaded = true
		return
	}
	if err := l.doc.AppendScript(l.script); err != nil {
		l.logger.Warn("failed to inject script", "script", l.script.ID, "error", err)
		return
	}
	l.loaded = true
	for _, cmd := range l.script.Init {
		if err := l.doc.Exec(cmd); err != nil {
			l.logger.Warn("script init failed", "script", l.script.ID, "error", err)
		}
	}
}

// Track emits one event call. It reports whether the call was emitted: not
// before the tag loads, and never while the category is withdrawn.
func (l *AnalyticsLoader) Track(fn string, args ...any) bool {
	if !l.Loaded() || !l.hook.HasConsent(l.script.Category) {
		return false
	}
	if err := l.doc.Exec(scripts.Command{Fn: fn, Args: args}); err != nil {
		l.logger.Warn("analytics event dropped", "script", l.script.ID, "error", err)
		return false
	}
	return true
}
