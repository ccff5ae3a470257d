// Package monitor turns environment signals reported by the test
// surface into at-most-one violation per attempt. The monitor is a
// deterrent and detector, not a sandbox: visibility and focus loss are
// the violation triggers, clipboard and devtools suppression is
// preventive only.
package monitor

import (
	"sync"

	"github.com/ledionnezirii/germanmaster-sub001/internal/model"
)

// SignalType is a raw environment signal from a concrete adapter
// (browser events over the WS stream, a desktop hook, etc).
type SignalType string

const (
	SignalVisibilityHidden SignalType = "visibility_hidden"
	SignalWindowBlur       SignalType = "window_blur"
	SignalCopy             SignalType = "copy"
	SignalCut              SignalType = "cut"
	SignalPaste            SignalType = "paste"
	SignalSelectAll        SignalType = "select_all"
	SignalPrint            SignalType = "print"
	SignalContextMenu      SignalType = "context_menu"
	SignalDevTools         SignalType = "devtools"
	SignalCancelRequested  SignalType = "cancel_requested"
)

// Severity classifies what a signal does to the attempt.
type Severity int

const (
	// SeverityIgnore: unknown signal, dropped.
	SeverityIgnore Severity = iota
	// SeverityTamper: suppressed on the client and logged server-side,
	// but not a violation by itself.
	SeverityTamper
	// SeverityViolation: terminates the attempt.
	SeverityViolation
)

// Classify maps a raw signal onto its severity and, for violations,
// the violation kind recorded against the attempt.
func Classify(sig SignalType) (model.ViolationKind, Severity) {
	switch sig {
	case SignalVisibilityHidden:
		return model.ViolationTabSwitch, SeverityViolation
	case SignalWindowBlur:
		return model.ViolationWindowBlur, SeverityViolation
	case SignalCancelRequested:
		return model.ViolationCancelled, SeverityViolation
	case SignalCopy, SignalCut, SignalPaste, SignalSelectAll,
		SignalPrint, SignalContextMenu, SignalDevTools:
		return "", SeverityTamper
	}
	return "", SeverityIgnore
}

// IntegrityMonitor is the capability interface the controller depends
// on; concrete adapters feed Observe from their event source.
type IntegrityMonitor interface {
	Arm()
	Disarm()
	OnViolation(fn func(kind model.ViolationKind))
	Observe(sig SignalType) Severity
}

// Monitor is the default IntegrityMonitor. A violation is honored
// exactly once per armed period; every later signal is a no-op. The
// callback runs synchronously on the observing goroutine so the
// terminal transition completes before any further event is processed.
type Monitor struct {
	mu     sync.Mutex
	armed  bool
	raised bool
	fn     func(kind model.ViolationKind)
}

// New creates a disarmed Monitor.
func New() *Monitor {
	return &Monitor{}
}

// OnViolation registers the violation callback.
func (m *Monitor) OnViolation(fn func(kind model.ViolationKind)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fn = fn
}

// Arm starts honoring violation signals and resets the idempotency flag.
func (m *Monitor) Arm() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.armed = true
	m.raised = false
}

// Disarm stops honoring signals.
func (m *Monitor) Disarm() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.armed = false
}

// Observe processes one signal and returns its severity. The first
// violating signal while armed invokes the callback synchronously;
// near-simultaneous duplicates (blur followed by hidden) collapse into
// one.
func (m *Monitor) Observe(sig SignalType) Severity {
	kind, sev := Classify(sig)
	if sev != SeverityViolation {
		return sev
	}

	m.mu.Lock()
	if !m.armed || m.raised {
		m.mu.Unlock()
		return sev
	}
	m.raised = true
	fn := m.fn
	m.mu.Unlock()

	if fn != nil {
		fn(kind)
	}
	return sev
}
