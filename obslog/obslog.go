// Package obslog is the diagnostic logging seam shared by dwcas, tlocal and
// pool.
//
// Grounded on eventloop/logging.go, which keeps a package-level, swappable
// structured logger behind a sync.RWMutex specifically "to allow external
// integration with logging frameworks like zerolog, logrus, etc." This
// package wires the actual framework already present in this module's
// dependency graph, github.com/joeycumines/logiface, instead of hand-rolling
// a parallel interface.
package obslog

import (
	"sync"

	"github.com/joeycumines/logiface"
)

// Event is the logiface.Event implementation used for every diagnostic
// emitted by this module. It keeps only what the pool/tlocal/dwcas packages
// actually emit: a level, a message, and a small set of string/int fields.
type Event struct {
	logiface.UnimplementedEvent
	level  logiface.Level
	msg    string
	fields []Field
}

// Field is a single structured attribute attached to an Event.
type Field struct {
	Key string
	Val any
}

func (e *Event) Level() logiface.Level { return e.level }

func (e *Event) AddField(key string, val any) {
	e.fields = append(e.fields, Field{Key: key, Val: val})
}

func (e *Event) AddMessage(msg string) bool {
	e.msg = msg
	return true
}

func (e *Event) AddString(key, val string) bool { e.AddField(key, val); return true }
func (e *Event) AddInt(key string, val int) bool { e.AddField(key, val); return true }
func (e *Event) AddInt64(key string, val int64) bool { e.AddField(key, val); return true }
func (e *Event) AddUint64(key string, val uint64) bool { e.AddField(key, val); return true }
func (e *Event) AddBool(key string, val bool) bool { e.AddField(key, val); return true }

// Message returns the event's message, for Writer implementations.
func (e *Event) Message() string { return e.msg }

// Fields returns the event's attached fields, for Writer implementations.
func (e *Event) Fields() []Field { return e.fields }

var factory = logiface.NewEventFactoryFunc[*Event](func(level logiface.Level) *Event {
	return &Event{level: level}
})

var releaser = logiface.NewEventReleaserFunc[*Event](func(event *Event) {
	event.msg = ""
	event.fields = event.fields[:0]
})

// discardWriter is the zero-config sink: diagnostics are dropped unless a
// caller opts in via SetLogger.
type discardWriter struct{}

func (discardWriter) Write(*Event) error { return nil }

var (
	mu      sync.RWMutex
	current = logiface.New[*Event](
		logiface.WithEventFactory[*Event](factory),
		logiface.WithEventReleaser[*Event](releaser),
		logiface.WithWriter[*Event](discardWriter{}),
		logiface.WithLevel[*Event](logiface.LevelInformational),
	)
)

// Logger returns the currently configured diagnostic logger.
func Logger() *logiface.Logger[*Event] {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// SetLogger installs a new diagnostic logger, replacing whatever sink was
// previously configured. Intended to be called once at process start; it is
// safe to call concurrently, with races against in-flight log calls reading
// the old logger resolved as "either the old or new logger observes the
// call", never a torn one.
func SetLogger(l *logiface.Logger[*Event]) {
	mu.Lock()
	defer mu.Unlock()
	current = l
}
