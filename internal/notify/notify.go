// Package notify carries user-facing messages from the stores to whatever
// displays them. The stores decide what to say; sinks decide how.
package notify

import (
	"log"
	"sync"
)

type Level int

const (
	Success Level = iota
	Info
	Error
)

func (l Level) String() string {
	switch l {
	case Success:
		return "success"
	case Info:
		return "info"
	case Error:
		return "error"
	}
	return "unknown"
}

// Notice is a transient message for the user
type Notice struct {
	Level       Level
	Title       string
	Description string
}

type Notifier interface {
	Notify(Notice)
}

// Func adapts a function to Notifier
type Func func(Notice)

func (f Func) Notify(n Notice) { f(n) }

// Discard drops every notice
var Discard Notifier = Func(func(Notice) {})

// Logger writes notices to a log.Logger
type Logger struct {
	L *log.Logger
}

func (l Logger) Notify(n Notice) {
	l.L.Printf("[%s] %s: %s", n.Level, n.Title, n.Description)
}

// Recorder keeps every notice it receives
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
}

// Notices returns a copy of what was recorded
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

// Last returns the most recent notice, if any
func (r *Recorder) Last() (Notice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}, false
	}
	return r.notices[len(r.notices)-1], true
}

// Reset forgets recorded notices
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.notices = nil
	r.mu.Unlock()
}

// Multi fans a notice out to several notifiers
func Multi(ns ...Notifier) Notifier {
	return Func(func(n Notice) {
		for _, x := range ns {
			x.Notify(n)
		}
	})
}
