package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/alaincodes24/taskdeck/internal/notify"
)

// NoticeMsg delivers a store notice to the app
type NoticeMsg struct {
	Notice notify.Notice
}

// eventMsg wraps a message that arrived through Events, so the app knows
// to listen for the next one
type eventMsg struct {
	msg tea.Msg
}

// Events moves messages from store callbacks into the program. Stores
// publish from command goroutines and Program.Send must not be called from
// inside Update, so messages queue here and the app drains them with a
// command it re-arms after every delivery.
type Events struct {
	ch   chan tea.Msg
	done chan struct{}
	once sync.Once
}

func NewEvents() *Events {
	return &Events{
		ch:   make(chan tea.Msg, 64),
		done: make(chan struct{}),
	}
}

// Notify implements notify.Notifier
func (e *Events) Notify(n notify.Notice) {
	e.Send(NoticeMsg{Notice: n})
}

// Send queues msg, blocking while the queue is full. After Close it is
// a no-op.
func (e *Events) Send(msg tea.Msg) {
	select {
	case <-e.done:
	case e.ch <- msg:
	}
}

// Close releases blocked senders and the pending listen command
func (e *Events) Close() {
	e.once.Do(func() { close(e.done) })
}

func (e *Events) listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-e.ch:
			return eventMsg{msg: msg}
		case <-e.done:
			return nil
		}
	}
}
