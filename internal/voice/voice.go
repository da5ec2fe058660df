// Package voice carries synthesized speech from the dialog and the
// scheduler to whatever renders or plays it.
package voice

import (
	"sync"
	"time"

	"planvoice/internal/clock"
)

// Speaker accepts one utterance at a time. Implementations decide what
// happens to lines the listener never got to hear.
type Speaker interface {
	Speak(text string)
}

// Line is a single spoken utterance.
type Line struct {
	Text string
	At   time.Time
}

// Queue is a Speaker with flush-on-new-speak semantics: a line that has
// not been consumed yet is discarded when the next one arrives, so the
// listener always hears the latest prompt instead of a backlog.
type Queue struct {
	mu    sync.Mutex
	clock clock.Clock
	lines chan Line
}

func NewQueue(clk clock.Clock) *Queue {
	return &Queue{
		clock: clk,
		lines: make(chan Line, 1),
	}
}

func (q *Queue) Speak(text string) {
	line := Line{Text: text, At: q.clock.Now()}
	q.mu.Lock()
	defer q.mu.Unlock()
	select {
	case <-q.lines:
	default:
	}
	q.lines <- line
}

// Lines is the consumer side of the queue.
func (q *Queue) Lines() <-chan Line {
	return q.lines
}
