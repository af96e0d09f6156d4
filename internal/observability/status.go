// Package observability provides the shared status log: timestamped progress
// messages kept in a bounded ring and fanned out to live subscribers.
package observability

import (
	"fmt"
	"sync"
	"time"
)

// ringSize is how many recent messages the log retains.
const ringSize = 50

// StatusLog records progress messages from the pipeline. It keeps the most
// recent messages for status queries and pushes each new message to every
// subscriber. Safe for concurrent use.
type StatusLog struct {
	mu          sync.Mutex
	messages    []string
	subscribers map[chan string]struct{}
	echo        bool
	now         func() time.Time
}

// NewStatusLog creates a StatusLog. When echo is true every message is also
// printed to stdout.
func NewStatusLog(echo bool) *StatusLog {
	return &StatusLog{
		subscribers: make(map[chan string]struct{}),
		echo:        echo,
		now:         time.Now,
	}
}

// Logf formats, timestamps, and records a message.
func (s *StatusLog) Logf(format string, args ...interface{}) {
	msg := fmt.Sprintf("[%s] %s", s.now().Format("15:04:05"), fmt.Sprintf(format, args...))

	s.mu.Lock()
	s.messages = append(s.messages, msg)
	if len(s.messages) > ringSize {
		s.messages = s.messages[len(s.messages)-ringSize:]
	}
	for ch := range s.subscribers {
		// Never block the pipeline on a slow consumer.
		select {
		case ch <- msg:
		default:
		}
	}
	s.mu.Unlock()

	if s.echo {
		fmt.Println(msg)
	}
}

// Recent returns up to n of the most recent messages, oldest first.
// n <= 0 returns everything retained.
func (s *StatusLog) Recent(n int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n <= 0 || n > len(s.messages) {
		n = len(s.messages)
	}
	out := make([]string, n)
	copy(out, s.messages[len(s.messages)-n:])
	return out
}

// Subscribe registers a channel that receives every subsequent message.
// The returned cancel function removes the subscription and closes the
// channel; it is safe to call more than once.
func (s *StatusLog) Subscribe() (<-chan string, func()) {
	ch := make(chan string, 16)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, ch)
			s.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}
