package app

import (
	"fmt"
	"sync"
	"time"
)

// Status is the single line of feedback shown to the user. Every message
// is stamped with the local time of day.
type Status struct {
	mu      sync.Mutex
	message string
	now     func() time.Time
	publish func(Event)
}

func newStatus(publish func(Event)) *Status {
	return &Status{now: time.Now, publish: publish}
}

// Set replaces the status line with "(15:04:05) text".
func (s *Status) Set(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.message = fmt.Sprintf("(%s) %s", s.now().Format("15:04:05"), text)
	log.Info(text)
	if s.publish != nil {
		s.publish(Event{Kind: EventStatus, Message: s.message})
	}
}

// Message returns the current status line.
func (s *Status) Message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.message
}
