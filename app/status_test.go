package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatus_Set(t *testing.T) {
	var published []Event
	s := newStatus(func(e Event) { published = append(published, e) })
	s.now = func() time.Time { return time.Date(2024, 1, 2, 9, 5, 7, 0, time.Local) }

	s.Set("Saving changes...")

	assert.Equal(t, "(09:05:07) Saving changes...", s.Message())
	assert.Equal(t, []Event{{Kind: EventStatus, Message: "(09:05:07) Saving changes..."}}, published)
}
