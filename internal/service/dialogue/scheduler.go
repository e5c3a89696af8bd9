package dialogue

import (
	"time"

	"github.com/seu-repo/concierge/internal/ports"
)

type clockScheduler struct{}

// NewScheduler returns a Scheduler backed by time.AfterFunc
func NewScheduler() ports.Scheduler {
	return clockScheduler{}
}

func (clockScheduler) AfterFunc(d time.Duration, f func()) ports.Timer {
	return time.AfterFunc(d, f)
}
