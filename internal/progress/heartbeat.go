package progress

import (
	"context"
	"time"
)

// Heartbeat calls Poll on t every interval until t leaves Running or ctx is
// done. It returns the state it stopped in.
func Heartbeat(ctx context.Context, t *Tracker, interval time.Duration) State {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s := t.State()
		if s.Phase != Running {
			return s
		}

		select {
		case <-ctx.Done():
			return t.State()
		case <-ticker.C:
			t.Poll()
		}
	}
}
