// internal/app/system/workers/meetingsweep.go
package workers

import (
	"context"
	"sync"
	"time"

	meetingstore "github.com/knowledgeconnect/knowledgeconnect/internal/app/store/meetings"
	"go.uber.org/zap"
)

// MeetingSweep is a background worker that moves meetings whose
// scheduled window has passed to the completed status, so stale
// "scheduled" rows do not linger when organizers forget to close them.
type MeetingSweep struct {
	meetings *meetingstore.Store
	log      *zap.Logger
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewMeetingSweep creates a sweep worker that runs every interval.
func NewMeetingSweep(meetings *meetingstore.Store, logger *zap.Logger, interval time.Duration) *MeetingSweep {
	return &MeetingSweep{
		meetings: meetings,
		log:      logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background sweep loop.
func (w *MeetingSweep) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("meeting sweep worker started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *MeetingSweep) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("meeting sweep worker stopped")
}

func (w *MeetingSweep) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *MeetingSweep) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := w.meetings.CompleteElapsed(ctx)
	if err != nil {
		w.log.Error("failed to complete elapsed meetings", zap.Error(err))
		return
	}
	if count > 0 {
		w.log.Info("completed elapsed meetings", zap.Int64("count", count))
	}
}
