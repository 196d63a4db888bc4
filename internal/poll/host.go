package poll

import (
	"context"
	"time"

	"quizroom-service/internal/app"
)

// HostPoller is the host-side sync client. Each tick re-reads the roster and
// the submission queue for the current question; for automatic-evaluation
// modes that read evaluates and scores pending submissions as a side effect,
// so the tick itself is the evaluator.
type HostPoller struct {
	rooms      *app.RoomService
	roomID     string
	hostToken  string
	interval   time.Duration
	onSnapshot func(app.HostSnapshot)
}

func NewHostPoller(rooms *app.RoomService, roomID, hostToken string, interval time.Duration, onSnapshot func(app.HostSnapshot)) *HostPoller {
	if interval <= 0 {
		interval = DefaultHostInterval
	}
	return &HostPoller{
		rooms:      rooms,
		roomID:     roomID,
		hostToken:  hostToken,
		interval:   interval,
		onSnapshot: onSnapshot,
	}
}

// Run polls until ctx is cancelled; cancel it when the host view is torn down.
func (p *HostPoller) Run(ctx context.Context) {
	runTicks(ctx, "host", p.interval, p.tick)
}

func (p *HostPoller) tick(ctx context.Context) error {
	snapshot, err := p.rooms.Snapshot(ctx, p.roomID, p.hostToken)
	if err != nil {
		return err
	}
	if p.onSnapshot != nil {
		p.onSnapshot(snapshot)
	}
	return nil
}
