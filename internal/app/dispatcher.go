package app

import (
	"errors"

	"github.com/dkeye/Poker/internal/core"
	"github.com/dkeye/Poker/internal/domain"
	"github.com/dkeye/Poker/internal/metrics"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/panics"
)

var ErrNoSignal = errors.New("member has no signal connection")

// Dispatcher is the broadcast fan-out. A failure on one recipient is
// logged and reported, the rest still get the frame.
type Dispatcher struct{}

func NewDispatcher() *Dispatcher { return &Dispatcher{} }

func (d *Dispatcher) Publish(room domain.RoomID, targets []core.MemberSession, f core.Frame) core.PublishResult {
	res := core.PublishResult{}
	for _, ms := range targets {
		if err := d.deliver(ms, f); err != nil {
			log.Warn().Err(err).Str("module", "app.dispatch").Str("room", string(room)).
				Str("sid", string(ms.ID())).Msg("delivery failed")
			res.Dropped = append(res.Dropped, ms)
			continue
		}
		res.SendTo++
	}
	metrics.FramesSent.Add(float64(res.SendTo))
	metrics.FramesDropped.Add(float64(len(res.Dropped)))
	log.Debug().Str("module", "app.dispatch").Str("room", string(room)).Int("sent_to", res.SendTo).
		Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

func (d *Dispatcher) deliver(ms core.MemberSession, f core.Frame) error {
	var err error
	var pc panics.Catcher
	pc.Try(func() {
		sig := ms.Signal()
		if sig == nil {
			err = ErrNoSignal
			return
		}
		err = sig.TrySend(f)
	})
	if r := pc.Recovered(); r != nil {
		return r.AsError()
	}
	return err
}
