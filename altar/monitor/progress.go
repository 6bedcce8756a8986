package monitor

import (
	"github.com/sirupsen/logrus"

	"github.com/inference-sim/altar/dispatch"
)

// Progress logs one line per completed beta-step at Info level,
// including the accept/reject/unlikely tally for that step.
type Progress struct{}

func NewProgress() *Progress { return &Progress{} }

func (p *Progress) Name() string { return "progress" }

func (p *Progress) Subscriptions() map[dispatch.Event]dispatch.Handler {
	return map[dispatch.Event]dispatch.Handler{
		dispatch.SimulationStart:  p.onSimulationStart,
		dispatch.BetaFinish:       p.onBetaFinish,
		dispatch.SimulationFinish: p.onSimulationFinish,
	}
}

func (p *Progress) onSimulationStart(ctx dispatch.Context) {
	logrus.Info("altar: simulation started")
}

func (p *Progress) onBetaFinish(ctx dispatch.Context) {
	if ctx.Step == nil {
		return
	}
	logrus.Infof("altar: beta=%.6f iteration=%d accepted=%d rejected=%d unlikely=%d",
		ctx.Step.Beta, ctx.Step.Iteration, ctx.Tally.Accepted, ctx.Tally.Rejected, ctx.Tally.Unlikely)
}

func (p *Progress) onSimulationFinish(ctx dispatch.Context) {
	if ctx.Err != nil {
		logrus.Errorf("altar: simulation finished with error: %v", ctx.Err)
		return
	}
	logrus.Info("altar: simulation finished")
}
