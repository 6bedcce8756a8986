// Package monitor implements dispatch.Monitor observers: a wall-clock
// profiler and a progress logger. The progress logger calls logrus
// package-level functions directly rather than threading a bespoke
// logger abstraction through the dispatcher; the profiler writes only
// its CSV export.
package monitor

import (
	"fmt"
	"os"
	"time"

	"github.com/inference-sim/altar/dispatch"
)

// Profiler times every Start/Finish event pair it is subscribed to and
// accumulates per-beta-step wall-clock durations, exported as CSV on
// simulationFinish.
type Profiler struct {
	Path string

	starts  map[dispatch.Event]time.Time
	samples []profilerRow
	beta    float64
}

type profilerRow struct {
	Beta     float64
	Event    string
	Duration time.Duration
}

// NewProfiler builds a Profiler that writes its CSV export to path
// when the simulation finishes. An empty path disables the export;
// timings are still collected in memory.
func NewProfiler(path string) *Profiler {
	return &Profiler{Path: path, starts: make(map[dispatch.Event]time.Time)}
}

func (p *Profiler) Name() string { return "profiler" }

func (p *Profiler) Subscriptions() map[dispatch.Event]dispatch.Handler {
	return map[dispatch.Event]dispatch.Handler{
		dispatch.BetaStart:              p.start(dispatch.BetaStart),
		dispatch.BetaFinish:             p.finish(dispatch.BetaStart, dispatch.BetaFinish),
		dispatch.WalkChainsStart:        p.start(dispatch.WalkChainsStart),
		dispatch.WalkChainsFinish:       p.finish(dispatch.WalkChainsStart, dispatch.WalkChainsFinish),
		dispatch.PrepareSamplingPDFStart:  p.start(dispatch.PrepareSamplingPDFStart),
		dispatch.PrepareSamplingPDFFinish: p.finish(dispatch.PrepareSamplingPDFStart, dispatch.PrepareSamplingPDFFinish),
		dispatch.ResampleStart:          p.start(dispatch.ResampleStart),
		dispatch.ResampleFinish:         p.finish(dispatch.ResampleStart, dispatch.ResampleFinish),
		dispatch.SimulationFinish:       p.export(),
	}
}

func (p *Profiler) start(event dispatch.Event) dispatch.Handler {
	return func(ctx dispatch.Context) {
		p.starts[event] = time.Now()
		if ctx.Step != nil {
			p.beta = ctx.Step.Beta
		}
	}
}

func (p *Profiler) finish(startEvent, finishEvent dispatch.Event) dispatch.Handler {
	return func(ctx dispatch.Context) {
		start, ok := p.starts[startEvent]
		if !ok {
			return
		}
		p.samples = append(p.samples, profilerRow{
			Beta:     p.beta,
			Event:    string(finishEvent),
			Duration: time.Since(start),
		})
	}
}

func (p *Profiler) export() dispatch.Handler {
	return func(ctx dispatch.Context) {
		if p.Path == "" {
			return
		}
		f, err := os.Create(p.Path)
		if err != nil {
			return
		}
		defer f.Close()
		fmt.Fprintln(f, "beta,event,duration_ms")
		for _, row := range p.samples {
			fmt.Fprintf(f, "%g,%s,%.3f\n", row.Beta, row.Event, float64(row.Duration.Microseconds())/1000)
		}
	}
}
