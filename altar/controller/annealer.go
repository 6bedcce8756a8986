// Package controller implements the Annealer outer cooling loop,
// grounded directly on AlTar's Annealer.py: notify simulationStart,
// start the worker, loop top/cool/walk/resample/bottom until beta is
// within tolerance of one, then finish and notify simulationFinish.
package controller

import (
	"fmt"
	"math/rand"

	altar "github.com/inference-sim/altar"
	"github.com/inference-sim/altar/dispatch"
)

// JobLayout mirrors the job.mode/hosts/tasks/gpus parameters the
// original deduceAnnealingMethod switches on, carried here as a plain
// struct rather than a framework-level job object.
type JobLayout struct {
	Mode string // "mpi" or "" (shared-memory)
	Hosts int
	Tasks int
	Gpus  int
}

// Annealer wires the sampler, scheduler, dispatcher and archiver
// together and drives the cooling loop.
type Annealer struct {
	Worker     altar.Worker
	Dispatcher *dispatch.Dispatcher
	Archiver   altar.Archiver

	// ModelRNG seeds the model's own parameter initialization
	// (distinct from the scheduler/sampler/worker streams; see
	// altar/rng.SubsystemScheduler and friends).
	ModelRNG *rand.Rand

	// Tolerance is how close beta must get to 1 before the loop stops
	// (default 1e-3).
	Tolerance float64

	// Checkpoint, if non-nil, is called once per beta-step after
	// bottom; wiring it to Archiver.PersistCheckpoint is the common
	// case but left to the caller so tests can stub it out.
	Checkpoint func(step *altar.CoolingStep) error
}

// New builds an Annealer. tolerance defaults to 1e-3 when zero.
func New(worker altar.Worker, dispatcher *dispatch.Dispatcher, archiver altar.Archiver, modelRNG *rand.Rand, tolerance float64) *Annealer {
	if tolerance == 0 {
		tolerance = 1e-3
	}
	return &Annealer{Worker: worker, Dispatcher: dispatcher, Archiver: archiver, ModelRNG: modelRNG, Tolerance: tolerance}
}

// Posterior drives the annealing loop to convergence against model and
// persists the final state via Archiver. It mirrors Annealer.posterior
// beat for beat.
func (a *Annealer) Posterior(model altar.Model) error {
	if err := model.Initialize(a.ModelRNG); err != nil {
		return fmt.Errorf("controller: initializing model: %w", err)
	}

	a.Dispatcher.Notify(dispatch.SimulationStart, dispatch.Context{})

	if err := a.Worker.Start(model); err != nil {
		a.Dispatcher.Notify(dispatch.SimulationFinish, dispatch.Context{Err: err})
		return fmt.Errorf("controller: starting worker: %w", err)
	}

	for a.Worker.Step().Beta+a.Tolerance < 1 {
		a.Dispatcher.Notify(dispatch.BetaStart, dispatch.Context{Step: a.Worker.Step()})
		a.Worker.Top()

		if err := a.Worker.Cool(); err != nil {
			a.Dispatcher.Notify(dispatch.SimulationFinish, dispatch.Context{Err: err})
			return fmt.Errorf("controller: cooling: %w", err)
		}

		a.Dispatcher.Notify(dispatch.WalkChainsStart, dispatch.Context{Step: a.Worker.Step()})
		tally, err := a.Worker.Walk()
		if err != nil {
			a.Dispatcher.Notify(dispatch.SimulationFinish, dispatch.Context{Err: err})
			return fmt.Errorf("controller: walking chains: %w", err)
		}
		a.Dispatcher.Notify(dispatch.WalkChainsFinish, dispatch.Context{Step: a.Worker.Step(), Tally: tally})

		a.Dispatcher.Notify(dispatch.ResampleStart, dispatch.Context{Step: a.Worker.Step(), Tally: tally})
		a.Worker.Resample(tally)
		a.Dispatcher.Notify(dispatch.ResampleFinish, dispatch.Context{Step: a.Worker.Step(), Tally: tally})

		a.Worker.Bottom()
		a.Dispatcher.Notify(dispatch.BetaFinish, dispatch.Context{Step: a.Worker.Step(), Tally: tally})

		if a.Checkpoint != nil {
			if err := a.Checkpoint(a.Worker.Step()); err != nil {
				return fmt.Errorf("controller: checkpointing: %w", err)
			}
		}
	}

	if err := a.Worker.Finish(); err != nil {
		return fmt.Errorf("controller: finishing worker: %w", err)
	}

	if a.Archiver != nil {
		if err := a.Archiver.PersistFinal(a.Worker.Step(), model); err != nil {
			return fmt.Errorf("controller: persisting final state: %w", err)
		}
	}

	a.Dispatcher.Notify(dispatch.SimulationFinish, dispatch.Context{Step: a.Worker.Step()})
	return nil
}
