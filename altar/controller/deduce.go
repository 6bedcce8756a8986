package controller

import (
	"math/rand"

	altar "github.com/inference-sim/altar"
	"github.com/inference-sim/altar/rng"
	"github.com/inference-sim/altar/worker"
)

// SamplerFactory builds a fresh Sampler instance, called once per leaf
// worker so threaded/distributed workers each get their own proposal
// state.
type SamplerFactory func() altar.Sampler

// BuildWorker deduces and builds the annealing worker hierarchy for
// layout, the same decision table as Annealer.deduceAnnealingMethod in
// AlTar's Annealer.py: a threaded worker when tasks or gpus call for
// more than one thread per rank, otherwise a single leaf (CUDA if
// gpus>0, else sequential); in mode "mpi" each rank is built that way
// and the ranks are wrapped in a distributed worker. A threaded worker
// runs its sampler directly and contains no CUDA or sequential leaves.
func BuildWorker(samples int, layout JobLayout, scheduler altar.Scheduler, newSampler SamplerFactory, partitioned *rng.PartitionedRNG) altar.Worker {
	leaf := func(deviceID, leafSamples int, leafRNG *rand.Rand) altar.Worker {
		if layout.Gpus > 0 {
			return worker.NewCUDA(deviceID, leafSamples, newSampler(), scheduler, leafRNG)
		}
		return worker.New(leafSamples, newSampler(), scheduler, leafRNG)
	}

	if layout.Mode != "mpi" {
		if layout.Gpus > 1 || layout.Tasks > 1 {
			threads := layout.Tasks * layout.Gpus
			if threads == 0 {
				threads = layout.Tasks
			}
			if threads == 0 {
				threads = layout.Gpus
			}
			return worker.NewThreaded(samples, threads, newSampler(), scheduler, partitioned)
		}
		return leaf(0, samples, partitioned.ForSubsystem(rng.SubsystemDistributed))
	}

	// mode == "mpi": ranks map onto hosts*tasks, each rank either a
	// single leaf or, when gpus>1, a threaded worker with gpus threads.
	ranks := layout.Hosts * layout.Tasks
	if ranks == 0 {
		ranks = 1
	}
	newRank := func(rank, rankSamples int) altar.Worker {
		if layout.Gpus > 1 {
			// Each rank's threads draw from their own PartitionedRNG,
			// keyed from the rank's stream, so concurrently walking
			// ranks never share a thread stream.
			rankRNG := rng.New(rng.NewSimulationKey(partitioned.ForRank(rank).Int63()))
			return worker.NewThreaded(rankSamples, layout.Gpus, newSampler(), scheduler, rankRNG)
		}
		return leaf(rank, rankSamples, partitioned.ForRank(rank))
	}
	return worker.NewDistributed(ranks, samples, partitioned, newRank, scheduler)
}
