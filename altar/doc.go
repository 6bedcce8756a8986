// Package altar provides the core of a parallel transitional Markov-chain
// Monte Carlo (CATMIP / Ching-Chen) engine for Bayesian posterior inference.
//
// # Reading Guide
//
// Start with these files to understand the inference kernel:
//   - cooling_step.go: CoolingStep, the value object carried through the cooling loop
//   - contracts.go: the Distribution, ParameterSet and Model interfaces
//   - apperror is a separate package; errors returned here are plain errors
//     that callers (cmd) wrap in its typed values
//
// # Architecture
//
// The altar package defines the shared value types and interfaces;
// implementations live in sub-packages:
//   - altar/distributions/: prior families (uniform, gaussian, unit-gaussian)
//   - altar/models/: concrete Bayesian models (null, 1-D gaussian, linear)
//   - altar/scheduler/: the COV annealing scheduler
//   - altar/sampler/: the Metropolis sampler
//   - altar/worker/: the sequential/threaded/distributed/CUDA worker hierarchy
//   - altar/controller/: the Annealer outer loop
//   - altar/dispatch/: the fixed event set and observer registration
//   - altar/monitor/: dispatcher-driven observers (profiler, progress)
//   - altar/archiver/: end-of-run and per-beta persistence
//   - altar/rng/: deterministic, rank-partitioned random streams
//
// Sub-packages register pluggable implementations (distributions, samplers,
// schedulers) via init() functions against the registries in this
// package, rather than the constructors being wired together by hand.
// Workers have no registry; controller.BuildWorker constructs them.
package altar
