package worker

import (
	"math/rand"

	altar "github.com/inference-sim/altar"
)

// CUDA is a leaf worker identical in contract to Sequential, tagged
// with the device it would offload its numerics to. The engine's
// numerics (model likelihoods, sampler proposal) stay host-side here;
// no kernel offload happens. CUDA only records the device index a
// leaf (or a Distributed rank's leaf) was assigned.
type CUDA struct {
	*Sequential
	DeviceID int
}

// NewCUDA builds a CUDA-tagged leaf worker for the given device.
func NewCUDA(deviceID, samples int, sampler altar.Sampler, scheduler altar.Scheduler, rng *rand.Rand) *CUDA {
	return &CUDA{Sequential: New(samples, sampler, scheduler, rng), DeviceID: deviceID}
}
