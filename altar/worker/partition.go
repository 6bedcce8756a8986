// Package worker implements the sequential, threaded, distributed and
// CUDA-shaped execution strategies. All four implement the single
// altar.Worker contract. Distributed wraps other Worker values (one
// per rank) by constructor. Threaded does not wrap a leaf worker: it
// holds one Sampler and runs it over disjoint row ranges of its own
// CoolingStep.
package worker

// balancedPartition splits total rows across parts workers, balanced
// by row-count with the remainder distributed to the lowest-ranked
// partitions.
func balancedPartition(total, parts int) []int {
	counts := make([]int, parts)
	base := total / parts
	rem := total % parts
	for i := range counts {
		counts[i] = base
	}
	for i := 0; i < rem; i++ {
		counts[i]++
	}
	return counts
}

// rowOffsets returns the starting row index of each partition given
// its counts.
func rowOffsets(counts []int) []int {
	offsets := make([]int, len(counts))
	sum := 0
	for i, c := range counts {
		offsets[i] = sum
		sum += c
	}
	return offsets
}
