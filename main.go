package main

import (
	"github.com/inference-sim/altar/cmd"

	// Blank-imported so their init() registers with the altar.Distribution
	// and altar.Sampler registries before any config is loaded.
	_ "github.com/inference-sim/altar/distributions"
	_ "github.com/inference-sim/altar/sampler"
)

func main() {
	cmd.Execute()
}
