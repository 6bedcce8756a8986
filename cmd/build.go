package cmd

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"gonum.org/v1/gonum/mat"

	altar "github.com/inference-sim/altar"
	"github.com/inference-sim/altar/apperror"
	"github.com/inference-sim/altar/archiver"
	"github.com/inference-sim/altar/controller"
	"github.com/inference-sim/altar/dispatch"
	"github.com/inference-sim/altar/models"
	"github.com/inference-sim/altar/monitor"
	"github.com/inference-sim/altar/rng"
	"github.com/inference-sim/altar/scheduler"
)

// buildParameterSets turns each ParameterSetConfig into a bound
// altar.ParameterSet by looking up its distribution(s) in the
// altar.Distribution registry.
func buildParameterSets(cfgs []ParameterSetConfig) ([]*altar.ParameterSet, error) {
	sets := make([]*altar.ParameterSet, 0, len(cfgs))
	for _, c := range cfgs {
		prior, err := altar.NewDistribution(c.Prior, c.Bounds)
		if err != nil {
			return nil, apperror.New(apperror.Configuration, "buildParameterSets", fmt.Errorf("parameter set %q: %w", c.Name, err))
		}
		set := &altar.ParameterSet{Name: c.Name, Count: c.Count, Prior: prior}
		if c.Prep != "" {
			prep, err := altar.NewDistribution(c.Prep, c.Bounds)
			if err != nil {
				return nil, apperror.New(apperror.Configuration, "buildParameterSets", fmt.Errorf("parameter set %q prep: %w", c.Name, err))
			}
			set.Prep = prep
		}
		sets = append(sets, set)
	}
	return sets, nil
}

// buildModel dispatches on cfg.Kind to construct the concrete Model.
// "null" and "gaussian1d" need only their parameter sets' priors;
// "linear" additionally reads its design matrix, observations and
// data covariance from a CSV file.
func buildModel(cfg ModelConfig) (altar.Model, error) {
	sets, err := buildParameterSets(cfg.Parameters)
	if err != nil {
		return nil, err
	}
	switch cfg.Kind {
	case "", "null":
		if len(sets) == 0 {
			return nil, apperror.New(apperror.Configuration, "buildModel", fmt.Errorf("null model needs one parameter set"))
		}
		return models.NewNull(sets[0].Prior), nil
	case "gaussian1d":
		if len(sets) == 0 {
			return nil, apperror.New(apperror.Configuration, "buildModel", fmt.Errorf("gaussian1d model needs one parameter set"))
		}
		return models.NewGaussian1D(cfg.Observed, cfg.Sigma, sets[0].Prior), nil
	case "linear":
		parameters := 0
		for _, set := range sets {
			parameters += set.Count
		}
		g, d, cd, err := loadLinearData(cfg.Data, parameters)
		if err != nil {
			return nil, err
		}
		m, err := models.NewLinear(g, d, cd, sets)
		if err != nil {
			return nil, apperror.New(apperror.Numerical, "buildModel", err)
		}
		return m, nil
	default:
		return nil, apperror.New(apperror.Configuration, "buildModel", fmt.Errorf("unknown model kind %q", cfg.Kind))
	}
}

// loadLinearData reads a CSV of "y,x1,...,xP,sigma" rows: y is the
// observation, x1..xP the design-matrix row, sigma that observation's
// independent noise standard deviation (so Cd is diagonal).
func loadLinearData(path string, parameters int) (*mat.Dense, []float64, *mat.SymDense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, apperror.New(apperror.IO, "loadLinearData", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, nil, apperror.New(apperror.IO, "loadLinearData", err)
	}

	nObs := len(rows)
	g := mat.NewDense(nObs, parameters, nil)
	d := make([]float64, nObs)
	cd := mat.NewSymDense(nObs, nil)
	for i, row := range rows {
		if len(row) != parameters+2 {
			return nil, nil, nil, apperror.New(apperror.Configuration, "loadLinearData",
				fmt.Errorf("%s row %d: expected %d columns (y,x1..x%d,sigma), got %d", path, i, parameters+2, parameters, len(row)))
		}
		y, err := strconv.ParseFloat(row[0], 64)
		if err != nil {
			return nil, nil, nil, apperror.New(apperror.Configuration, "loadLinearData", fmt.Errorf("%s row %d: %w", path, i, err))
		}
		d[i] = y
		for p := 0; p < parameters; p++ {
			x, err := strconv.ParseFloat(row[1+p], 64)
			if err != nil {
				return nil, nil, nil, apperror.New(apperror.Configuration, "loadLinearData", fmt.Errorf("%s row %d: %w", path, i, err))
			}
			g.Set(i, p, x)
		}
		sigma, err := strconv.ParseFloat(row[len(row)-1], 64)
		if err != nil {
			return nil, nil, nil, apperror.New(apperror.Configuration, "loadLinearData", fmt.Errorf("%s row %d: %w", path, i, err))
		}
		cd.SetSym(i, i, sigma*sigma)
	}
	return g, d, cd, nil
}

// buildAnnealer wires a Config into a ready-to-run controller.Annealer
// and its backing model, registering the progress and profiler
// monitors with the dispatcher.
func buildAnnealer(cfg Config, profilePath string) (*controller.Annealer, altar.Model, error) {
	model, err := buildModel(cfg.Model)
	if err != nil {
		return nil, nil, err
	}

	partitioned := rng.New(rng.NewSimulationKey(cfg.Seed))

	sched, err := altar.NewScheduler(cfg.Scheduler.Kind, map[string]any{
		"target": cfg.Scheduler.Target, "tolerance": cfg.Scheduler.Tolerance, "maxiter": cfg.Scheduler.MaxIter,
	})
	if err != nil {
		return nil, nil, apperror.New(apperror.Configuration, "buildAnnealer", err)
	}
	if cov, ok := sched.(*scheduler.COV); ok {
		if err := cov.Initialize(partitioned.ForSubsystem(rng.SubsystemScheduler)); err != nil {
			return nil, nil, apperror.New(apperror.Configuration, "buildAnnealer", err)
		}
	}

	if _, err := altar.NewSampler(cfg.Sampler.Kind, nil); err != nil {
		return nil, nil, apperror.New(apperror.Configuration, "buildAnnealer", err)
	}
	newSampler := func() altar.Sampler {
		s, _ := altar.NewSampler(cfg.Sampler.Kind, map[string]any{
			"steps": cfg.Sampler.Steps, "scaling": cfg.Sampler.Scaling,
			"acceptanceWeight": cfg.Sampler.AcceptanceWeight, "rejectionWeight": cfg.Sampler.RejectionWeight,
		})
		return s
	}

	layout := controller.JobLayout{Mode: cfg.Job.Mode, Hosts: cfg.Job.Hosts, Tasks: cfg.Job.Tasks, Gpus: cfg.Job.Gpus}
	w := controller.BuildWorker(cfg.Samples, layout, sched, newSampler, partitioned)

	d := dispatch.New(func(monitorName string, event dispatch.Event, r any) {
		fmt.Fprintf(os.Stderr, "altar: monitor %s panicked on %s: %v\n", monitorName, event, r)
	})
	if err := d.Register(monitor.NewProgress()); err != nil {
		return nil, nil, err
	}
	if err := d.Register(monitor.NewProfiler(profilePath)); err != nil {
		return nil, nil, err
	}

	arch := archiver.New(cfg.Archiver.Dir, cfg.Archiver.Checkpoints)

	a := controller.New(w, d, arch, partitioned.ForSubsystem("model"), cfg.Tolerance)
	if cfg.Archiver.Checkpoints {
		a.Checkpoint = arch.PersistCheckpoint
	}
	return a, model, nil
}
