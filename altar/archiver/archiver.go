// Package archiver persists final and intermediate CoolingStep state
// to disk, following the buffered-writer-plus-logrus pattern the
// teacher uses for its own metrics export (sim/metrics_utils.go).
package archiver

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	altar "github.com/inference-sim/altar"
)

// FileArchiver writes theta.txt, sigma.txt and llk.txt into Dir at
// PersistFinal, and optional numbered checkpoint files at
// PersistCheckpoint when Checkpoints is true.
type FileArchiver struct {
	Dir         string
	Checkpoints bool

	checkpointSeq int
}

// New builds a FileArchiver rooted at dir. New does not touch the
// file system; PersistFinal and PersistCheckpoint create dir if it
// does not already exist.
func New(dir string, checkpoints bool) *FileArchiver {
	return &FileArchiver{Dir: dir, Checkpoints: checkpoints}
}

// PersistFinal writes theta.txt (S x P, space-separated), sigma.txt
// (P x P, space-separated) and llk.txt (prior, data, posterior columns)
// for the final CoolingStep, plus parameters.csv naming each column by
// its owning parameter set.
func (a *FileArchiver) PersistFinal(step *altar.CoolingStep, model altar.Model) error {
	if err := os.MkdirAll(a.Dir, 0o755); err != nil {
		return fmt.Errorf("archiver: creating %s: %w", a.Dir, err)
	}
	if err := writeMatrix(filepath.Join(a.Dir, "theta.txt"), step); err != nil {
		return err
	}
	if err := writeSigma(filepath.Join(a.Dir, "sigma.txt"), step); err != nil {
		return err
	}
	if err := writeLLK(filepath.Join(a.Dir, "llk.txt"), step); err != nil {
		return err
	}
	if model != nil {
		if err := writeParameterColumns(filepath.Join(a.Dir, "parameters.csv"), model); err != nil {
			return err
		}
	}
	logrus.Infof("altar: persisted final state to %s", a.Dir)
	return nil
}

// PersistCheckpoint writes a numbered snapshot of step's arrays if
// Checkpoints is enabled; it is a no-op otherwise.
func (a *FileArchiver) PersistCheckpoint(step *altar.CoolingStep) error {
	if !a.Checkpoints {
		return nil
	}
	if err := os.MkdirAll(a.Dir, 0o755); err != nil {
		return fmt.Errorf("archiver: creating %s: %w", a.Dir, err)
	}
	name := fmt.Sprintf("checkpoint_%04d_theta.txt", a.checkpointSeq)
	a.checkpointSeq++
	if err := writeMatrix(filepath.Join(a.Dir, name), step); err != nil {
		return err
	}
	logrus.Debugf("altar: wrote checkpoint %s (beta=%.6f)", name, step.Beta)
	return nil
}

func writeMatrix(path string, step *altar.CoolingStep) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("archiver: creating %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			logrus.Errorf("archiver: closing %s: %v", path, closeErr)
		}
	}()

	w := bufio.NewWriter(f)
	defer func() {
		if flushErr := w.Flush(); flushErr != nil {
			logrus.Errorf("archiver: flushing %s: %v", path, flushErr)
		}
	}()

	samples, parameters := step.Theta.Dims()
	for i := 0; i < samples; i++ {
		row := step.Theta.RawRowView(i)
		for p := 0; p < parameters; p++ {
			if p > 0 {
				if _, err := fmt.Fprint(w, " "); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprintf(w, "%.17g", row[p]); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

func writeSigma(path string, step *altar.CoolingStep) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("archiver: creating %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	defer w.Flush()

	parameters := step.Parameters()
	for i := 0; i < parameters; i++ {
		for j := 0; j < parameters; j++ {
			if j > 0 {
				fmt.Fprint(w, " ")
			}
			fmt.Fprintf(w, "%.17g", step.Sigma.At(i, j))
		}
		fmt.Fprintln(w)
	}
	return nil
}

func writeLLK(path string, step *altar.CoolingStep) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("archiver: creating %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	defer w.Flush()

	fmt.Fprintln(w, "prior data posterior")
	for i := range step.Prior {
		fmt.Fprintf(w, "%.17g %.17g %.17g\n", step.Prior[i], step.Data[i], step.Posterior[i])
	}
	return nil
}

func writeParameterColumns(path string, model altar.Model) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("archiver: creating %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	defer w.Flush()

	fmt.Fprintln(w, "name,offset,count")
	for _, set := range model.ParameterSets() {
		fmt.Fprintf(w, "%s,%d,%d\n", set.Name, set.Offset, set.Count)
	}
	return nil
}
