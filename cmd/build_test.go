package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/altar/models"

	// Blank import triggers distributions' init(), registering "uniform"
	// with altar.NewDistribution for these tests, mirroring how the
	// cmd package itself only gets the registration via main.go's blank
	// import rather than a direct production dependency.
	_ "github.com/inference-sim/altar/distributions"
)

func TestBuildParameterSets_LooksUpPriorByName(t *testing.T) {
	sets, err := buildParameterSets([]ParameterSetConfig{
		{Name: "theta", Count: 1, Prior: "uniform", Bounds: map[string]any{"low": 0.0, "high": 1.0}},
	})
	require.NoError(t, err)
	require.Len(t, sets, 1)
	assert.Equal(t, "theta", sets[0].Name)
	assert.Equal(t, 1, sets[0].Count)
}

func TestBuildParameterSets_UnknownPriorIsConfigurationError(t *testing.T) {
	_, err := buildParameterSets([]ParameterSetConfig{
		{Name: "theta", Count: 1, Prior: "not-a-real-distribution"},
	})
	assert.Error(t, err)
}

func TestBuildModel_NullKindNeedsOneParameterSet(t *testing.T) {
	_, err := buildModel(ModelConfig{Kind: "null"})
	assert.Error(t, err, "null model with zero parameter sets should fail")

	m, err := buildModel(ModelConfig{Kind: "null", Parameters: []ParameterSetConfig{
		{Name: "theta", Count: 1, Prior: "uniform"},
	}})
	require.NoError(t, err)
	_, ok := m.(*models.Null)
	assert.True(t, ok, "buildModel(\"null\") should return a *models.Null")
}

func TestBuildModel_GaussianKindUsesObservedAndSigma(t *testing.T) {
	m, err := buildModel(ModelConfig{
		Kind: "gaussian1d", Observed: 2.5, Sigma: 1.0,
		Parameters: []ParameterSetConfig{{Name: "theta", Count: 1, Prior: "uniform"}},
	})
	require.NoError(t, err)
	g, ok := m.(*models.Gaussian1D)
	require.True(t, ok)
	assert.Equal(t, 2.5, g.Observed)
	assert.Equal(t, 1.0, g.Sigma)
}

func TestBuildModel_UnknownKindIsConfigurationError(t *testing.T) {
	_, err := buildModel(ModelConfig{Kind: "not-a-real-model"})
	assert.Error(t, err)
}

func TestLoadLinearData_ParsesDesignMatrixAndDiagonalCd(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	contents := "1.0,1.0,0.5\n2.0,2.0,0.5\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	g, d, cd, err := loadLinearData(path, 1)
	require.NoError(t, err)

	assert.Equal(t, []float64{1.0, 2.0}, d)
	rows, cols := g.Dims()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 1, cols)
	assert.Equal(t, 1.0, g.At(0, 0))
	assert.Equal(t, 2.0, g.At(1, 0))
	assert.InDelta(t, 0.25, cd.At(0, 0), 1e-12)
	assert.Equal(t, 0.0, cd.At(0, 1), "off-diagonal Cd entries must be zero for independent observations")
}

func TestLoadLinearData_WrongColumnCountIsConfigurationError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("1.0,1.0\n"), 0o644))

	_, _, _, err := loadLinearData(path, 1)
	assert.Error(t, err, "row with too few columns for the given parameter count should fail")
}

func TestLoadLinearData_MissingFileReturnsError(t *testing.T) {
	_, _, _, err := loadLinearData(filepath.Join(t.TempDir(), "missing.csv"), 1)
	assert.Error(t, err)
}
