package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/roach88/objscope/internal/artifact"
)

func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		s, err := LoadScenario(path)
		require.NoError(t, err, path)
		t.Run(s.Name, func(t *testing.T) {
			RunWithGolden(t, s)
		})
	}
}

func TestRun_MissingVariantRunsNoTools(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/missing_optimized.yaml")
	require.NoError(t, err)

	result, err := Run(context.Background(), s, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
	assert.Equal(t, []artifact.Tag{artifact.Optimized}, result.Report.MissingArtifacts)
	assert.True(t, result.Report.Empty())
}

func TestRun_FailingAssertions(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/sum_squares.yaml")
	require.NoError(t, err)
	s.Assertions = []Assertion{{Type: AssertInstructionReduction, Percent: float64p(99)}}

	result, err := Run(context.Background(), s, nil)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "percent 99.00")
}

func TestCheckGolden(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/sum_squares.yaml")
	require.NoError(t, err)
	result, err := Run(context.Background(), s, nil)
	require.NoError(t, err)

	t.Run("matches", func(t *testing.T) {
		r := *result
		require.NoError(t, CheckGolden(s, &r, false))
		assert.True(t, r.Pass)
	})

	t.Run("mismatch is recorded", func(t *testing.T) {
		golden := filepath.Join(t.TempDir(), "stale.golden")
		require.NoError(t, os.WriteFile(golden, []byte("{}\n"), 0o644))
		cp := *s
		cp.Golden = golden
		r := *result
		r.Errors = nil
		r.Pass = true

		require.NoError(t, CheckGolden(&cp, &r, false))
		assert.False(t, r.Pass)
		assert.Contains(t, r.Errors[0], "does not match golden file")
	})

	t.Run("update writes the report", func(t *testing.T) {
		golden := filepath.Join(t.TempDir(), "nested", "fresh.golden")
		cp := *s
		cp.Golden = golden
		r := *result

		require.NoError(t, CheckGolden(&cp, &r, true))
		want, err := MarshalReport(result.Report)
		require.NoError(t, err)
		got, err := os.ReadFile(golden)
		require.NoError(t, err)
		assert.Equal(t, string(want), string(got))
	})

	t.Run("missing golden file", func(t *testing.T) {
		cp := *s
		cp.Golden = filepath.Join(t.TempDir(), "absent.golden")
		r := *result
		err := CheckGolden(&cp, &r, false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read golden file")
	})

	t.Run("no golden configured", func(t *testing.T) {
		cp := *s
		cp.Golden = ""
		r := *result
		assert.NoError(t, CheckGolden(&cp, &r, false))
	})
}
