package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/objscope/internal/compare"
)

// MarshalReport renders a report the way golden files store it: indented
// JSON with a trailing newline.
func MarshalReport(r *compare.Report) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario in a test, requires its assertions to
// pass, and compares the report against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) *Result {
	t.Helper()

	result, err := Run(t.Context(), scenario, nil)
	if err != nil {
		t.Fatalf("run scenario %s: %v", scenario.Name, err)
	}
	if !result.Pass {
		t.Errorf("scenario %s failed:\n%s", scenario.Name, joinErrors(result.Errors))
	}

	data, err := MarshalReport(result.Report)
	if err != nil {
		t.Fatalf("marshal report: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return result
}

// CheckGolden compares the result's report with the scenario's golden file,
// recording a mismatch on the result. With update set, the golden file is
// (re)written instead. Scenarios without a golden file are left untouched.
//
// This is the command-line counterpart of RunWithGolden.
func CheckGolden(scenario *Scenario, result *Result, update bool) error {
	if scenario.Golden == "" {
		return nil
	}
	data, err := MarshalReport(result.Report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	if update {
		if err := os.MkdirAll(filepath.Dir(scenario.Golden), 0o755); err != nil {
			return fmt.Errorf("create golden directory: %w", err)
		}
		if err := os.WriteFile(scenario.Golden, data, 0o644); err != nil {
			return fmt.Errorf("write golden file: %w", err)
		}
		return nil
	}

	want, err := os.ReadFile(scenario.Golden)
	if err != nil {
		return fmt.Errorf("read golden file: %w", err)
	}
	if !bytes.Equal(want, data) {
		result.AddError(fmt.Sprintf("report does not match golden file %s (rerun with --update to accept)", scenario.Golden))
	}
	return nil
}

func joinErrors(errs []string) string {
	var buf bytes.Buffer
	for _, e := range errs {
		buf.WriteString(e)
		buf.WriteByte('\n')
	}
	return buf.String()
}
