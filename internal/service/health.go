package service

import "context"

// ToolStatus is whether one configured executable resolves.
type ToolStatus struct {
	Role    string `json:"role"`
	Name    string `json:"name"`
	Path    string `json:"path,omitempty"`
	Found   bool   `json:"found"`
	Problem string `json:"problem,omitempty"`
}

// HealthData is the payload of Health.
type HealthData struct {
	Status       string       `json:"status"`
	Tools        []ToolStatus `json:"tools"`
	ArtifactsDir string       `json:"artifacts_dir"`
}

// Health resolves every configured tool and the expression compiler. The
// status is "healthy" when all resolve and "degraded" otherwise; the
// envelope itself always succeeds.
func (s *Service) Health(ctx context.Context) (env Envelope) {
	defer recoverInto(&env)

	tc := s.cfg.Toolchain
	roles := []struct{ role, name string }{
		{"compiler", tc.Compiler},
		{"linker", tc.Linker},
		{"disassembler", tc.Disassembler},
		{"symbols", tc.Symbols},
		{"sections", tc.Sections},
		{"size", tc.Size},
		{"expression_compiler", s.cfg.ExpressionCompiler},
	}

	data := HealthData{Status: "healthy", ArtifactsDir: s.desc.Root}
	for _, r := range roles {
		st := ToolStatus{Role: r.role, Name: r.name}
		if path, err := s.lookPath(r.name); err != nil {
			st.Problem = err.Error()
			data.Status = "degraded"
		} else {
			st.Path = path
			st.Found = true
		}
		data.Tools = append(data.Tools, st)
	}
	return ok(data)
}
