package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/roach88/objscope/internal/analysis"
	"github.com/roach88/objscope/internal/build"
	"github.com/roach88/objscope/internal/compare"
	"github.com/roach88/objscope/internal/exprc"
	"github.com/roach88/objscope/internal/parse"
	"github.com/roach88/objscope/internal/service"
)

var (
	headStyle = color.New(color.Bold)
	okStyle   = color.New(color.FgGreen)
	warnStyle = color.New(color.FgYellow)
	failStyle = color.New(color.FgRed, color.Bold)
	dimStyle  = color.New(color.FgHiBlack)
)

// topOpcodes caps the instruction frequency table.
const topOpcodes = 10

// textWriter prints human-readable output. Numbers go through a
// message.Printer so byte counts get digit grouping.
type textWriter struct {
	w io.Writer
	p *message.Printer
}

func newTextWriter(w io.Writer) *textWriter {
	return &textWriter{w: w, p: message.NewPrinter(language.English)}
}

func (t *textWriter) printf(format string, args ...any) {
	t.p.Fprintf(t.w, format, args...)
}

func (t *textWriter) heading(s string) {
	fmt.Fprintln(t.w, headStyle.Sprint(s))
}

// delta renders a reduction with its percentage; shrinkage is green and
// growth red.
func (t *textWriter) delta(reduction int64, percent float64) string {
	s := t.p.Sprintf("-%d (%.2f%%)", reduction, percent)
	switch {
	case reduction > 0:
		return okStyle.Sprint(s)
	case reduction < 0:
		return failStyle.Sprint(t.p.Sprintf("+%d (%.2f%%)", -reduction, -percent))
	}
	return dimStyle.Sprint("unchanged")
}

func (t *textWriter) lines(label string, ls parse.LineStats) {
	if ls.Malformed == 0 {
		return
	}
	fmt.Fprintln(t.w, warnStyle.Sprint(t.p.Sprintf("  %s: %d malformed lines ignored", label, ls.Malformed)))
}

func renderBuild(t *textWriter, res *build.Result) {
	style := okStyle
	switch res.Status {
	case build.StatusPartial:
		style = warnStyle
	case build.StatusError:
		style = failStyle
	}
	t.heading("Build " + res.ID)
	fmt.Fprintf(t.w, "  status:  %s\n", style.Sprint(res.Status))
	fmt.Fprintf(t.w, "  message: %s\n", res.Message)
	if len(res.Units) > 0 {
		fmt.Fprintf(t.w, "  units:   %s\n", strings.Join(res.Units, ", "))
	}
	for _, b := range res.Built {
		t.printf("  %s  %s  %d bytes  %s\n", b.Tag, b.Path, b.Size, dimStyle.Sprint(shortDigest(b.Digest)))
	}
	for _, f := range res.Failures {
		fmt.Fprintf(t.w, "  %s %s\n", failStyle.Sprint("FAILED"), f.Summary())
	}
	if res.CleanupWarning != "" {
		fmt.Fprintf(t.w, "  %s %s\n", warnStyle.Sprint("warning:"), res.CleanupWarning)
	}
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}

func renderAnalysis(t *textWriter, a *analysis.Analysis) {
	t.heading(fmt.Sprintf("Analysis %s", a.Variant.Tag))
	t.printf("  file:   %s (%d bytes)\n", a.Variant.Path, a.Variant.Size)
	if a.Digest != "" {
		fmt.Fprintf(t.w, "  digest: %s\n", a.Digest)
	}

	if d := a.Disassembly; d != nil {
		t.heading("Disassembly")
		t.printf("  %d functions, %d instructions\n", d.TotalFunctions, d.TotalInstructions)
		renderFrequency(t, d.InstructionFrequency)
		t.lines("disassembly", d.Lines)
	}
	if s := a.Symbols; s != nil {
		t.heading("Symbols")
		t.printf("  total %d: global %d, local %d, undefined %d, weak %d, uncategorized %d\n",
			s.TotalSymbols, len(s.Symbols.Global), len(s.Symbols.Local),
			len(s.Symbols.Undefined), len(s.Symbols.Weak), s.Uncategorized)
		t.lines("symbols", s.Lines)
	}
	if s := a.Sections; s != nil {
		t.heading("Sections")
		for _, sec := range s.Sections {
			t.printf("  %-20s %-10s %10d\n", sec.Name, sec.Type, sec.Size)
		}
		t.lines("sections", s.Lines)
	}
	if s := a.Size; s != nil {
		t.heading("Size")
		renderMetrics(t, "  ", s.Metrics)
		t.lines("size", s.Lines)
	}
	renderFacetErrors(t, a.Errors)
}

func renderFrequency(t *textWriter, freq map[string]int) {
	type entry struct {
		op    string
		count int
	}
	entries := make([]entry, 0, len(freq))
	for op, n := range freq {
		entries = append(entries, entry{op, n})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].op < entries[j].op
	})
	if len(entries) > topOpcodes {
		entries = entries[:topOpcodes]
	}
	for _, e := range entries {
		t.printf("    %-10s %d\n", e.op, e.count)
	}
}

func renderMetrics(t *textWriter, indent string, m parse.SizeMetrics) {
	t.printf("%stext %d  data %d  bss %d  rodata %d  total %d\n", indent, m.Text, m.Data, m.BSS, m.ROData, m.Total)
}

func renderFacetErrors(t *textWriter, errs map[analysis.Facet]string) {
	if len(errs) == 0 {
		return
	}
	facets := make([]string, 0, len(errs))
	for f := range errs {
		facets = append(facets, string(f))
	}
	sort.Strings(facets)
	t.heading("Unavailable")
	for _, f := range facets {
		fmt.Fprintf(t.w, "  %s: %s\n", warnStyle.Sprint(f), strings.TrimSpace(errs[analysis.Facet(f)]))
	}
}

func renderDisassembly(t *textWriter, d service.DisassemblyData) {
	if d.DisassemblyReport == nil {
		return
	}
	t.heading(fmt.Sprintf("Disassembly %s", d.Optimization))
	for _, fn := range d.Functions {
		fmt.Fprintf(t.w, "%s %s\n", fn.Address, headStyle.Sprintf("<%s>", fn.Name))
		for _, in := range fn.Instructions {
			fmt.Fprintf(t.w, "  %6s: %s\n", in.Address, in.Code)
		}
	}
	t.printf("%d functions, %d instructions\n", d.TotalFunctions, d.TotalInstructions)
	t.lines("disassembly", d.Lines)
}

func renderComparison(t *textWriter, r *compare.Report) {
	t.heading("O0 vs O2")
	if len(r.MissingArtifacts) > 0 {
		tags := make([]string, len(r.MissingArtifacts))
		for i, tag := range r.MissingArtifacts {
			tags[i] = string(tag)
		}
		fmt.Fprintf(t.w, "  %s %s (run objscope build first)\n", warnStyle.Sprint("missing artifacts:"), strings.Join(tags, ", "))
		return
	}
	if d := r.Disassembly; d != nil {
		t.printf("  %-14s %10d %10d  %s\n", "instructions", d.O0, d.O2, t.delta(int64(d.Reduction), d.ReductionPercent))
	}
	if s := r.Size; s != nil {
		t.printf("  %-14s %10d %10d  %s\n", "size (bytes)", s.O0.Total, s.O2.Total, t.delta(s.Reduction, s.ReductionPercent))
	}
	if s := r.Symbols; s != nil {
		t.printf("  %-14s %10d %10d\n", "symbols", s.O0, s.O2)
	}
	for _, fe := range r.FacetErrors {
		fmt.Fprintf(t.w, "  %s %s (%s): %s\n", warnStyle.Sprint("unavailable"), fe.Facet, fe.Level, strings.TrimSpace(fe.Error))
	}
}

func renderExpression(t *textWriter, r *exprc.Result) {
	t.heading(r.Expression)
	t.printf("  result: %v\n", r.Result)
	if len(r.Postfix) > 0 {
		vals := make([]string, len(r.Postfix))
		for i, tok := range r.Postfix {
			vals[i] = tok.Value
		}
		fmt.Fprintf(t.w, "  postfix: %s\n", strings.Join(vals, " "))
	}
	if len(r.IntermediateCode) > 0 {
		t.heading("Intermediate code")
		for _, line := range r.IntermediateCode {
			fmt.Fprintf(t.w, "  %s\n", line)
		}
	}
	if r.CalculusType != "" {
		t.heading("Calculus: " + r.CalculusType)
		for _, step := range r.CalculusSteps {
			t.printf("  x=%g f(x)=%g  %s\n", step.X, step.FX, dimStyle.Sprint(step.Description))
		}
	}
}

func renderHealth(t *textWriter, h service.HealthData) {
	style := okStyle
	if h.Status != "healthy" {
		style = warnStyle
	}
	fmt.Fprintf(t.w, "%s %s\n", headStyle.Sprint("Toolchain:"), style.Sprint(h.Status))
	for _, tool := range h.Tools {
		if tool.Found {
			fmt.Fprintf(t.w, "  %s %-20s %s\n", okStyle.Sprint("ok  "), tool.Role, tool.Path)
			continue
		}
		fmt.Fprintf(t.w, "  %s %-20s %s: %s\n", failStyle.Sprint("miss"), tool.Role, tool.Name, tool.Problem)
	}
	fmt.Fprintf(t.w, "  artifacts: %s\n", h.ArtifactsDir)
}

func renderHistory(t *textWriter, h service.HistoryData) {
	t.heading("Builds")
	if len(h.Builds) == 0 {
		fmt.Fprintln(t.w, dimStyle.Sprint("  none"))
	}
	for _, b := range h.Builds {
		t.printf("  #%d %s %-8s %s\n", b.Seq, b.ID, b.Status, b.SourceDir)
		for _, a := range b.Artifacts {
			t.printf("      %s %s %d bytes %s\n", a.Tag, a.Path, a.Size, dimStyle.Sprint(shortDigest(a.Digest)))
		}
	}
	t.heading("Reports")
	if len(h.Reports) == 0 {
		fmt.Fprintln(t.w, dimStyle.Sprint("  none"))
	}
	for _, r := range h.Reports {
		level := string(r.Tag)
		if level == "" {
			level = "-"
		}
		t.printf("  #%d %s %-11s %-2s %s\n", r.Seq, r.ID, r.Kind, level, dimStyle.Sprint(shortDigest(r.Digest)))
	}
}
