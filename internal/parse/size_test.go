package parse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSize_SysV(t *testing.T) {
	rep, err := Size(openFixture(t, "size_sysv.txt"))
	require.NoError(t, err)

	assert.Equal(t, SizeMetrics{Text: 35, Data: 0, BSS: 0, ROData: 16, Total: 51}, rep.Metrics)
	// .rela.text is a later ".text" occurrence and does not override.
	assert.Equal(t, LineStats{Matched: 4, Skipped: 6}, rep.Lines)
}

func TestSize_TotalIsSumOfSegments(t *testing.T) {
	input := ".text 100 0\n.data 20 0\n.bss 3 0\n.rodata 7 0\n"

	rep, err := Size(strings.NewReader(input))
	require.NoError(t, err)

	m := rep.Metrics
	assert.Equal(t, m.Text+m.Data+m.BSS+m.ROData, m.Total)
	assert.Equal(t, uint64(130), m.Total)
}

func TestSize_FirstOccurrenceWins(t *testing.T) {
	input := ".text 10 0\n.text.startup 99 0\n"

	rep, err := Size(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, uint64(10), rep.Metrics.Text)
}

func TestSize_NonNumericCountStaysZero(t *testing.T) {
	input := ".text 0x23 0\n.data -4 0\n.bss\n.rodata 12 0\n"

	rep, err := Size(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, SizeMetrics{ROData: 12, Total: 12}, rep.Metrics)
	assert.Equal(t, LineStats{Matched: 1, Malformed: 3}, rep.Lines)
}

func TestSize_NoRecognizableSegments(t *testing.T) {
	rep, err := Size(openFixture(t, "size_berkeley.txt"))
	require.NoError(t, err)

	assert.Equal(t, SizeMetrics{}, rep.Metrics)
	assert.Equal(t, uint64(0), rep.Metrics.Total)
	assert.Equal(t, LineStats{Skipped: 2}, rep.Lines)
}

func TestSize_SubsectionsDoNotOverwrite(t *testing.T) {
	input := ".rodata 24 0\n.data 8 0\n.data.rel.local 4 0\n.rodata.str1.1 6 0\n.data.rel.ro 2 0\n"

	rep, err := Size(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, uint64(8), rep.Metrics.Data)
	assert.Equal(t, uint64(24), rep.Metrics.ROData)
	assert.Equal(t, LineStats{Matched: 2, Skipped: 3}, rep.Lines)
}
