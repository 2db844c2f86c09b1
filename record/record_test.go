package record

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/sensorbench/pulsewave/input"
)

func ecgSamples() []input.Sample {
	return []input.Sample{
		{Time: 0, Timed: true, Values: [input.MaxChannels]float64{2048}, Channels: 1},
		{Time: 4, Timed: true, Values: [input.MaxChannels]float64{2050}, Channels: 1},
		{Time: 8, Timed: true, Values: [input.MaxChannels]float64{2040}, Channels: 1},
	}
}

func TestHeader(t *testing.T) {
	assert.Equal(t, []string{"timestamp_ms", "adc_raw"}, Header(input.FormatTimestamped))
	assert.Equal(t, []string{"timestamp_ms", "adc_raw"}, Header(input.FormatBare))
	assert.Equal(t, []string{"timestamp_ms", "red", "ir"}, Header(input.FormatPair))
}

func TestCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ecg.csv")

	rec, err := Open(path, Header(input.FormatTimestamped))
	require.NoError(t, err)
	require.IsType(t, &CSV{}, rec)

	for _, s := range ecgSamples() {
		require.NoError(t, rec.Record(s))
	}

	// rows are on disk before Close.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "timestamp_ms,adc_raw\n0,2048\n4,2050\n8,2040\n", string(data))

	require.NoError(t, rec.Close())
}

func TestCSVReplaysThroughParser(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ecg.csv")

	rec, err := NewCSV(path, Header(input.FormatTimestamped))
	require.NoError(t, err)
	for _, s := range ecgSamples() {
		require.NoError(t, rec.Record(s))
	}
	require.NoError(t, rec.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	p := input.NewParser(input.FormatTimestamped)
	var got []input.Sample
	for _, line := range splitLines(string(data)) {
		if s, err := p.Parse(line); err == nil {
			got = append(got, s)
		}
	}

	assert.Equal(t, ecgSamples(), got)
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return out
}

func TestXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ppg.xlsx")

	rec, err := Open(path, Header(input.FormatPair))
	require.NoError(t, err)

	require.NoError(t, rec.Record(input.Sample{Time: 0, Values: [input.MaxChannels]float64{98000.5, 101200}, Channels: 2}))
	require.NoError(t, rec.Record(input.Sample{Time: 33, Values: [input.MaxChannels]float64{98010, 101190}, Channels: 2}))
	assert.Equal(t, 3, rec.(*XLSX).Rows())
	require.NoError(t, rec.Close())

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"timestamp_ms", "red", "ir"},
		{"0", "98000.5", "101200"},
		{"33", "98010", "101190"},
	}, rows)
}

func TestRecordRejectsChannelMismatch(t *testing.T) {
	rec, err := Open(filepath.Join(t.TempDir(), "ecg.csv"), Header(input.FormatTimestamped))
	require.NoError(t, err)
	defer rec.Close()

	err = rec.Record(input.Sample{Values: [input.MaxChannels]float64{1, 2}, Channels: 2})
	assert.Error(t, err)
}

func TestOpenRejects(t *testing.T) {
	dir := t.TempDir()

	_, err := Open(filepath.Join(dir, "ecg.parquet"), Header(input.FormatBare))
	assert.Error(t, err)

	_, err = Open(filepath.Join(dir, "ecg.csv"), []string{"timestamp_ms"})
	assert.Error(t, err)

	_, err = Open(filepath.Join(dir, "missing", "ecg.csv"), Header(input.FormatBare))
	assert.Error(t, err)
}
