package processor

import (
	"context"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/sensorbench/pulsewave/dsp"
	"github.com/sensorbench/pulsewave/frame"
	"github.com/sensorbench/pulsewave/input"
	"github.com/sensorbench/pulsewave/input/common/lineread"
)

type testOutput struct {
	frames []frame.Frame
	err    error
}

func (o *testOutput) Write(f frame.Frame) error {
	o.frames = append(o.frames, f)
	return o.err
}

type testRecorder struct {
	samples []input.Sample
}

func (r *testRecorder) Record(s input.Sample) error {
	r.samples = append(r.samples, s)
	return nil
}

func (r *testRecorder) Close() error {
	return nil
}

func ecgConfig(t *testing.T, window, order int) Config {
	t.Helper()

	cond, err := dsp.NewConditioner(dsp.ConditionerConfig{
		SampleRate: 250,
		LowCut:     0.5,
		HighCut:    40,
		Order:      order,
	})
	require.NoError(t, err)

	est, err := dsp.NewEstimator(dsp.EstimatorConfig{
		SampleRate:        250,
		PeakMinDistance:   75,
		PeakMinProminence: 20,
	})
	require.NoError(t, err)

	return Config{
		Format:        input.FormatTimestamped,
		SampleRate:    250,
		WindowSize:    window,
		Conditioner:   cond,
		Estimator:     est,
		EstimateEvery: 1,
		FrameEvery:    1,
	}
}

func TestDropsMalformedRecord(t *testing.T) {
	out := &testOutput{}
	cfg := ecgConfig(t, 10, 0)
	cfg.Output = out

	proc, err := New(cfg)
	require.NoError(t, err)

	_, ok, err := proc.Ingest("abc,123")
	assert.False(t, ok)
	assert.True(t, errors.Is(err, input.ErrParse))
	assert.Equal(t, Stats{Records: 1, Dropped: 1}, proc.Stats())

	require.NoError(t, proc.Process("100,200"))
	assert.Equal(t, uint64(1), proc.Stats().Accepted)

	require.Len(t, out.frames, 1)
	f := out.frames[0]
	assert.Equal(t, []float64{0}, f.Axis)
	require.Len(t, f.Series, 1)
	assert.Equal(t, "adc_raw", f.Series[0].Label)
	assert.Equal(t, []float64{0}, f.Series[0].Values)
	assert.Equal(t, dsp.StatusNoSignal, f.Estimate.Status)

	// Process swallows parse failures.
	require.NoError(t, proc.Process("garbage"))
	require.NoError(t, proc.Process(""))
	assert.Len(t, out.frames, 1)
	assert.Equal(t, uint64(3), proc.Stats().Dropped)
}

func TestDiscardedLongRecord(t *testing.T) {
	out := &testOutput{}
	cfg := ecgConfig(t, 10, 0)
	cfg.Output = out

	proc, err := New(cfg)
	require.NoError(t, err)

	src := "0,2048\n" + strings.Repeat("x", lineread.MaxRecord+10) + "\n4,2050\n8,2040\n"
	require.NoError(t, lineread.Pump(context.Background(), strings.NewReader(src), proc))

	assert.Equal(t, Stats{Records: 4, Accepted: 3, Dropped: 1, Frames: 3, Estimates: 3}, proc.Stats())
	assert.Len(t, out.frames, 3)
}

func ecgRecords(n int) []string {
	records := make([]string, n)
	for i := range records {
		v := 2048 + math.Round(50*math.Sin(2*math.Pi*float64(i)/250))
		records[i] = fmt.Sprintf("%d,%d", i*4, int(v))
	}
	return records
}

func TestECGSinusoid(t *testing.T) {
	proc, err := New(ecgConfig(t, 1000, 3))
	require.NoError(t, err)

	var last frame.Frame
	for _, record := range ecgRecords(1000) {
		f, ok, err := proc.Ingest(record)
		require.NoError(t, err)
		require.True(t, ok)
		last = f
	}

	require.True(t, proc.Full())
	require.Len(t, last.Series, 1)

	values := last.Series[0].Values
	assert.Equal(t, dsp.FallbackNone, last.Series[0].Fallback)
	assert.InDelta(t, 0, stat.Mean(values, nil), 5.0)

	assert.Equal(t, -3.996, last.Axis[0])
	assert.Equal(t, 0.0, last.Axis[len(last.Axis)-1])

	peaks := dsp.FindPeaks(values, 75, 20)
	require.GreaterOrEqual(t, len(peaks), 3)
	for i := 1; i < len(peaks); i++ {
		assert.InDelta(t, 250, peaks[i].Index-peaks[i-1].Index, 10)
	}

	assert.Equal(t, dsp.StatusMeasuring, last.Estimate.Status)
	assert.True(t, last.Estimate.HeartRateOK)
	assert.InDelta(t, 60, last.Estimate.HeartRate, 3)
}

func TestECGSinusoidUnfiltered(t *testing.T) {
	proc, err := New(ecgConfig(t, 1000, 0))
	require.NoError(t, err)

	var last frame.Frame
	for _, record := range ecgRecords(1000) {
		last, _, err = proc.Ingest(record)
		require.NoError(t, err)
	}

	assert.Equal(t, dsp.FallbackDisabled, last.Series[0].Fallback)
	assert.InDelta(t, 0, stat.Mean(last.Series[0].Values, nil), 1e-9)

	peaks := dsp.FindPeaks(last.Series[0].Values, 75, 20)
	require.Len(t, peaks, 4)
	for i := 1; i < len(peaks); i++ {
		assert.InDelta(t, 250, peaks[i].Index-peaks[i-1].Index, 1)
	}
}

func TestNoFingerStream(t *testing.T) {
	cond, err := dsp.NewConditioner(dsp.ConditionerConfig{SampleRate: 30, LowCut: 0.5, HighCut: 5, Order: 2})
	require.NoError(t, err)

	est, err := dsp.NewEstimator(dsp.EstimatorConfig{
		SampleRate:        30,
		PeakMinDistance:   15,
		PeakMinProminence: 300,
		NoFingerThreshold: 50000,
		SpO2Min:           80,
		SpO2Max:           100,
		SpO2Intercept:     110,
		SpO2Slope:         25,
	})
	require.NoError(t, err)

	proc, err := New(Config{
		Format:        input.FormatPair,
		SampleRate:    30,
		WindowSize:    200,
		Conditioner:   cond,
		Estimator:     est,
		EstimateEvery: 5,
		Axis:          frame.AxisIndex,
	})
	require.NoError(t, err)

	var last frame.Frame
	for i := 0; i < 400; i++ {
		red := 90000 + 5000*math.Sin(2*math.Pi*1.2*float64(i)/30)
		ir := 20000 + 3000*math.Sin(2*math.Pi*1.2*float64(i)/30)

		f, ok, err := proc.Ingest(fmt.Sprintf("%.1f,%.1f", red, ir))
		require.NoError(t, err)
		require.True(t, ok)

		if f.Refreshed {
			last = f
		}
	}

	assert.Equal(t, dsp.StatusNoFinger, last.Estimate.Status)
	assert.False(t, last.Estimate.HeartRateOK)
	assert.False(t, last.Estimate.SpO2OK)
	assert.Equal(t, []string{"red", "ir"}, []string{last.Series[0].Label, last.Series[1].Label})
	assert.Len(t, last.Axis, 200)
	assert.Equal(t, 199.0, last.Axis[199])
}

func TestPairRecordNeedsBoth(t *testing.T) {
	cfg := ecgConfig(t, 10, 0)
	cfg.Format = input.FormatPair

	proc, err := New(cfg)
	require.NoError(t, err)

	_, _, err = proc.Ingest("1000")
	assert.True(t, errors.Is(err, input.ErrParse))
	_, _, err = proc.Ingest("1000,")
	assert.True(t, errors.Is(err, input.ErrParse))

	f, ok, err := proc.Ingest("1000,2000")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, f.Series, 2)
	assert.Len(t, f.Series[0].Values, 1)
	assert.Len(t, f.Series[1].Values, 1)
}

func TestEstimateEvery(t *testing.T) {
	cfg := ecgConfig(t, 10, 0)
	cfg.EstimateEvery = 5

	proc, err := New(cfg)
	require.NoError(t, err)

	var refreshed []uint64
	for _, record := range ecgRecords(20) {
		f, ok, err := proc.Ingest(record)
		require.NoError(t, err)
		require.True(t, ok)

		if f.Refreshed {
			refreshed = append(refreshed, f.Seq)
		}
	}

	assert.Equal(t, []uint64{0, 5, 10, 15}, refreshed)
	assert.Equal(t, uint64(4), proc.Stats().Estimates)
}

func TestEstimateInterval(t *testing.T) {
	start := time.Unix(1700000000, 0)
	calls := 0

	cfg := ecgConfig(t, 10, 0)
	cfg.EstimateEvery = 0
	cfg.EstimateInterval = time.Second
	cfg.Clock = func() time.Time {
		now := start.Add(time.Duration(calls) * 300 * time.Millisecond)
		calls++
		return now
	}

	proc, err := New(cfg)
	require.NoError(t, err)

	var refreshed []uint64
	for _, record := range ecgRecords(10) {
		f, _, err := proc.Ingest(record)
		require.NoError(t, err)

		if f.Refreshed {
			refreshed = append(refreshed, f.Seq)
		}
	}

	assert.Equal(t, []uint64{0, 4, 8}, refreshed)
}

func TestFrameEvery(t *testing.T) {
	out := &testOutput{}
	cfg := ecgConfig(t, 10, 0)
	cfg.FrameEvery = 4
	cfg.Output = out

	proc, err := New(cfg)
	require.NoError(t, err)

	for _, record := range ecgRecords(10) {
		require.NoError(t, proc.Process(record))
	}

	assert.Len(t, out.frames, 2)
	assert.Equal(t, uint64(10), proc.Stats().Accepted)
	assert.Equal(t, uint64(2), proc.Stats().Frames)
}

func TestRecorderSynthesizesTime(t *testing.T) {
	rec := &testRecorder{}
	cfg := ecgConfig(t, 10, 0)
	cfg.Format = input.FormatBare
	cfg.Recorder = rec

	proc, err := New(cfg)
	require.NoError(t, err)

	for _, record := range []string{"2048", "-1", "2050", "2040"} {
		require.NoError(t, proc.Process(record))
	}

	require.Len(t, rec.samples, 3)
	assert.Equal(t, []int64{0, 4, 8}, []int64{rec.samples[0].Time, rec.samples[1].Time, rec.samples[2].Time})
	assert.Equal(t, 2050.0, rec.samples[1].Value(0))
}

func TestOutputErrorEndsProcessing(t *testing.T) {
	boom := errors.New("boom")
	cfg := ecgConfig(t, 10, 0)
	cfg.Output = Outputs{&testOutput{}, &testOutput{err: boom}}

	proc, err := New(cfg)
	require.NoError(t, err)

	err = proc.Process("0,2048")
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
}

type closingOutput struct {
	testOutput
	closed int
	err    error
}

func (c *closingOutput) Close() error {
	c.closed++
	return c.err
}

func TestOutputsClose(t *testing.T) {
	boom := errors.New("boom")
	first := &closingOutput{err: boom}
	second := &closingOutput{}

	outs := Outputs{first, &testOutput{}, second}

	err := outs.Close()
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, 1, first.closed)
	assert.Equal(t, 1, second.closed, "a failure must not skip the rest")

	assert.NoError(t, Outputs{}.Close())
}

func TestReset(t *testing.T) {
	proc, err := New(ecgConfig(t, 4, 0))
	require.NoError(t, err)

	for _, record := range ecgRecords(4) {
		require.NoError(t, proc.Process(record))
	}
	require.True(t, proc.Full())

	proc.Reset()
	assert.False(t, proc.Full())
	assert.Equal(t, dsp.StatusNoSignal, proc.Estimate().Status)
}

func TestNewValidates(t *testing.T) {
	base := ecgConfig(t, 10, 0)

	for name, mutate := range map[string]func(*Config){
		"rate":        func(c *Config) { c.SampleRate = 0 },
		"window":      func(c *Config) { c.WindowSize = 0 },
		"conditioner": func(c *Config) { c.Conditioner = nil },
		"estimator":   func(c *Config) { c.Estimator = nil },
	} {
		cfg := base
		mutate(&cfg)
		_, err := New(cfg)
		assert.Error(t, err, name)
	}
}

func BenchmarkIngest(b *testing.B) {
	cond, _ := dsp.NewConditioner(dsp.ConditionerConfig{SampleRate: 250, LowCut: 0.5, HighCut: 40, Order: 3})
	est, _ := dsp.NewEstimator(dsp.EstimatorConfig{SampleRate: 250, PeakMinDistance: 75, PeakMinProminence: 20})

	proc, err := New(Config{
		Format:        input.FormatTimestamped,
		SampleRate:    250,
		WindowSize:    2000,
		Conditioner:   cond,
		Estimator:     est,
		EstimateEvery: 5,
	})
	if err != nil {
		b.Fatal(err)
	}

	records := ecgRecords(2000)

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		proc.Ingest(records[i%len(records)])
	}
}
