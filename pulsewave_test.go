package pulsewave

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensorbench/pulsewave/dsp"
	"github.com/sensorbench/pulsewave/frame"
	"github.com/sensorbench/pulsewave/input"
	"github.com/sensorbench/pulsewave/processor"
	"github.com/sensorbench/pulsewave/record"

	_ "github.com/sensorbench/pulsewave/input/file"
)

func writeCapture(t *testing.T, n int) string {
	t.Helper()

	var sb strings.Builder
	sb.WriteString("timestamp_ms,adc_raw\n")
	for i := 0; i < n; i++ {
		v := 2048 + math.Round(50*math.Sin(2*math.Pi*float64(i)/250))
		fmt.Fprintf(&sb, "%d,%d\n", i*4, int(v))
	}

	path := filepath.Join(t.TempDir(), "capture.csv")
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	for _, format := range []input.Format{input.FormatTimestamped, input.FormatPair, input.FormatBare} {
		cfg := NewZeroConfig(format)
		require.NoError(t, cfg.Validate(), format.String())

		_, err := cfg.NewProcessor()
		require.NoError(t, err)
	}

	ppg := NewZeroConfig(input.FormatPair)
	assert.Equal(t, 30.0, ppg.SampleRate)
	assert.Equal(t, 50000.0, ppg.NoFingerThreshold)
	assert.Equal(t, dsp.DefaultDCEpsilon, ppg.DCEpsilon)

	ppg.DCEpsilon = 0.5
	proc, err := ppg.NewProcessor()
	require.NoError(t, err)
	assert.Equal(t, 0.5, proc.Estimator().Config().DCEpsilon)

	ecg := NewZeroConfig(input.FormatTimestamped)
	assert.Equal(t, 250.0, ecg.SampleRate)
	assert.Equal(t, 2000, ecg.WindowSize)
}

func TestValidate(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"rate":       func(c *Config) { c.SampleRate = 0 },
		"window":     func(c *Config) { c.WindowSize = 1 },
		"huge":       func(c *Config) { c.WindowSize = MaxWindowSize + 1 },
		"order":      func(c *Config) { c.FilterOrder = dsp.MaxFilterOrder + 1 },
		"distance":   func(c *Config) { c.PeakMinDistance = 0 },
		"long beat":  func(c *Config) { c.PeakMinDistance = c.WindowSize },
		"spo2 range": func(c *Config) { c.SpO2Min, c.SpO2Max = 100, 80 },
		"spo2 bound": func(c *Config) { c.SpO2Max = 120 },
		"throttle":   func(c *Config) { c.EstimateEvery = -1 },
		"epsilon":    func(c *Config) { c.DCEpsilon = -1 },
		"band":       func(c *Config) { c.BandHigh = 200 },
	} {
		cfg := NewZeroConfig(input.FormatTimestamped)
		mutate(&cfg)
		assert.Error(t, cfg.Validate(), name)
	}
}

type collector struct {
	frames []frame.Frame
}

func (c *collector) Write(f frame.Frame) error {
	c.frames = append(c.frames, f)
	return nil
}

func TestRunReplay(t *testing.T) {
	capture := writeCapture(t, 1250)
	out := &collector{}

	rec, err := record.Open(filepath.Join(t.TempDir(), "copy.csv"), record.Header(input.FormatTimestamped))
	require.NoError(t, err)

	var setup, cleanup bool

	cfg := NewZeroConfig(input.FormatTimestamped)
	cfg.Backend = "file"
	cfg.Device = capture
	cfg.WindowSize = 1000
	cfg.FrameEvery = 25
	cfg.Output = out
	cfg.Recorder = rec
	cfg.SetupFunc = func() error { setup = true; return nil }
	cfg.CleanupFunc = func() error { cleanup = true; return nil }

	require.NoError(t, Run(&cfg, context.Background()))
	assert.True(t, setup)
	assert.True(t, cleanup)

	// the header row is dropped, every sample makes it.
	require.Len(t, out.frames, 50)

	last := out.frames[len(out.frames)-1]
	assert.Equal(t, uint64(49), last.Seq)
	assert.Equal(t, dsp.StatusMeasuring, last.Estimate.Status)
	assert.InDelta(t, 60, last.Estimate.HeartRate, 3)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	cfg := NewZeroConfig(input.FormatTimestamped)
	cfg.Backend = "file"
	cfg.Device = writeCapture(t, 100)
	cfg.Output = processor.OutputFunc(func(frame.Frame) error {
		cancel()
		return nil
	})

	assert.NoError(t, Run(&cfg, ctx))
}

func TestRunTransportFailures(t *testing.T) {
	cfg := NewZeroConfig(input.FormatTimestamped)
	cfg.Backend = "carrier-pigeon"
	assert.Error(t, Run(&cfg, context.Background()))

	cfg.Backend = "file"
	cfg.Device = filepath.Join(t.TempDir(), "missing.csv")
	assert.Error(t, Run(&cfg, context.Background()))

	cfg.Device = ""
	assert.Error(t, Run(&cfg, context.Background()))
}

func TestRunSinkFailure(t *testing.T) {
	cfg := NewZeroConfig(input.FormatTimestamped)
	cfg.Backend = "file"
	cfg.Device = writeCapture(t, 10)
	cfg.Output = processor.OutputFunc(func(frame.Frame) error {
		return fmt.Errorf("display gone")
	})

	err := Run(&cfg, context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "display gone")
}

type closingOutput struct {
	collector
	closed int
}

func (c *closingOutput) Close() error {
	c.closed++
	return nil
}

type closingRecorder struct {
	samples int
	closed  int
}

func (r *closingRecorder) Record(input.Sample) error {
	r.samples++
	return nil
}

func (r *closingRecorder) Close() error {
	r.closed++
	return nil
}

func TestRunClosesSinks(t *testing.T) {
	out := &closingOutput{}
	rec := &closingRecorder{}

	cfg := NewZeroConfig(input.FormatTimestamped)
	cfg.Backend = "file"
	cfg.Device = writeCapture(t, 10)
	cfg.Output = processor.Outputs{out}
	cfg.Recorder = rec

	require.NoError(t, Run(&cfg, context.Background()))
	assert.Equal(t, 1, out.closed)
	assert.Equal(t, 1, rec.closed)
	assert.Equal(t, 10, rec.samples)

	// an invalid config still releases the sinks it was handed.
	out, rec = &closingOutput{}, &closingRecorder{}
	cfg.Output = out
	cfg.Recorder = rec
	cfg.SampleRate = 0

	assert.Error(t, Run(&cfg, context.Background()))
	assert.Equal(t, 1, out.closed)
	assert.Equal(t, 1, rec.closed)
}
