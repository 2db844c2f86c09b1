package main

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/sensorbench/pulsewave"
	"github.com/sensorbench/pulsewave/graphic"
	"github.com/sensorbench/pulsewave/input"
)

// unset marks a flag that keeps the format default. It is used where 0 is a
// meaningful value, e.g. a no-finger threshold of 0 turns the check off.
const unset = -1

// config holds the flags. Zero sample rate, window, band edges and peak
// distance keep the format defaults; the rest use unset.
type config struct {
	// backend is the backend name from list-backends
	backend string
	// device is the device name from list-devices
	device string
	// format is the record format name
	format string
	// baudRate is the serial line speed
	baudRate int
	// sampleRate is the nominal rate samples arrive at
	sampleRate float64
	// windowSize is the number of samples kept per channel
	windowSize int
	bandLow    float64
	bandHigh   float64
	// filterOrder of 0 disables filtering
	filterOrder      int
	peakDistance     int
	peakProminence   float64
	noFinger         float64
	spo2Min          float64
	spo2Max          float64
	spo2Intercept    float64
	spo2Slope        float64
	dcEpsilon        float64
	estimateEvery    int
	estimateInterval time.Duration
	frameEvery       int
	// refreshRate is the most terminal redraws per second
	refreshRate int
	// raw prints frames as text instead of drawing them
	raw bool
	// record is a .csv or .xlsx capture path
	record string
	// natsURL enables publishing when set
	natsURL   string
	subject   string
	waveEvery int
	// logFile receives logs, stderr in raw mode when empty
	logFile string
	verbose bool
	styles  graphic.Styles
}

// newZeroConfig returns the flag defaults. Anything set in the environment or
// a .env file in the working directory takes precedence over the built in
// values; flags take precedence over both.
func newZeroConfig() config {
	// a missing .env is fine.
	_ = godotenv.Load()

	return config{
		backend:     getEnvString("PULSEWAVE_BACKEND", input.DefaultBackend()),
		device:      getEnvString("PULSEWAVE_DEVICE", ""),
		format:      getEnvString("PULSEWAVE_FORMAT", input.FormatTimestamped.String()),
		baudRate:    getEnvInt("PULSEWAVE_BAUD", 115200),
		refreshRate: graphic.DefaultRefreshRate,
		record:      getEnvString("PULSEWAVE_RECORD", ""),
		natsURL:     getEnvString("PULSEWAVE_NATS", ""),
		subject:     getEnvString("PULSEWAVE_SUBJECT", "pulsewave"),
		waveEvery:   1,
		styles:      graphic.DefaultStyles(),

		filterOrder:      unset,
		peakProminence:   unset,
		noFinger:         unset,
		spo2Min:          unset,
		spo2Max:          unset,
		spo2Intercept:    unset,
		spo2Slope:        unset,
		dcEpsilon:        unset,
		estimateEvery:    unset,
		estimateInterval: unset,
	}
}

func getEnvString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func (cfg *config) validate() error {
	if _, err := input.ParseFormat(cfg.format); err != nil {
		return err
	}

	switch {
	case cfg.sampleRate < 0:
		return errors.New("sample rate must not be negative")
	case cfg.windowSize < 0:
		return errors.New("window size must not be negative")
	case cfg.filterOrder < unset:
		return errors.New("filter order must be -1 (default), 0 (off) or positive")
	case cfg.estimateInterval < unset:
		return errors.New("estimate interval must not be negative")
	case cfg.refreshRate < 0:
		return errors.New("refresh rate must not be negative")
	case cfg.natsURL != "" && cfg.subject == "":
		return errors.New("publishing needs a subject")
	}

	return nil
}

// pipeline merges the flags into the defaults of the chosen format.
func (cfg *config) pipeline() (pulsewave.Config, error) {
	format, err := input.ParseFormat(cfg.format)
	if err != nil {
		return pulsewave.Config{}, err
	}

	pc := pulsewave.NewZeroConfig(format)
	pc.Backend = cfg.backend
	pc.Device = cfg.device
	pc.BaudRate = cfg.baudRate

	setFloat(&pc.SampleRate, cfg.sampleRate)
	setInt(&pc.WindowSize, cfg.windowSize)
	setFloat(&pc.BandLow, cfg.bandLow)
	setFloat(&pc.BandHigh, cfg.bandHigh)
	setInt(&pc.PeakMinDistance, cfg.peakDistance)
	setInt(&pc.FrameEvery, cfg.frameEvery)

	setOptInt(&pc.FilterOrder, cfg.filterOrder)
	setOptFloat(&pc.PeakMinProminence, cfg.peakProminence)
	setOptFloat(&pc.NoFingerThreshold, cfg.noFinger)
	setOptFloat(&pc.SpO2Min, cfg.spo2Min)
	setOptFloat(&pc.SpO2Max, cfg.spo2Max)
	setOptFloat(&pc.SpO2Intercept, cfg.spo2Intercept)
	setOptFloat(&pc.SpO2Slope, cfg.spo2Slope)
	setOptFloat(&pc.DCEpsilon, cfg.dcEpsilon)
	setOptInt(&pc.EstimateEvery, cfg.estimateEvery)

	if cfg.estimateInterval != unset {
		pc.EstimateInterval = cfg.estimateInterval
	}

	return pc, pc.Validate()
}

func setFloat(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setOptFloat(dst *float64, v float64) {
	if v != unset {
		*dst = v
	}
}

func setOptInt(dst *int, v int) {
	if v != unset {
		*dst = v
	}
}
