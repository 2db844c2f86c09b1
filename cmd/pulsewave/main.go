package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/integrii/flaggy"
	"go.uber.org/zap"

	"github.com/sensorbench/pulsewave"
	"github.com/sensorbench/pulsewave/graphic"
	"github.com/sensorbench/pulsewave/input"
	"github.com/sensorbench/pulsewave/processor"
	"github.com/sensorbench/pulsewave/publish"
	"github.com/sensorbench/pulsewave/record"

	_ "github.com/sensorbench/pulsewave/input/all"
)

// AppName is the app name
const AppName = "pulsewave"

// AppDesc is the app description
const AppDesc = "Live ECG and PPG scope with heart rate and SpO2"

// AppSite is the app website
const AppSite = "https://github.com/sensorbench/pulsewave"

var version = "unknown"

func main() {
	log.SetFlags(0)

	cfg := newZeroConfig()

	if doFlags(&cfg) {
		return
	}

	chk(cfg.validate(), "invalid config")

	pc, err := cfg.pipeline()
	chk(err, "invalid config")

	logger, err := newLogger(&cfg)
	chk(err, "failed to build logger")
	defer logger.Sync()

	pc.Logger = logger

	var outputs processor.Outputs

	if cfg.raw {
		outputs = append(outputs, NewRawOutput(os.Stdout))
	} else {
		display := graphic.NewDisplay()
		display.SetStyles(cfg.styles)
		display.SetRefreshRate(cfg.refreshRate)

		outputs = append(outputs, display)

		pc.Quiet = true
		pc.SetupFunc = display.Init
		pc.StartFunc = func(ctx context.Context) (context.Context, error) {
			return display.Start(ctx), nil
		}
		pc.CleanupFunc = func() error {
			display.Stop()
			return display.Close()
		}
	}

	if cfg.natsURL != "" {
		nc, err := publish.Connect(cfg.natsURL, AppName)
		chk(err, "failed to connect to nats")

		pub, err := publish.NewPublisher(nc, publish.Config{
			Subject:   cfg.subject,
			WaveEvery: cfg.waveEvery,
			Logger:    logger,
		})
		chk(err, "failed to set up publisher")

		outputs = append(outputs, pub)
	}

	pc.Output = outputs

	if cfg.record != "" {
		pc.Recorder, err = record.Open(cfg.record, record.Header(pc.Format))
		chk(err, "failed to open capture")
	}

	// Root Context
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Run closes the outputs and the capture. Fatalln skips deferred calls, so
	// the logger is flushed by hand first.
	if err := pulsewave.Run(&pc, ctx); err != nil {
		logger.Error("run failed", zap.Error(err))
		logger.Sync()
		cancel()
		log.Fatalln("failed to run pulsewave: ", err)
	}
}

func doFlags(cfg *config) bool {

	parser := flaggy.NewParser(AppName)
	parser.Description = AppDesc
	parser.AdditionalHelpPrepend = AppSite
	parser.Version = version

	listBackendsCmd := flaggy.Subcommand{
		Name:                 "list-backends",
		ShortName:            "lb",
		Description:          "list all supported backends",
		AdditionalHelpAppend: "\nuse the full name after the '-'",
	}

	parser.AttachSubcommand(&listBackendsCmd, 1)

	listDevicesCmd := flaggy.Subcommand{
		Name:                 "list-devices",
		ShortName:            "ld",
		Description:          "list all devices for a backend",
		AdditionalHelpAppend: "\nuse the full name after the '-'",
	}

	parser.AttachSubcommand(&listDevicesCmd, 1)

	parser.String(&cfg.backend, "b", "backend", "backend name")
	parser.String(&cfg.device, "d", "device", "device name (path, command, port or broker url)")
	parser.String(&cfg.format, "fmt", "format", "record format (ts, pair, bare)")
	parser.Int(&cfg.baudRate, "br", "baud", "serial baud rate")
	parser.Float64(&cfg.sampleRate, "r", "rate", "nominal sample rate (0 for the format default)")
	parser.Int(&cfg.windowSize, "n", "window", "samples kept per channel (0 for the format default)")
	parser.Float64(&cfg.bandLow, "lo", "low", "bandpass low edge in Hz")
	parser.Float64(&cfg.bandHigh, "hi", "high", "bandpass high edge in Hz")
	parser.Int(&cfg.filterOrder, "o", "order", "bandpass order (0 disables filtering, -1 for the format default)")
	parser.Int(&cfg.peakDistance, "pd", "peak-distance", "minimum samples between beats")
	parser.Float64(&cfg.peakProminence, "pp", "peak-prominence", "minimum beat prominence (-1 for the format default)")
	parser.Float64(&cfg.noFinger, "nf", "no-finger", "infrared mean below which no finger is present (0 disables the check)")
	parser.Float64(&cfg.spo2Min, "smin", "spo2-min", "lowest SpO2 reported")
	parser.Float64(&cfg.spo2Max, "smax", "spo2-max", "highest SpO2 reported")
	parser.Float64(&cfg.spo2Intercept, "si", "spo2-intercept", "SpO2 calibration intercept")
	parser.Float64(&cfg.spo2Slope, "ss", "spo2-slope", "SpO2 calibration slope")
	parser.Float64(&cfg.dcEpsilon, "eps", "dc-epsilon", "DC or AC at or below this gives no SpO2")
	parser.Int(&cfg.estimateEvery, "ee", "estimate-every", "estimate vitals every n frames (0 to only use -ei)")
	parser.Duration(&cfg.estimateInterval, "ei", "estimate-interval", "estimate vitals at least this often")
	parser.Int(&cfg.frameEvery, "fe", "frame-every", "emit a frame every n samples")
	parser.Int(&cfg.refreshRate, "f", "fps", "terminal redraws per second (0 draws every frame)")
	parser.Bool(&cfg.raw, "raw", "raw", "print frames as text instead of drawing them")
	parser.String(&cfg.record, "w", "record", "capture accepted samples to a .csv or .xlsx file")
	parser.String(&cfg.natsURL, "nats", "nats", "publish frames to this nats server")
	parser.String(&cfg.subject, "s", "subject", "nats subject prefix")
	parser.Int(&cfg.waveEvery, "we", "wave-every", "publish every n-th waveform")
	parser.String(&cfg.logFile, "l", "log", "log file")
	parser.Bool(&cfg.verbose, "v", "verbose", "development logging")

	fg, bg, center := cfg.styles.AsUInt16s()
	parser.UInt16(&fg, "fg", "foreground",
		"foreground color within the 256-color range [0, 255] with attributes")
	parser.UInt16(&bg, "bg", "background",
		"background color within the 256-color range [0, 255] with attributes")
	parser.UInt16(&center, "ct", "center",
		"center line color within the 256-color range [0, 255] with attributes")

	chk(parser.Parse(), "failed to parse arguments")

	// Manually set the styles.
	cfg.styles = graphic.StylesFromUInt16(fg, bg, center)

	switch {
	case listBackendsCmd.Used:
		for _, backend := range input.Backends {
			fmt.Printf("- %s\n", backend.Name)
		}

		return true

	case listDevicesCmd.Used:
		backend, err := input.InitBackend(cfg.backend)
		chk(err, "failed to init backend")

		devices, err := backend.Devices()
		chk(err, "failed to get devices")

		// We don't really need the default device to be indicated.
		defaultDevice, _ := backend.DefaultDevice()

		fmt.Printf("all devices for %q backend. '*' marks default\n", cfg.backend)

		for idx := range devices {
			star := ' '
			if defaultDevice != nil && devices[idx].String() == defaultDevice.String() {
				star = '*'
			}

			fmt.Printf("- %v %c\n", devices[idx], star)
		}

		return true
	}

	return false
}

func chk(err error, wrap string) {
	if err != nil {
		log.Fatalln(wrap+": ", err)
	}
}
