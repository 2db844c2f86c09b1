package processor

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/sensorbench/pulsewave/dsp"
	"github.com/sensorbench/pulsewave/frame"
	"github.com/sensorbench/pulsewave/input"
	"github.com/sensorbench/pulsewave/util"
)

// Output consumes frames. Write is called synchronously from the read loop.
type Output interface {
	Write(frame.Frame) error
}

// Recorder persists every accepted sample.
type Recorder interface {
	Record(input.Sample) error
	Close() error
}

// Config wires a processor. Conditioner and Estimator are required.
type Config struct {
	Format           input.Format     // record format
	SampleRate       float64          // nominal rate, used for untimed records
	WindowSize       int              // samples kept per channel
	Conditioner      *dsp.Conditioner // windows are detrended and filtered with this
	Estimator        *dsp.Estimator   // vitals estimator
	EstimateEvery    int              // estimate every n frames
	EstimateInterval time.Duration    // estimate once this much time passed
	FrameEvery       int              // emit a frame every n accepted samples
	Axis             frame.Axis       // frame axis kind
	Output           Output           // frame sink, may be nil
	Recorder         Recorder         // sample sink, may be nil
	Logger           *zap.Logger      // nil logs nothing
	Clock            func() time.Time // defaults to time.Now
}

// Stats counts what went through a processor.
type Stats struct {
	Records   uint64 // records seen
	Accepted  uint64 // records parsed and appended
	Dropped   uint64 // records that failed to parse
	Frames    uint64 // frames built
	Estimates uint64 // estimates computed
}

// Processor turns records into frames. It is not safe for concurrent use; a
// single session drives it.
type Processor struct {
	cfg    Config
	parser *input.Parser
	log    *zap.Logger

	times    *util.SlidingWindow
	channels []*util.SlidingWindow
	labels   []string

	estimate     dsp.Estimate
	lastEstimate time.Time
	wasFull      bool

	stats Stats
}

// New validates cfg and allocates the windows.
func New(cfg Config) (*Processor, error) {
	switch {
	case cfg.SampleRate <= 0:
		return nil, errors.New("sample rate must be positive")
	case cfg.WindowSize < 1:
		return nil, errors.New("window size too small (1 min)")
	case cfg.Conditioner == nil:
		return nil, errors.New("no conditioner")
	case cfg.Estimator == nil:
		return nil, errors.New("no estimator")
	}

	if cfg.FrameEvery < 1 {
		cfg.FrameEvery = 1
	}

	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	p := &Processor{
		cfg:      cfg,
		parser:   input.NewParser(cfg.Format),
		log:      cfg.Logger,
		times:    util.NewSlidingWindow(cfg.WindowSize),
		channels: make([]*util.SlidingWindow, cfg.Format.Channels()),
		labels:   cfg.Format.Labels(),
		estimate: dsp.Estimate{Status: dsp.StatusNoSignal},
	}

	for idx := range p.channels {
		p.channels[idx] = util.NewSlidingWindow(cfg.WindowSize)
	}

	return p, nil
}

// Process ingests one record and writes the resulting frame, if any, to the
// output. Malformed records are logged and dropped.
func (p *Processor) Process(record string) error {
	f, ok, err := p.Ingest(record)
	if err != nil {
		if errors.Is(err, input.ErrParse) {
			p.log.Debug("dropped record", zap.String("record", record), zap.Error(err))
			return nil
		}
		return err
	}

	if !ok || p.cfg.Output == nil {
		return nil
	}

	return errors.Wrap(p.cfg.Output.Write(f), "failed to write frame")
}

// Discard counts a record the session dropped before it could be parsed.
func (p *Processor) Discard(record string, err error) {
	p.stats.Records++
	p.stats.Dropped++
	p.log.Debug("dropped record", zap.String("record", record), zap.Error(err))
}

// Ingest parses and appends one record. It reports a frame when the record
// triggered one. Parse failures wrap input.ErrParse and leave every window
// untouched.
func (p *Processor) Ingest(record string) (frame.Frame, bool, error) {
	p.stats.Records++

	sample, err := p.parser.Parse(record)
	if err != nil {
		p.stats.Dropped++
		return frame.Frame{}, false, err
	}

	if !sample.Timed {
		sample.Time = int64(float64(p.stats.Accepted) * 1000 / p.cfg.SampleRate)
	}

	if p.cfg.Recorder != nil {
		if err := p.cfg.Recorder.Record(sample); err != nil {
			return frame.Frame{}, false, errors.Wrap(err, "failed to record sample")
		}
	}

	p.times.Append(float64(sample.Time))
	for idx, ch := range p.channels {
		ch.Append(sample.Value(idx))
	}
	p.stats.Accepted++

	if full := p.Full(); full != p.wasFull {
		p.wasFull = full
		p.log.Info("window full",
			zap.Int("samples", p.times.Len()),
			zap.Uint64("dropped", p.stats.Dropped))
	}

	if p.stats.Accepted%uint64(p.cfg.FrameEvery) != 0 {
		return frame.Frame{}, false, nil
	}

	return p.trigger(), true, nil
}

func (p *Processor) trigger() frame.Frame {
	series := make([]frame.Series, len(p.channels))
	estimateCh := make([]dsp.Channel, len(p.channels))

	for idx, ch := range p.channels {
		raw := ch.Snapshot()
		conditioned, fb := p.cfg.Conditioner.Condition(raw)

		series[idx] = frame.Series{
			Label:    p.labels[idx],
			Values:   conditioned,
			Fallback: fb,
		}
		estimateCh[idx] = dsp.Channel{Raw: raw, Conditioned: conditioned}
	}

	refreshed := p.estimateDue()
	if refreshed {
		p.estimate = p.cfg.Estimator.Estimate(p.Full(), estimateCh...)
		p.stats.Estimates++
	}

	times := make([]int64, p.times.Len())
	for idx, t := range p.times.Snapshot() {
		times[idx] = int64(t)
	}

	f := frame.Build(frame.Input{
		Seq:       p.stats.Frames,
		AxisKind:  p.cfg.Axis,
		Times:     times,
		Series:    series,
		Estimate:  p.estimate,
		Refreshed: refreshed,
	})
	p.stats.Frames++

	return f
}

// estimateDue reports whether this frame gets a fresh estimate. With neither
// throttle configured every frame does.
func (p *Processor) estimateDue() bool {
	every := p.cfg.EstimateEvery
	interval := p.cfg.EstimateInterval

	if every < 1 && interval <= 0 {
		return true
	}

	if every > 0 && p.stats.Frames%uint64(every) == 0 {
		p.touch()
		return true
	}

	if interval > 0 {
		now := p.cfg.Clock()
		if p.lastEstimate.IsZero() || now.Sub(p.lastEstimate) >= interval {
			p.lastEstimate = now
			return true
		}
	}

	return false
}

func (p *Processor) touch() {
	if p.cfg.EstimateInterval > 0 {
		p.lastEstimate = p.cfg.Clock()
	}
}

// Full reports whether the windows reached capacity.
func (p *Processor) Full() bool {
	return p.times.Full()
}

// Estimate returns the most recent estimate.
func (p *Processor) Estimate() dsp.Estimate {
	return p.estimate
}

// Estimator returns the estimator behind Estimate.
func (p *Processor) Estimator() *dsp.Estimator {
	return p.cfg.Estimator
}

// Stats returns the counters so far.
func (p *Processor) Stats() Stats {
	return p.stats
}

// Reset empties the windows and forgets the last estimate.
func (p *Processor) Reset() {
	p.times.Reset()
	for _, ch := range p.channels {
		ch.Reset()
	}

	p.estimate = dsp.Estimate{Status: dsp.StatusNoSignal}
	p.lastEstimate = time.Time{}
	p.wasFull = false
}
