package graphic

import (
	"context"
	"sync"
	"time"

	"github.com/nsf/termbox-go"
	"github.com/pkg/errors"

	"github.com/sensorbench/pulsewave/frame"
)

const (
	// TraceRune draws the waveform.
	TraceRune rune = '█'

	// DefaultRefreshRate is the most redraws per second.
	DefaultRefreshRate = 30
)

// Styles are the termbox attributes used for drawing.
type Styles struct {
	Foreground termbox.Attribute
	Background termbox.Attribute
	Center     termbox.Attribute
}

// DefaultStyles returns the default styles.
func DefaultStyles() Styles {
	return Styles{
		Foreground: termbox.ColorGreen,
		Background: termbox.ColorDefault,
		Center:     termbox.ColorDarkGray,
	}
}

// StylesFromUInt16 builds styles from raw 256-color values with attributes.
func StylesFromUInt16(fg, bg, center uint16) Styles {
	return Styles{
		Foreground: termbox.Attribute(fg),
		Background: termbox.Attribute(bg),
		Center:     termbox.Attribute(center),
	}
}

// AsUInt16s returns the styles as raw values.
func (s Styles) AsUInt16s() (uint16, uint16, uint16) {
	return uint16(s.Foreground), uint16(s.Background), uint16(s.Center)
}

// Display draws frames on the terminal, one lane per series with a status
// line on top.
type Display struct {
	styles   Styles
	interval time.Duration

	mu       sync.Mutex
	lastDraw time.Time
	restore  func()
	started  bool
}

// NewDisplay returns a display with the default styles.
func NewDisplay() *Display {
	d := &Display{styles: DefaultStyles()}
	d.SetRefreshRate(DefaultRefreshRate)
	return d
}

// SetStyles sets the drawing styles.
func (d *Display) SetStyles(styles Styles) {
	d.mu.Lock()
	d.styles = styles
	d.mu.Unlock()
}

// SetRefreshRate limits redraws to rate per second. 0 redraws every frame.
func (d *Display) SetRefreshRate(rate int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if rate <= 0 {
		d.interval = 0
		return
	}
	d.interval = time.Second / time.Duration(rate)
}

// Init sets up the terminal.
func (d *Display) Init() error {
	restore, err := normalizeTerminal()
	if err != nil {
		return errors.Wrap(err, "failed to normalize terminal")
	}

	if err := termbox.Init(); err != nil {
		restore()
		return errors.Wrap(err, "failed to init termbox")
	}

	termbox.SetInputMode(termbox.InputEsc)
	termbox.SetOutputMode(termbox.Output256)
	termbox.HideCursor()

	d.mu.Lock()
	d.restore = restore
	d.started = true
	d.mu.Unlock()

	return nil
}

// Close cleans up the terminal.
func (d *Display) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.started {
		return nil
	}

	termbox.Close()
	d.restore()
	d.started = false

	return nil
}

// Start polls terminal events. The returned context is cancelled when the
// user quits.
func (d *Display) Start(ctx context.Context) context.Context {
	dispCtx, dispCancel := context.WithCancel(ctx)
	go eventPoller(dispCtx, dispCancel)
	return dispCtx
}

// Stop wakes the event poller.
func (d *Display) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started {
		termbox.Interrupt()
	}
	return nil
}

func eventPoller(ctx context.Context, fn context.CancelFunc) {
	defer fn()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		switch ev := termbox.PollEvent(); ev.Type {
		case termbox.EventKey:
			switch ev.Key {
			case termbox.KeyCtrlC, termbox.KeyEsc:
				return
			}

			switch ev.Ch {
			case 'q', 'Q':
				return
			}

		case termbox.EventInterrupt, termbox.EventError:
			return
		}
	}
}

// Write draws f unless the last redraw was too recent.
func (d *Display) Write(f frame.Frame) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.started {
		return nil
	}

	now := time.Now()
	if d.interval > 0 && now.Sub(d.lastDraw) < d.interval {
		return nil
	}
	d.lastDraw = now

	if err := termbox.Clear(d.styles.Background, d.styles.Background); err != nil {
		return errors.Wrap(err, "failed to clear screen")
	}

	width, height := termbox.Size()

	drawText(0, 0, StatusLine(f), d.styles.Foreground|termbox.AttrBold, d.styles.Background)

	lanes := len(f.Series)
	if lanes == 0 || height < 2 {
		return termbox.Flush()
	}

	laneHeight := (height - 1) / lanes

	for idx, s := range f.Series {
		top := 1 + idx*laneHeight
		drawLane(s.Values, width, top, laneHeight, d.styles)
		drawText(0, top, s.Label, d.styles.Center, d.styles.Background)
	}

	return errors.Wrap(termbox.Flush(), "failed to flush screen")
}

func drawText(x, y int, text string, fg, bg termbox.Attribute) {
	for _, r := range text {
		termbox.SetCell(x, y, r, fg, bg)
		x++
	}
}

func drawLane(values []float64, width, top, height int, styles Styles) {
	if height < 1 {
		return
	}

	center := top + height/2
	for xCol := 0; xCol < width; xCol++ {
		termbox.SetCell(xCol, center, '─', styles.Center, styles.Background)
	}

	for xCol, sp := range columnSpans(values, width, height) {
		for xRow := sp.top; xRow <= sp.bottom; xRow++ {
			termbox.SetCell(xCol, top+xRow, TraceRune, styles.Foreground, styles.Background)
		}
	}
}
