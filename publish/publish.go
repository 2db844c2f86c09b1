// Package publish fans frames out to NATS subscribers as JSON.
package publish

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/sensorbench/pulsewave/frame"
)

const (
	// WaveSuffix is appended to the subject for waveform messages.
	WaveSuffix = ".wave"
	// VitalsSuffix is appended to the subject for vitals messages.
	VitalsSuffix = ".vitals"
)

// Connect dials a NATS server. Reconnects are retried forever; messages
// published while disconnected are buffered by the client.
func Connect(url, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(
		url,
		nats.Name(name),
		nats.Timeout(3*time.Second),
		nats.ReconnectWait(500*time.Millisecond),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to %s", url)
	}
	return nc, nil
}

// Conn is the part of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Series is one channel of a WaveMessage.
type Series struct {
	Label    string    `json:"label"`
	Values   []float64 `json:"values"`
	Fallback string    `json:"fallback"`
}

// WaveMessage carries the conditioned window of one frame.
type WaveMessage struct {
	Session string    `json:"session"`
	Seq     uint64    `json:"seq"`
	Ts      int64     `json:"ts"`
	Axis    string    `json:"axis"`
	X       []float64 `json:"x"`
	Series  []Series  `json:"series"`
}

// VitalsMessage carries a refreshed estimate. Absent values are null.
type VitalsMessage struct {
	Session string   `json:"session"`
	Seq     uint64   `json:"seq"`
	Ts      int64    `json:"ts"`
	HR      *float64 `json:"hr"`
	SpO2    *float64 `json:"spo2"`
	Status  string   `json:"status"`
}

// Config configures a Publisher.
type Config struct {
	Subject   string           // base subject, e.g. "ecg"
	WaveEvery int              // publish every n-th waveform, 0 or 1 for all
	Logger    *zap.Logger      // nil logs nothing
	Clock     func() time.Time // defaults to time.Now
}

// Publisher is a processor output writing to NATS.
type Publisher struct {
	conn    Conn
	cfg     Config
	session string
	log     *zap.Logger
	frames  uint64
}

// NewPublisher wraps conn. Every publisher gets its own session id so
// subscribers can tell restarted streams apart.
func NewPublisher(conn Conn, cfg Config) (*Publisher, error) {
	if conn == nil {
		return nil, errors.New("no nats connection")
	}

	if cfg.Subject == "" {
		return nil, errors.New("no subject")
	}

	if cfg.WaveEvery < 1 {
		cfg.WaveEvery = 1
	}

	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	p := &Publisher{
		conn:    conn,
		cfg:     cfg,
		session: uuid.NewString(),
		log:     cfg.Logger,
	}

	p.log.Info("publishing",
		zap.String("session", p.session),
		zap.String("wave", p.WaveSubject()),
		zap.String("vitals", p.VitalsSubject()))

	return p, nil
}

// Session returns the id stamped on every message.
func (p *Publisher) Session() string {
	return p.session
}

func (p *Publisher) WaveSubject() string {
	return p.cfg.Subject + WaveSuffix
}

func (p *Publisher) VitalsSubject() string {
	return p.cfg.Subject + VitalsSuffix
}

func (p *Publisher) Write(f frame.Frame) error {
	ts := p.cfg.Clock().UnixMilli()

	if p.frames%uint64(p.cfg.WaveEvery) == 0 {
		if err := p.publish(p.WaveSubject(), waveMessage(p.session, ts, f)); err != nil {
			return err
		}
	}
	p.frames++

	if !f.Refreshed {
		return nil
	}

	return p.publish(p.VitalsSubject(), vitalsMessage(p.session, ts, f))
}

func (p *Publisher) publish(subject string, msg interface{}) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s message", subject)
	}

	return errors.Wrapf(p.conn.Publish(subject, data), "failed to publish to %s", subject)
}

// Close drains the connection when it supports it.
func (p *Publisher) Close() error {
	if d, ok := p.conn.(interface{ Drain() error }); ok {
		return errors.Wrap(d.Drain(), "failed to drain nats connection")
	}
	return nil
}

func waveMessage(session string, ts int64, f frame.Frame) WaveMessage {
	msg := WaveMessage{
		Session: session,
		Seq:     f.Seq,
		Ts:      ts,
		Axis:    f.AxisKind.String(),
		X:       f.Axis,
		Series:  make([]Series, len(f.Series)),
	}

	for idx, s := range f.Series {
		msg.Series[idx] = Series{
			Label:    s.Label,
			Values:   s.Values,
			Fallback: s.Fallback.String(),
		}
	}

	return msg
}

func vitalsMessage(session string, ts int64, f frame.Frame) VitalsMessage {
	msg := VitalsMessage{
		Session: session,
		Seq:     f.Seq,
		Ts:      ts,
		Status:  f.Estimate.Status.String(),
	}

	if f.Estimate.HeartRateOK {
		hr := f.Estimate.HeartRate
		msg.HR = &hr
	}

	if f.Estimate.SpO2OK {
		spo2 := f.Estimate.SpO2
		msg.SpO2 = &spo2
	}

	return msg
}
