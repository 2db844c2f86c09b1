package input

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrParse marks a record that could not be turned into a Sample. Records
// failing with it are dropped; they never advance a buffer.
var ErrParse = errors.New("malformed record")

// Format is the shape of the records a stream carries.
type Format int

// Formats
const (
	// FormatTimestamped is "<timestamp_ms>,<adc>", both integers.
	FormatTimestamped Format = iota
	// FormatPair is "<red>,<ir>", both floats.
	FormatPair
	// FormatBare is a single non-negative integer.
	FormatBare
)

var formatNames = map[Format]string{
	FormatTimestamped: "ts",
	FormatPair:        "pair",
	FormatBare:        "bare",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return "unknown"
}

// Channels returns the channel count records of this format carry.
func (f Format) Channels() int {
	if f == FormatPair {
		return 2
	}
	return 1
}

// Labels returns the channel names, in record order.
func (f Format) Labels() []string {
	if f == FormatPair {
		return []string{"red", "ir"}
	}
	return []string{"adc_raw"}
}

// ParseFormat looks a format up by name.
func ParseFormat(name string) (Format, error) {
	for f, n := range formatNames {
		if n == name {
			return f, nil
		}
	}
	return 0, errors.Errorf("unknown record format %q (ts, pair, bare)", name)
}

// Parser decodes raw text records of one Format.
type Parser struct {
	format Format
}

// NewParser returns a parser for format.
func NewParser(format Format) *Parser {
	return &Parser{format: format}
}

// Parse decodes one record. Any failure wraps ErrParse and yields no sample.
func (p *Parser) Parse(record string) (Sample, error) {
	record = strings.TrimSpace(record)
	if record == "" {
		return Sample{}, errors.Wrap(ErrParse, "empty record")
	}

	switch p.format {
	case FormatTimestamped:
		first, second, err := splitPair(record)
		if err != nil {
			return Sample{}, err
		}

		ts, err := parseInt(first)
		if err != nil {
			return Sample{}, errors.Wrap(err, "timestamp")
		}

		raw, err := parseInt(second)
		if err != nil {
			return Sample{}, errors.Wrap(err, "value")
		}

		return Sample{
			Time:     ts,
			Timed:    true,
			Values:   [MaxChannels]float64{float64(raw)},
			Channels: 1,
		}, nil

	case FormatPair:
		first, second, err := splitPair(record)
		if err != nil {
			return Sample{}, err
		}

		red, err := parseFloat(first)
		if err != nil {
			return Sample{}, errors.Wrap(err, "red")
		}

		ir, err := parseFloat(second)
		if err != nil {
			return Sample{}, errors.Wrap(err, "ir")
		}

		return Sample{
			Values:   [MaxChannels]float64{red, ir},
			Channels: 2,
		}, nil

	case FormatBare:
		for _, r := range record {
			if r < '0' || r > '9' {
				return Sample{}, errors.Wrapf(ErrParse, "%q is not a bare integer", record)
			}
		}

		raw, err := parseInt(record)
		if err != nil {
			return Sample{}, err
		}

		return Sample{
			Values:   [MaxChannels]float64{float64(raw)},
			Channels: 1,
		}, nil
	}

	return Sample{}, errors.Wrapf(ErrParse, "unsupported format %d", p.format)
}

// splitPair splits on the first comma only; whatever follows it must be the
// second field on its own.
func splitPair(record string) (string, string, error) {
	idx := strings.IndexByte(record, ',')
	if idx < 0 {
		return "", "", errors.Wrapf(ErrParse, "%q: expected two fields", record)
	}
	return strings.TrimSpace(record[:idx]), strings.TrimSpace(record[idx+1:]), nil
}

func parseInt(field string) (int64, error) {
	v, err := strconv.ParseInt(field, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrParse, "%q is not an integer", field)
	}
	return v, nil
}

func parseFloat(field string) (float64, error) {
	v, err := strconv.ParseFloat(field, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.Wrapf(ErrParse, "%q is not a finite number", field)
	}
	return v, nil
}
