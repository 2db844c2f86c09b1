package input

// MaxChannels is the most channels a single record can carry.
const MaxChannels = 2

// Sample is one parsed record.
type Sample struct {
	Time     int64                // milliseconds; synthesized when Timed is false
	Timed    bool                 // the record carried its own timestamp
	Values   [MaxChannels]float64 // channel readings, Values[:Channels] are valid
	Channels int                  // number of valid values
}

// Value returns the reading of channel ch.
func (s Sample) Value(ch int) float64 {
	return s.Values[ch]
}

// Processor consumes raw records. Sessions call Process once per record, on
// the goroutine that read it.
type Processor interface {
	Process(record string) error
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(record string) error

// Process calls f(record).
func (f ProcessorFunc) Process(record string) error {
	return f(record)
}

// Discarder is implemented by processors that want to hear about records a
// session threw away before they reached Process, such as over-long lines.
type Discarder interface {
	Discard(record string, err error)
}
