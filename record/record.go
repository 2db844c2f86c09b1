// Package record persists accepted samples, one row each.
package record

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/sensorbench/pulsewave/input"
	"github.com/sensorbench/pulsewave/processor"
)

// TimeColumn is the first column of every capture.
const TimeColumn = "timestamp_ms"

// Header returns the column names for captures of format.
func Header(format input.Format) []string {
	return append([]string{TimeColumn}, format.Labels()...)
}

// Open creates the capture at path. The extension picks the encoding: .xlsx
// is a spreadsheet, anything else is CSV.
func Open(path string, header []string) (processor.Recorder, error) {
	if len(header) < 2 {
		return nil, errors.Errorf("header needs a time column and at least one channel, got %v", header)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		x, err := NewXLSX(path, header)
		if err != nil {
			return nil, err
		}
		return x, nil
	case ".csv", ".txt", "":
		c, err := NewCSV(path, header)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, errors.Errorf("unsupported capture type %q (.csv, .xlsx)", filepath.Ext(path))
	}
}

func channelCount(header []string, sample input.Sample) (int, error) {
	n := len(header) - 1
	if sample.Channels != n {
		return 0, errors.Errorf("sample has %d channels, capture has %d", sample.Channels, n)
	}
	return n, nil
}
