package record

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/pkg/errors"

	"github.com/sensorbench/pulsewave/input"
)

// CSV appends samples to a comma separated file. Every row is flushed as it
// is written so an interrupted capture keeps what it saw.
type CSV struct {
	file   *os.File
	w      *csv.Writer
	header []string
	row    []string
}

// NewCSV truncates path and writes header.
func NewCSV(path string, header []string) (*CSV, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create capture")
	}

	c := &CSV{
		file:   file,
		w:      csv.NewWriter(file),
		header: header,
		row:    make([]string, len(header)),
	}

	if err := c.write(header); err != nil {
		file.Close()
		return nil, err
	}

	return c, nil
}

func (c *CSV) Record(sample input.Sample) error {
	n, err := channelCount(c.header, sample)
	if err != nil {
		return err
	}

	c.row[0] = strconv.FormatInt(sample.Time, 10)
	for idx := 0; idx < n; idx++ {
		c.row[idx+1] = strconv.FormatFloat(sample.Value(idx), 'f', -1, 64)
	}

	return c.write(c.row)
}

func (c *CSV) write(row []string) error {
	if err := c.w.Write(row); err != nil {
		return errors.Wrap(err, "failed to write row")
	}

	c.w.Flush()
	return errors.Wrap(c.w.Error(), "failed to flush row")
}

func (c *CSV) Close() error {
	c.w.Flush()
	flushErr := c.w.Error()

	if err := c.file.Close(); err != nil {
		return errors.Wrap(err, "failed to close capture")
	}

	return errors.Wrap(flushErr, "failed to flush capture")
}
