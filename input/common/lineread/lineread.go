// Package lineread pumps newline-delimited records from a reader into a
// processor.
package lineread

import (
	"bufio"
	"bytes"
	"context"
	"io"

	"github.com/pkg/errors"

	"github.com/sensorbench/pulsewave/input"
)

// MaxRecord is the longest record accepted, line ending excluded. Longer lines
// are skipped up to their newline and reported to processors implementing
// input.Discarder.
const MaxRecord = 64 * 1024

// discardHead is how much of a skipped line is kept for the report.
const discardHead = 32

const readSize = 4096

// Pump reads r line by line and hands each line to proc, without its "\n" or
// "\r\n". The read is the only blocking call; ctx is checked after each
// record, so a session that must stop sooner has to close r itself.
//
// Pump returns nil at EOF and ctx.Err() once ctx is done.
func Pump(ctx context.Context, r io.Reader, proc input.Processor) error {
	br := bufio.NewReaderSize(r, readSize)
	discarder, _ := proc.(input.Discarder)

	var (
		record  []byte
		head    string
		tooLong bool
	)

	for {
		chunk, err := br.ReadSlice('\n')

		if !tooLong {
			record = append(record, chunk...)

			if len(trimEOL(record)) > MaxRecord {
				head = string(record[:discardHead])
				record = record[:0]
				tooLong = true
			}
		}

		if err == bufio.ErrBufferFull {
			continue
		}

		if err != nil && err != io.EOF {
			return errors.Wrap(err, "failed to read record")
		}

		eof := err == io.EOF
		if eof && len(record) == 0 && !tooLong {
			break
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		if tooLong {
			if discarder != nil {
				discarder.Discard(head, errors.Wrapf(input.ErrParse,
					"record longer than %d bytes", MaxRecord))
			}
		} else if err := proc.Process(string(trimEOL(record))); err != nil {
			return err
		}

		record = record[:0]
		tooLong = false

		if eof {
			break
		}
	}

	return ctx.Err()
}

func trimEOL(line []byte) []byte {
	line = bytes.TrimSuffix(line, []byte("\n"))
	return bytes.TrimSuffix(line, []byte("\r"))
}
