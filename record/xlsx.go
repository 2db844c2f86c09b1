package record

import (
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/sensorbench/pulsewave/input"
)

// SheetName is the sheet samples are streamed to.
const SheetName = "samples"

// XLSX streams samples into a spreadsheet. Nothing reaches the disk until
// Close.
type XLSX struct {
	path   string
	file   *excelize.File
	sw     *excelize.StreamWriter
	header []string
	rows   int
	row    []interface{}
}

// NewXLSX prepares a workbook with a header row. The file at path is written
// on Close.
func NewXLSX(path string, header []string) (*XLSX, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "failed to name sheet")
	}

	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "failed to create header style")
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "failed to open stream writer")
	}

	cells := make([]interface{}, len(header))
	for idx, name := range header {
		cells[idx] = excelize.Cell{StyleID: style, Value: name}
	}

	if err := sw.SetRow("A1", cells); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "failed to write header")
	}

	return &XLSX{
		path:   path,
		file:   f,
		sw:     sw,
		header: header,
		rows:   1,
		row:    make([]interface{}, len(header)),
	}, nil
}

func (x *XLSX) Record(sample input.Sample) error {
	n, err := channelCount(x.header, sample)
	if err != nil {
		return err
	}

	x.rows++

	cell, err := excelize.CoordinatesToCellName(1, x.rows)
	if err != nil {
		return errors.Wrap(err, "row out of range")
	}

	x.row[0] = sample.Time
	for idx := 0; idx < n; idx++ {
		x.row[idx+1] = sample.Value(idx)
	}

	return errors.Wrapf(x.sw.SetRow(cell, x.row), "failed to write row %d", x.rows)
}

// Rows returns the number of rows written, header included.
func (x *XLSX) Rows() int {
	return x.rows
}

func (x *XLSX) Close() error {
	defer x.file.Close()

	if err := x.sw.Flush(); err != nil {
		return errors.Wrap(err, "failed to flush sheet")
	}

	return errors.Wrap(x.file.SaveAs(x.path), "failed to save capture")
}
