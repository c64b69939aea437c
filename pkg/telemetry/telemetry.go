// Package telemetry logs goal and pose for every tick as "gx;gy;px;py;phi"
// rows, the format the plotting script reads.
package telemetry

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"

	"github.com/tigerbot-team/tigerbot/diffbot/pkg/diffdrive"
)

// FlushEvery bounds how many rows may be lost if the process dies.
const FlushEvery = 50

type CSVRecorder struct {
	w       *csv.Writer
	closer  io.Closer
	pending int
}

var _ diffdrive.Recorder = (*CSVRecorder)(nil)

func NewCSVRecorder(w io.Writer) *CSVRecorder {
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	r := &CSVRecorder{w: cw}
	if c, ok := w.(io.Closer); ok {
		r.closer = c
	}
	return r
}

// Create truncates path and records into it.
func Create(path string) (*CSVRecorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "creating telemetry log")
	}
	return NewCSVRecorder(f), nil
}

func (r *CSVRecorder) Record(s diffdrive.Sample) error {
	err := r.w.Write([]string{
		formatFloat(s.Goal.X),
		formatFloat(s.Goal.Y),
		formatFloat(s.Pose.X),
		formatFloat(s.Pose.Y),
		strconv.FormatFloat(float64(s.Pose.Heading), 'f', 4, 32),
	})
	if err != nil {
		return errors.Wrap(err, "writing telemetry row")
	}
	r.pending++
	if r.pending >= FlushEvery {
		return r.Flush()
	}
	return nil
}

func (r *CSVRecorder) Flush() error {
	r.pending = 0
	r.w.Flush()
	return errors.Wrap(r.w.Error(), "flushing telemetry")
}

func (r *CSVRecorder) Close() error {
	err := r.Flush()
	if r.closer != nil {
		if cerr := r.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 3, 64)
}
