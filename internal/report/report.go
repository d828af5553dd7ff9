// Package report renders nearest-vehicle results as plain text for terminals
// and log files.
package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"vehiclefinder/internal/domain/entities"
	"vehiclefinder/internal/geo"
)

// Writer prints one block per query. Errors from the underlying writer are
// sticky: after the first failure every call is a no-op and Err reports it.
//
// Go Learning Note: The Sticky Error Pattern:
// Checking the error of every Fprintf buries the output logic. Instead the
// Writer records the first error and skips all later writes, the same way
// bufio.Writer does. Callers write the whole report and check Err once at
// the end.
type Writer struct {
	w   io.Writer
	err error
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Nearest writes the block for one query. A nil vehicle prints
// "No vehicle found".
func (rw *Writer) Nearest(query entities.Location, vehicle *entities.VehiclePosition) {
	rw.printf("Nearest vehicle to (%s, %s):\n", formatFloat(query.Latitude), formatFloat(query.Longitude))
	if vehicle == nil {
		rw.printf("No vehicle found\n\n")
		return
	}
	rw.printf("Vehicle ID: %d\n", vehicle.VehicleID)
	rw.printf("Vehicle Registration: %s\n", vehicle.VehicleRegistration)
	rw.printf("Latitude: %s\n", formatFloat(vehicle.Latitude))
	rw.printf("Longitude: %s\n", formatFloat(vehicle.Longitude))
	rw.printf("\n")
}

// Summary writes a one-line account of a build, e.g.
// "Indexed 2,000,000 of 2,000,003 positions (3 outside domain) in 1.2s".
func (rw *Writer) Summary(read int, stats geo.BuildStats, elapsed time.Duration) {
	line := fmt.Sprintf("Indexed %s of %s positions", humanize.Comma(int64(stats.Inserted)), humanize.Comma(int64(read)))
	if stats.Dropped > 0 {
		line += fmt.Sprintf(" (%s outside domain)", humanize.Comma(int64(stats.Dropped)))
	}
	rw.printf("%s in %s\n\n", line, elapsed.Round(time.Millisecond))
}

// Err returns the first write error, if any.
func (rw *Writer) Err() error {
	return rw.err
}

func (rw *Writer) printf(format string, args ...interface{}) {
	if rw.err != nil {
		return
	}
	_, rw.err = fmt.Fprintf(rw.w, format, args...)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
