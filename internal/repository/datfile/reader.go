// Package datfile reads vehicle positions from tab-delimited text files, one
// record per line:
//
//	vehicleID <TAB> registration <TAB> latitude <TAB> longitude <TAB> recordedTimeUTC
package datfile

import (
	"bufio"
	"context"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"vehiclefinder/internal/domain/entities"
)

const fieldCount = 5

// Source loads positions from a file on disk.
type Source struct {
	path string
}

func NewSource(path string) *Source {
	return &Source{path: path}
}

func (s *Source) Describe() string {
	return "file:" + s.path
}

func (s *Source) Load(ctx context.Context) ([]*entities.VehiclePosition, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, errors.Wrap(err, "open positions file")
	}
	defer f.Close()

	positions, err := Read(ctx, f)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", s.path)
	}
	return positions, nil
}

// Read parses every record from r. Blank lines are skipped; any other line
// that does not parse fails the whole read with its line number.
func Read(ctx context.Context, r io.Reader) ([]*entities.VehiclePosition, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var positions []*entities.VehiclePosition
	line := 0
	for scanner.Scan() {
		line++
		if line%100000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		text := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}

		p, err := ParseLine(text)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		positions = append(positions, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "scan")
	}
	return positions, nil
}

// ParseLine parses a single tab-delimited record.
func ParseLine(line string) (*entities.VehiclePosition, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != fieldCount {
		return nil, errors.Errorf("expected %d tab-separated fields, got %d", fieldCount, len(fields))
	}

	id, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return nil, errors.Wrap(err, "vehicle id")
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
	if err != nil {
		return nil, errors.Wrap(err, "latitude")
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(fields[3]), 64)
	if err != nil {
		return nil, errors.Wrap(err, "longitude")
	}
	recordedAt, err := strconv.ParseUint(strings.TrimSpace(fields[4]), 10, 64)
	if err != nil {
		return nil, errors.Wrap(err, "recorded time")
	}

	return entities.NewVehiclePosition(id, fields[1], lat, lon, recordedAt), nil
}

// Write emits positions in the same format Read accepts.
func Write(w io.Writer, positions []*entities.VehiclePosition) error {
	bw := bufio.NewWriter(w)
	for _, p := range positions {
		bw.WriteString(strconv.Itoa(p.VehicleID))
		bw.WriteByte('\t')
		bw.WriteString(p.VehicleRegistration)
		bw.WriteByte('\t')
		bw.WriteString(strconv.FormatFloat(p.Latitude, 'f', -1, 64))
		bw.WriteByte('\t')
		bw.WriteString(strconv.FormatFloat(p.Longitude, 'f', -1, 64))
		bw.WriteByte('\t')
		bw.WriteString(strconv.FormatUint(p.RecordedTimeUTC, 10))
		if err := bw.WriteByte('\n'); err != nil {
			return errors.Wrap(err, "write position")
		}
	}
	return errors.Wrap(bw.Flush(), "flush positions")
}
