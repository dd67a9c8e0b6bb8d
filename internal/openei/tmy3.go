// Package openei parses data products published by OpenEI: TMY3 hourly
// load profiles and U.S. Utility Rate Database tariffs.
package openei

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"navigader/internal/der"
)

// Expected TMY3 column names. Columns are matched by substring since
// published files vary in whitespace and units suffixes.
const (
	tmy3DateColumn         = "Date/Time"
	tmy3TotalColumn        = "Gas:Facility [kW](Hourly)"
	tmy3SpaceHeatingColumn = "Heating:Gas [kW](Hourly)"
	tmy3WaterHeatingColumn = "Water Heater:WaterSystems:Gas [kW](Hourly)"
)

// tmy3Year anchors the yearless TMY3 timestamps. Only month, day, and hour
// are meaningful downstream.
const tmy3Year = 2020

var tmy3DatePattern = regexp.MustCompile(`(\d{2})/(\d{2})\s*(\d{2}):00:00`)

// TMY3 is a parsed Typical Meteorological Year 3 hourly gas profile.
type TMY3 struct {
	Hours []der.GasHour

	// Warnings notes recoverable file defects, such as a missing water
	// heating column auto-filled with zeros.
	Warnings []string
}

type tmy3Columns struct {
	date         int
	total        int
	spaceHeating int
	waterHeating int
}

// ParseTMY3 reads an OpenEI hourly load profile CSV. Timestamps are
// published hour-end (1-24); readings are shifted back one hour to
// hour-start.
func ParseTMY3(r io.Reader) (*TMY3, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "reading header")
	}

	out := &TMY3{}
	cols := tmy3Columns{}
	if cols.date, err = uniqueColumn(header, tmy3DateColumn); err != nil {
		return nil, err
	}
	if cols.total, err = uniqueColumn(header, tmy3TotalColumn); err != nil {
		return nil, err
	}
	if cols.spaceHeating, err = uniqueColumn(header, tmy3SpaceHeatingColumn); err != nil {
		return nil, err
	}
	cols.waterHeating, err = uniqueColumn(header, tmy3WaterHeatingColumn)
	if err != nil {
		// missing water heating data is auto-filled with zeros
		cols.waterHeating = -1
		out.Warnings = append(out.Warnings, fmt.Sprintf(
			"file missing expected column %q", tmy3WaterHeatingColumn))
	}

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "reading record")
		}

		start, err := parseTMY3Timestamp(record[cols.date])
		if err != nil {
			return nil, err
		}
		hour := der.GasHour{Start: start}
		if hour.Total, err = parseTMY3Value(record, cols.total); err != nil {
			return nil, err
		}
		if hour.SpaceHeating, err = parseTMY3Value(record, cols.spaceHeating); err != nil {
			return nil, err
		}
		if cols.waterHeating >= 0 {
			if hour.WaterHeating, err = parseTMY3Value(record, cols.waterHeating); err != nil {
				return nil, err
			}
		}
		out.Hours = append(out.Hours, hour)
	}
	if len(out.Hours) == 0 {
		return nil, errors.New("no readings found")
	}
	return out, nil
}

// uniqueColumn returns the index of the single header containing text.
func uniqueColumn(header []string, text string) (int, error) {
	found := -1
	for i, col := range header {
		if strings.Contains(col, text) {
			if found >= 0 {
				return -1, errors.Errorf("unique column containing %q not found", text)
			}
			found = i
		}
	}
	if found < 0 {
		return -1, errors.Errorf("unique column containing %q not found", text)
	}
	return found, nil
}

// parseTMY3Timestamp reads a yearless hour-end timestamp such as
// "01/01  05:00:00" and returns the hour-start time.
func parseTMY3Timestamp(raw string) (time.Time, error) {
	m := tmy3DatePattern.FindStringSubmatch(raw)
	if m == nil {
		return time.Time{}, errors.Errorf("unrecognized timestamp %q", raw)
	}
	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	hour, _ := strconv.Atoi(m[3])
	if month < 1 || month > 12 || hour < 1 || hour > 24 {
		return time.Time{}, errors.Errorf("unrecognized timestamp %q", raw)
	}
	// hour-end 1-24 becomes hour-start 0-23 of the same day
	return time.Date(tmy3Year, time.Month(month), day, hour-1, 0, 0, 0, time.UTC), nil
}

func parseTMY3Value(record []string, index int) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(record[index]), 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parsing value %q", record[index])
	}
	return v, nil
}
