// Package ingest parses customer meter data files into interval frames.
//
// The primary format is PG&E Item 17: wide CSVs with one row per service
// agreement per day and one column per interval ending time.
//
// 15-minute files carry the columns
// SA_ID,DIR,DATE,RS,0:15,0:30,...,23:45,0:00 and 60-minute files carry
// SA_ID,DIR,DATE,RS,1:00,2:00,...,23:00,0:00.
package ingest

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"navigader/internal/timeseries"
)

// Meter directions found in the DIR column. Delivered readings are load,
// received readings are export and are negated on ingest.
const (
	DirectionDelivered = "D"
	DirectionReceived  = "R"
)

// Units found in the UOM column.
const (
	UnitKW  = "KW"
	UnitKWH = "KWH"
)

// Item17 is a parsed Item 17 file. Readings are grouped by service
// agreement ID.
type Item17 struct {
	UOM       string
	Direction string

	saIDs     []string
	readings  map[string][]timeseries.Reading
	ratePlans map[string]string
}

type item17Columns struct {
	saID       int
	date       int
	uom        int
	direction  int
	ratePlan   int
	timestamps []timestampColumn
}

type timestampColumn struct {
	index int
	label string
}

// ParseItem17 reads a wide-format Item 17 CSV and stacks it into
// per-meter interval readings.
func ParseItem17(r io.Reader) (*Item17, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "reading header")
	}
	cols, err := discoverColumns(header)
	if err != nil {
		return nil, err
	}

	out := &Item17{
		readings:  map[string][]timeseries.Reading{},
		ratePlans: map[string]string{},
	}
	rowIntervals := map[string]map[time.Time]float64{}

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "reading record")
		}

		if err := out.noteUOM(record[cols.uom]); err != nil {
			return nil, err
		}
		if err := out.noteDirection(record[cols.direction]); err != nil {
			return nil, err
		}

		said := record[cols.saID]
		if _, ok := rowIntervals[said]; !ok {
			out.saIDs = append(out.saIDs, said)
			rowIntervals[said] = map[time.Time]float64{}
		}
		if cols.ratePlan >= 0 && out.ratePlans[said] == "" {
			out.ratePlans[said] = record[cols.ratePlan]
		}

		date := record[cols.date]
		for _, tc := range cols.timestamps {
			ts, err := parseItem17Timestamp(date, tc.label)
			if err != nil {
				return nil, errors.Wrapf(err, "row for SA ID %s", said)
			}
			value, err := strconv.ParseFloat(strings.TrimSpace(record[tc.index]), 64)
			if err != nil {
				// unparseable cells are gaps in the source data
				continue
			}
			// duplicate timestamps keep the first reading
			if _, seen := rowIntervals[said][ts]; !seen {
				rowIntervals[said][ts] = value
			}
		}
	}

	for said, intervals := range rowIntervals {
		readings := make([]timeseries.Reading, 0, len(intervals))
		for ts, kw := range intervals {
			if out.Direction == DirectionReceived {
				kw = -kw
			}
			readings = append(readings, timeseries.Reading{Start: ts, KW: kw})
		}
		sort.Slice(readings, func(i, j int) bool {
			return readings[i].Start.Before(readings[j].Start)
		})
		out.readings[said] = readings
	}
	sort.Strings(out.saIDs)
	return out, nil
}

// discoverColumns locates the SA ID, DATE, UOM, DIR, and RS columns plus
// the interval-ending timestamp columns.
func discoverColumns(header []string) (item17Columns, error) {
	cols := item17Columns{saID: -1, date: -1, uom: -1, direction: -1, ratePlan: -1}
	for i, raw := range header {
		name := normalizeColumn(raw)
		switch {
		case name == "DATE":
			cols.date = i
		case name == "UOM":
			cols.uom = i
		case name == "DIR":
			cols.direction = i
		case name == "RS":
			cols.ratePlan = i
		case strings.Contains(name, "SA"):
			if cols.saID >= 0 {
				return cols, errors.New("a unique SA ID column not found")
			}
			cols.saID = i
		case strings.ContainsAny(name, "0123456789"):
			cols.timestamps = append(cols.timestamps, timestampColumn{
				index: i,
				label: name,
			})
		}
	}
	if cols.saID < 0 {
		return cols, errors.New("a unique SA ID column not found")
	}
	if cols.date < 0 {
		return cols, errors.New("DATE column not found")
	}
	if cols.uom < 0 {
		return cols, errors.New("UOM column not found")
	}
	if cols.direction < 0 {
		return cols, errors.New("DIR column not found")
	}
	if len(cols.timestamps) == 0 {
		return cols, errors.New("no timestamp columns found")
	}
	return cols, nil
}

// normalizeColumn rewrites header variants like H_0_15 to 0:15.
func normalizeColumn(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "H_")
	return strings.ReplaceAll(name, "_", ":")
}

// parseItem17Timestamp combines a DATE cell with an interval-ending column
// label. Four-digit years are tried first, then two-digit.
func parseItem17Timestamp(date, clock string) (time.Time, error) {
	raw := strings.TrimSpace(date) + " " + clock
	ts, err := time.Parse("1/2/2006 15:04", raw)
	if err != nil {
		ts, err = time.Parse("1/2/06 15:04", raw)
	}
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parsing timestamp %q", raw)
	}
	return ts, nil
}

func (f *Item17) noteUOM(uom string) error {
	uom = strings.ToUpper(strings.TrimSpace(uom))
	if uom != UnitKW && uom != UnitKWH {
		return errors.Errorf("UOM column should contain only KW or KWH, got %q", uom)
	}
	if f.UOM == "" {
		f.UOM = uom
		return nil
	}
	if f.UOM != uom {
		return errors.New("UOM column should contain a single unit")
	}
	return nil
}

func (f *Item17) noteDirection(dir string) error {
	dir = strings.ToUpper(strings.TrimSpace(dir))
	if dir != DirectionDelivered && dir != DirectionReceived {
		return errors.Errorf("DIR column should contain only D or R, got %q", dir)
	}
	if f.Direction == "" {
		f.Direction = dir
		return nil
	}
	if f.Direction != dir {
		return errors.New("DIR column should contain a single direction")
	}
	return nil
}

// SAIDs returns the distinct service agreement IDs in the file.
func (f *Item17) SAIDs() []string { return f.saIDs }

// RatePlanName returns the RS column value for a service agreement, if
// present.
func (f *Item17) RatePlanName(said string) string { return f.ratePlans[said] }

// Frame returns one meter's readings as a power interval frame. kWh values
// are converted to average kW using the detected interval period.
func (f *Item17) Frame(said string) (*timeseries.IntervalFrame, error) {
	readings, ok := f.readings[said]
	if !ok {
		return nil, errors.Errorf("SA ID %s not found", said)
	}
	frame, err := timeseries.New(readings)
	if err != nil {
		return nil, errors.Wrapf(err, "SA ID %s", said)
	}
	if f.UOM == UnitKWH {
		period := frame.Period()
		if period <= 0 {
			return nil, errors.Errorf("SA ID %s: cannot convert kWh readings without a detectable interval", said)
		}
		if multiplier := float64(time.Hour) / float64(period); multiplier != 1 {
			frame = frame.Scale(multiplier)
		}
	}
	return frame, nil
}
