package tasks

import (
	"bytes"
	"encoding/csv"
	"strconv"
)

// reportCSV renders a scenario report as the downloadable per-meter ledger.
// Summary rows for the population-level calculations follow the meter rows.
func reportCSV(r *ScenarioReport) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{
		"said",
		"der_type",
		"pre_kwh",
		"post_kwh",
		"pre_peak_kw",
		"post_peak_kw",
		"pre_bill",
		"post_bill",
		"net_bill",
	}
	w.Write(header)

	for _, m := range r.Meters {
		w.Write([]string{
			m.SAID,
			r.DERType,
			fmtFloat(m.PreKWH),
			fmtFloat(m.PostKWH),
			fmtFloat(m.PrePeakKW),
			fmtFloat(m.PostPeakKW),
			fmtFloat(m.PreBill),
			fmtFloat(m.PostBill),
			fmtFloat(m.PostBill - m.PreBill),
		})
	}

	w.Write([]string{})
	w.Write([]string{"calculation", "unit", "pre", "post", "net"})
	writeSummary(w, "bill", "dollars", &r.Bill)
	writeSummary(w, "ghg", "tCO2", r.GHG)
	writeSummary(w, "procurement", "dollars", r.Procurement)
	writeSummary(w, "resource_adequacy", "kw", r.ResourceAdequacy)

	w.Flush()
	return buf.Bytes()
}

func writeSummary(w *csv.Writer, name, unit string, s *ImpactSummary) {
	if s == nil {
		return
	}
	w.Write([]string{name, unit, fmtFloat(s.Pre), fmtFloat(s.Post), fmtFloat(s.Net)})
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
