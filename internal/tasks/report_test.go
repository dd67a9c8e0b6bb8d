package tasks

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportCSV(t *testing.T) {
	report := &ScenarioReport{
		DERType: "battery",
		Meters: []MeterImpact{
			{SAID: "123", PreKWH: 100, PostKWH: 110, PrePeakKW: 8, PostPeakKW: 6,
				PreBill: 50, PostBill: 45},
		},
		Bill: ImpactSummary{Pre: 50, Post: 45, Net: -5},
		GHG:  &ImpactSummary{Pre: 2, Post: 1.5, Net: -0.5},
	}

	out := string(reportCSV(report))
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	assert.Equal(t,
		"said,der_type,pre_kwh,post_kwh,pre_peak_kw,post_peak_kw,pre_bill,post_bill,net_bill",
		lines[0])
	assert.Equal(t,
		"123,battery,100.000000,110.000000,8.000000,6.000000,50.000000,45.000000,-5.000000",
		lines[1])

	// Summary section follows a blank row.
	assert.Equal(t, "calculation,unit,pre,post,net", lines[3])
	assert.Equal(t, "bill,dollars,50.000000,45.000000,-5.000000", lines[4])
	assert.Equal(t, "ghg,tCO2,2.000000,1.500000,-0.500000", lines[5])
	require.Len(t, lines, 6)
}

func TestReportCSVOmitsDisabledCalculations(t *testing.T) {
	out := string(reportCSV(&ScenarioReport{DERType: "solar"}))
	assert.Contains(t, out, "bill,dollars")
	assert.NotContains(t, out, "procurement")
	assert.NotContains(t, out, "resource_adequacy")
	assert.NotContains(t, out, "ghg")
}
