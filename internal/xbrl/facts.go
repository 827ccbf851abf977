package xbrl

import (
	"sort"
	"time"

	"fin-analysis/internal/types"
)

const taxonomyGAAP = "us-gaap"

// CompanyFacts is the companyfacts document published per filer
type CompanyFacts struct {
	CIK        int                              `json:"cik"`
	EntityName string                           `json:"entityName"`
	Facts      map[string]map[string]FactSeries `json:"facts"`
}

// FactSeries holds every reported value of one tag, grouped by unit
type FactSeries struct {
	Label string            `json:"label"`
	Units map[string][]Fact `json:"units"`
}

// Fact is a single reported value
type Fact struct {
	Start string  `json:"start,omitempty"`
	End   string  `json:"end"`
	Val   float64 `json:"val"`
	Accn  string  `json:"accn"`
	FY    int     `json:"fy"`
	FP    string  `json:"fp"`
	Form  string  `json:"form"`
	Filed string  `json:"filed"`
	Frame string  `json:"frame,omitempty"`
}

const dateLayout = "2006-01-02"

// IsAnnual reports whether the fact comes from a full-year annual filing.
func (f Fact) IsAnnual() bool {
	return (f.Form == "10-K" || f.Form == "10-K/A") && f.FP == "FY"
}

// preferred reports whether f should replace cur as the value for its
// (tag, fiscal year). A filing also carries prior-year comparatives under
// the same fiscal year; the latest period end is the year's own value.
// Ties go to the longest duration, then the latest filing (amendments).
func (f Fact) preferred(cur Fact) bool {
	if f.End != cur.End {
		return f.End > cur.End
	}
	if f.Start != cur.Start {
		// Earlier start means longer duration; instants have no start.
		return cur.Start == "" || (f.Start != "" && f.Start < cur.Start)
	}
	return f.Filed > cur.Filed
}

type yearValues struct {
	values map[string]float64
	end    string
}

// AnnualPeriods aggregates annual facts into one period per fiscal year,
// most recent first, at most numPeriods long. Years without a parseable
// period end and years with no mapped values are dropped.
func AnnualPeriods(facts *CompanyFacts, ticker string, numPeriods int) []types.StatementPeriod {
	if facts == nil || numPeriods <= 0 {
		return nil
	}
	gaap := facts.Facts[taxonomyGAAP]

	years := make(map[int]*yearValues)
	for _, c := range concepts {
		for _, tag := range c.Tags() {
			series, ok := gaap[tag]
			if !ok {
				continue
			}
			for fy, fact := range latestByYear(series.Units[c.Unit]) {
				y := years[fy]
				if y == nil {
					y = &yearValues{values: make(map[string]float64)}
					years[fy] = y
				}
				y.values[tag] = fact.Val
				if fact.End > y.end {
					y.end = fact.End
				}
			}
		}
	}

	fiscalYears := make([]int, 0, len(years))
	for fy := range years {
		fiscalYears = append(fiscalYears, fy)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(fiscalYears)))

	var periods []types.StatementPeriod
	for _, fy := range fiscalYears {
		y := years[fy]
		end, err := time.Parse(dateLayout, y.end)
		if err != nil {
			continue
		}

		p := types.StatementPeriod{
			Ticker:     ticker,
			FiscalYear: fy,
			PeriodType: types.PeriodAnnual,
			EndDate:    end,
		}
		Populate(&p, y.values)
		if !p.HasData() {
			continue
		}

		periods = append(periods, p)
		if len(periods) == numPeriods {
			break
		}
	}

	return periods
}

func latestByYear(facts []Fact) map[int]Fact {
	out := make(map[int]Fact)
	for _, f := range facts {
		if !f.IsAnnual() || f.FY == 0 {
			continue
		}
		if cur, ok := out[f.FY]; !ok || f.preferred(cur) {
			out[f.FY] = f
		}
	}
	return out
}
