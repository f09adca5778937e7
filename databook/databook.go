// Package databook holds the per-population numeric data that accompanies
// a framework: population definitions, per-variable time series, transfer
// tables, and interaction weight matrices (spec.md §3, §6 "Databook").
package databook

import (
	"fmt"
	"sort"
)

// TimeSeries is a piecewise-linear function of time: sorted (t, value)
// pairs, interpolated between points and held flat (clamped) outside the
// declared range. A TimeSeries with no points degenerates to a constant 0.
type TimeSeries struct {
	Years  []float64 `yaml:"t"`
	Values []float64 `yaml:"v"`
}

// At returns the interpolated value at year t. Points need not be sorted in
// the fixture; Validate normalizes that.
func (ts TimeSeries) At(t float64) float64 {
	n := len(ts.Years)
	if n == 0 {
		return 0
	}
	if n == 1 || t <= ts.Years[0] {
		return ts.Values[0]
	}
	if t >= ts.Years[n-1] {
		return ts.Values[n-1]
	}
	i := sort.Search(n, func(i int) bool { return ts.Years[i] >= t })
	// ts.Years[i-1] < t <= ts.Years[i]
	y0, y1 := ts.Years[i-1], ts.Years[i]
	v0, v1 := ts.Values[i-1], ts.Values[i]
	if y1 == y0 {
		return v0
	}
	frac := (t - y0) / (y1 - y0)
	return v0 + frac*(v1-v0)
}

// sortInPlace orders points by year, keeping values paired with years.
func (ts *TimeSeries) sortInPlace() {
	n := len(ts.Years)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return ts.Years[idx[a]] < ts.Years[idx[b]] })
	years := make([]float64, n)
	values := make([]float64, n)
	for newPos, oldPos := range idx {
		years[newPos] = ts.Years[oldPos]
		values[newPos] = ts.Values[oldPos]
	}
	ts.Years, ts.Values = years, values
}

// VarData is one variable's (compartment/characteristic/parameter) data
// page for a single population: an optional y-factor scalar and its
// time series.
type VarData struct {
	Name    string     `yaml:"name"`
	YFactor float64    `yaml:"y_factor"`
	Series  TimeSeries `yaml:"series"`
}

// PopulationDef declares one population instance: its code name, the
// framework population type it instantiates, and a display label
// (spec.md §4.3 step 1).
type PopulationDef struct {
	Name    string `yaml:"name"`
	Label   string `yaml:"label"`
	PopType string `yaml:"population_type"`
}

// Page is one databook page: the per-population variable data for every
// variable declared against a population type.
type Page struct {
	Population string    `yaml:"population"`
	Data       []VarData `yaml:"data"`
}

// Transfer declares a per-pair time series moving entities of every shared
// compartment from population FromPop to population ToPop, in Units
// (spec.md §4.3 step 4, §6 "Transfers sheet").
type Transfer struct {
	Name    string     `yaml:"name"`
	Units   string     `yaml:"units"` // "number" or "probability"
	FromPop string     `yaml:"from_population"`
	ToPop   string     `yaml:"to_population"`
	Series  TimeSeries `yaml:"series"`
}

// InteractionWeight is one (from, to) cell of a named interaction matrix.
type InteractionWeight struct {
	Interaction string  `yaml:"interaction"`
	FromPop     string  `yaml:"from_population"`
	ToPop       string  `yaml:"to_population"`
	Weight      float64 `yaml:"weight"`
}

// Databook is the fully parsed, not-yet-cross-validated data model (spec.md
// §3, §6 "Databook file").
type Databook struct {
	Populations  []PopulationDef     `yaml:"populations"`
	Pages        []Page              `yaml:"pages"`
	Transfers    []Transfer          `yaml:"transfers"`
	Interactions []InteractionWeight `yaml:"interactions"`
}

// Normalize sorts every time series by year in place. loaders call this
// once after unmarshalling so At() can binary-search safely.
func (d *Databook) Normalize() {
	for i := range d.Pages {
		for j := range d.Pages[i].Data {
			d.Pages[i].Data[j].Series.sortInPlace()
		}
	}
	for i := range d.Transfers {
		d.Transfers[i].Series.sortInPlace()
	}
}

// Validate checks internal consistency: duplicate population names, unknown
// population types referenced by a page/transfer/interaction, and duplicate
// variable data within one page.
func (d *Databook) Validate(knownPopTypes map[string]bool) []error {
	var errs []error

	popNames := make(map[string]bool)
	popTypeOf := make(map[string]string)
	for _, p := range d.Populations {
		if popNames[p.Name] {
			errs = append(errs, fmt.Errorf("databook: duplicate population %q", p.Name))
		}
		popNames[p.Name] = true
		popTypeOf[p.Name] = p.PopType
		if knownPopTypes != nil && !knownPopTypes[p.PopType] {
			errs = append(errs, fmt.Errorf("databook: population %q references unknown population type %q", p.Name, p.PopType))
		}
	}

	pageSeen := make(map[string]bool)
	for _, pg := range d.Pages {
		if !popNames[pg.Population] {
			errs = append(errs, fmt.Errorf("databook: data page references unknown population %q", pg.Population))
		}
		if pageSeen[pg.Population] {
			errs = append(errs, fmt.Errorf("databook: population %q has more than one data page", pg.Population))
		}
		pageSeen[pg.Population] = true

		varSeen := make(map[string]bool)
		for _, v := range pg.Data {
			if varSeen[v.Name] {
				errs = append(errs, fmt.Errorf("databook: population %q declares variable %q more than once", pg.Population, v.Name))
			}
			varSeen[v.Name] = true
			if len(v.Series.Years) != len(v.Series.Values) {
				errs = append(errs, fmt.Errorf("databook: population %q variable %q has mismatched t/v series lengths", pg.Population, v.Name))
			}
		}
	}

	for _, tr := range d.Transfers {
		if !popNames[tr.FromPop] {
			errs = append(errs, fmt.Errorf("databook: transfer %q references unknown source population %q", tr.Name, tr.FromPop))
		}
		if !popNames[tr.ToPop] {
			errs = append(errs, fmt.Errorf("databook: transfer %q references unknown destination population %q", tr.Name, tr.ToPop))
		}
		if popTypeOf[tr.FromPop] != "" && popTypeOf[tr.ToPop] != "" && popTypeOf[tr.FromPop] != popTypeOf[tr.ToPop] {
			errs = append(errs, fmt.Errorf("databook: transfer %q connects populations of different types (%q, %q)", tr.Name, popTypeOf[tr.FromPop], popTypeOf[tr.ToPop]))
		}
		if tr.Units != "number" && tr.Units != "probability" {
			errs = append(errs, fmt.Errorf("databook: transfer %q has invalid units %q (want number or probability)", tr.Name, tr.Units))
		}
	}

	for _, ia := range d.Interactions {
		if !popNames[ia.FromPop] {
			errs = append(errs, fmt.Errorf("databook: interaction %q references unknown source population %q", ia.Interaction, ia.FromPop))
		}
		if !popNames[ia.ToPop] {
			errs = append(errs, fmt.Errorf("databook: interaction %q references unknown destination population %q", ia.Interaction, ia.ToPop))
		}
	}

	return errs
}

// PageFor returns the data page declared for a population, if any.
func (d *Databook) PageFor(population string) (Page, bool) {
	for _, pg := range d.Pages {
		if pg.Population == population {
			return pg, true
		}
	}
	return Page{}, false
}

// VarDataFor returns a named variable's data within a population's page.
func (d *Databook) VarDataFor(population, variable string) (VarData, bool) {
	pg, ok := d.PageFor(population)
	if !ok {
		return VarData{}, false
	}
	for _, v := range pg.Data {
		if v.Name == variable {
			return v, true
		}
	}
	return VarData{}, false
}

// InteractionWeightFor looks up the weight of one (from, to) cell of a
// named interaction matrix.
func (d *Databook) InteractionWeightFor(interaction, from, to string) (float64, bool) {
	for _, w := range d.Interactions {
		if w.Interaction == interaction && w.FromPop == from && w.ToPop == to {
			return w.Weight, true
		}
	}
	return 0, false
}
