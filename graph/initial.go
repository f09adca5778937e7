package graph

import (
	"fmt"

	"github.com/atomica-sim/atomica/databook"
	"github.com/atomica-sim/atomica/framework"
)

// solveInitialSizes implements spec.md §4.3 step 6: characteristic values
// are linear combinations of compartment sizes (plus a denominator
// constraint for fractions); solve for every compartment's t=0 size.
//
// Per-population algorithm:
//  1. Any compartment with its own databook data is directly known: its
//     initial value is the data series evaluated at its first declared
//     point.
//  2. Every setup characteristic with declared setup data contributes one
//     linear equation over the remaining unknown compartments (flattening
//     nested characteristic includes to compartment coefficients).
//  3. The resulting system is solved by Gaussian elimination with partial
//     pivoting. Unknowns left undetermined (free columns) take the
//     compartment's framework default, or 0.
//  4. A negative solved value is clamped to 0.
func solveInitialSizes(g *Graph, fw *framework.Framework, db *databook.Databook) []error {
	var errs []error

	setupCharacs := make(map[string]bool)
	for _, c := range fw.Characteristics {
		if c.IsSetup {
			setupCharacs[c.Name] = true
		}
	}

	for _, pop := range g.Populations {
		known := make(map[string]float64)
		var unknownOrder []string
		unknownIndex := make(map[string]int)

		for _, c := range pop.Compartments {
			if c.IsSource || c.IsSink {
				// Sources and sinks are not solved for: they hold a constant
				// declared size for the whole run (spec.md §4.5), acting as
				// an infinite reservoir or an infinite drain.
				c.Initial = c.Default
				continue
			}
			if c.IsJunction {
				continue
			}
			if vd, ok := db.VarDataFor(pop.Name, c.Name); ok && len(vd.Series.Years) > 0 {
				known[c.Name] = vd.Series.At(vd.Series.Years[0])
				continue
			}
			unknownIndex[c.Name] = len(unknownOrder)
			unknownOrder = append(unknownOrder, c.Name)
		}

		var rows [][]float64 // each row: len(unknownOrder)+1, last col is RHS
		for _, cd := range fw.Characteristics {
			if cd.PopType != pop.PopType || !setupCharacs[cd.Name] {
				continue
			}
			coeffs := make(map[string]float64)
			if !flattenCompartments(cd.Name, fw, pop.PopType, coeffs, make(map[string]bool)) {
				errs = append(errs, fmt.Errorf("graph: population %q characteristic %q: cannot flatten includes to compartments", pop.Name, cd.Name))
				continue
			}
			vd, ok := db.VarDataFor(pop.Name, cd.Name)
			if !ok || len(vd.Series.Years) == 0 {
				continue // no setup data supplied for this characteristic; skip
			}
			rhs := vd.Series.At(vd.Series.Years[0])
			if cd.Denominator != "" {
				denomVal, ok := resolveKnown(cd.Denominator, fw, pop, known)
				if !ok {
					errs = append(errs, fmt.Errorf("graph: population %q characteristic %q: cannot resolve denominator %q for initial solve", pop.Name, cd.Name, cd.Denominator))
					continue
				}
				rhs *= denomVal
			}

			row := make([]float64, len(unknownOrder)+1)
			hasUnknown := false
			for name, coef := range coeffs {
				if v, ok := known[name]; ok {
					rhs -= coef * v
					continue
				}
				idx, ok := unknownIndex[name]
				if !ok {
					continue
				}
				row[idx] += coef
				hasUnknown = true
			}
			row[len(unknownOrder)] = rhs
			if hasUnknown {
				rows = append(rows, row)
			} else if rhs < -1e-6 || rhs > 1e-6 {
				errs = append(errs, fmt.Errorf("graph: population %q characteristic %q: inconsistent setup values (residual %.6g)", pop.Name, cd.Name, rhs))
			}
		}

		solved, underdetermined := gaussianSolve(rows, len(unknownOrder))
		if solved == nil && len(rows) > 0 {
			errs = append(errs, fmt.Errorf("graph: population %q: over-determined or inconsistent initial-value system", pop.Name))
			continue
		}

		for _, c := range pop.Compartments {
			if c.IsSource || c.IsSink || c.IsJunction {
				continue
			}
			if v, ok := known[c.Name]; ok {
				c.Initial = v
				continue
			}
			idx, ok := unknownIndex[c.Name]
			if !ok {
				continue
			}
			if solved == nil || underdetermined[idx] {
				c.Initial = c.Default
				continue
			}
			v := solved[idx]
			if v < 0 {
				v = 0
			}
			c.Initial = v
		}
	}

	return errs
}

// resolveKnown resolves a compartment or characteristic's value for the
// purpose of a fraction characteristic's denominator: known compartments
// resolve directly; non-fraction characteristics resolve as the sum of
// their own known includes.
func resolveKnown(name string, fw *framework.Framework, pop *Population, known map[string]float64) (float64, bool) {
	if v, ok := known[name]; ok {
		return v, true
	}
	for _, cd := range fw.Characteristics {
		if cd.Name != name || cd.PopType != pop.PopType {
			continue
		}
		if cd.Denominator != "" {
			return 0, false // nested fractions are not supported
		}
		total := 0.0
		for _, inc := range cd.Includes {
			v, ok := resolveKnown(inc, fw, pop, known)
			if !ok {
				return 0, false
			}
			total += v
		}
		return total, true
	}
	return 0, false
}

// flattenCompartments expands a compartment/characteristic name into a
// coefficient map over compartment names, following `includes` lists
// recursively. Returns false if a cycle is detected.
func flattenCompartments(name string, fw *framework.Framework, popType string, out map[string]float64, seen map[string]bool) bool {
	if seen[name] {
		return false
	}
	seen[name] = true
	for _, cd := range fw.Compartments {
		if cd.Name == name && cd.PopType == popType {
			out[name]++
			return true
		}
	}
	for _, cd := range fw.Characteristics {
		if cd.Name == name && cd.PopType == popType {
			for _, inc := range cd.Includes {
				if !flattenCompartments(inc, fw, popType, out, seen) {
					return false
				}
			}
			return true
		}
	}
	return false
}

// gaussianSolve performs Gaussian elimination with partial pivoting on an
// m x (n+1) augmented matrix. Returns the solution vector (free columns set
// to 0, flagged in the returned bool slice) or (nil, nil) if the system is
// inconsistent (a zero row with a non-zero RHS).
func gaussianSolve(rows [][]float64, n int) ([]float64, []bool) {
	m := len(rows)
	a := make([][]float64, m)
	for i, r := range rows {
		a[i] = append([]float64{}, r...)
	}

	rowOf := make([]int, n)
	for i := range rowOf {
		rowOf[i] = -1
	}

	r := 0
	for col := 0; col < n && r < m; col++ {
		best := -1
		bestAbs := 1e-9
		for i := r; i < m; i++ {
			v := a[i][col]
			if v < 0 {
				v = -v
			}
			if v > bestAbs {
				bestAbs = v
				best = i
			}
		}
		if best == -1 {
			continue
		}
		a[r], a[best] = a[best], a[r]
		pivot := a[r][col]
		for j := col; j <= n; j++ {
			a[r][j] /= pivot
		}
		for i := 0; i < m; i++ {
			if i == r {
				continue
			}
			factor := a[i][col]
			if factor == 0 {
				continue
			}
			for j := col; j <= n; j++ {
				a[i][j] -= factor * a[r][j]
			}
		}
		rowOf[col] = r
		r++
	}

	// Any remaining row with all-zero coefficients but non-zero RHS is an
	// inconsistent (over-determined) system.
	for i := r; i < m; i++ {
		if a[i][n] < -1e-6 || a[i][n] > 1e-6 {
			return nil, nil
		}
	}

	solved := make([]float64, n)
	underdetermined := make([]bool, n)
	for col := 0; col < n; col++ {
		row := rowOf[col]
		if row == -1 {
			underdetermined[col] = true
			continue
		}
		solved[col] = a[row][n]
	}
	return solved, underdetermined
}
