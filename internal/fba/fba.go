// Package fba performs flux balance analysis by delegating the linear
// programming to gonum's LP solver. Each reaction flux v with bounds
// lb <= v <= ub is split into forward and reverse components f, r >= 0 with
// v = f - r, which both expresses reversible reactions in standard form and
// gives parsimonious FBA its per-direction penalty handles.
package fba

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/csbl/reconstructor/internal/model"
)

// Errors surfaced by the solver. Infeasibility is always reported, never
// swallowed into an empty result.
var (
	ErrInfeasible      = errors.New("fba: problem is infeasible")
	ErrUnbounded       = errors.New("fba: problem is unbounded")
	ErrUnknownReaction = errors.New("fba: unknown reaction")
)

const simplexTol = 1e-10

// Fluxes maps reaction IDs to their solved net flux (forward minus reverse).
type Fluxes map[string]float64

// FluxBand constrains the net flux of one reaction to [Lb, Ub] on top of its
// regular bounds. The gap-fill solver uses it to pin the objective reaction
// to a fraction of its unconstrained optimum.
type FluxBand struct {
	ReactionID string
	Lb         float64
	Ub         float64
}

// problem is the forward/reverse-split LP view of a network.
type problem struct {
	rxns   []*model.Reaction
	rxnIdx map[string]int
	mets   []string
	metIdx map[string]int
}

func newProblem(n *model.Network) *problem {
	p := &problem{
		rxns:   n.Reactions(),
		rxnIdx: map[string]int{},
		metIdx: map[string]int{},
	}
	for i, r := range p.rxns {
		p.rxnIdx[r.ID] = i
		for metID := range r.Metabolites {
			if _, ok := p.metIdx[metID]; !ok {
				p.metIdx[metID] = len(p.mets)
				p.mets = append(p.mets, metID)
			}
		}
	}
	return p
}

// componentBounds returns the bounds of the forward and reverse components of
// reaction i: f in [max(0,lb), max(0,ub)], r in [max(0,-ub), max(0,-lb)].
func componentBounds(r *model.Reaction) (fl, fu, rl, ru float64) {
	fl = max(0, r.LowerBound)
	fu = max(0, r.UpperBound)
	rl = max(0, -r.UpperBound)
	ru = max(0, -r.LowerBound)
	return
}

// solve runs the LP: minimize c over the split variables subject to
// steady state, component bounds, and an optional flux band.
func (p *problem) solve(c []float64, band *FluxBand) ([]float64, error) {
	n := len(p.rxns)
	m := len(p.mets)
	nVar := 2 * n

	// Steady state: S*(f - r) = 0 for every metabolite. Stoichiometric
	// matrices are routinely row-rank-deficient (dead-end species, conserved
	// moieties) and the simplex rejects singular equality systems, so the
	// rows are reduced to an independent subset first.
	var aMat mat.Matrix
	var b []float64
	if m > 0 {
		a := mat.NewDense(m, nVar, nil)
		for i, r := range p.rxns {
			for metID, coeff := range r.Metabolites {
				j := p.metIdx[metID]
				a.Set(j, i, coeff)
				a.Set(j, n+i, -coeff)
			}
		}
		if reduced := independentRows(a); reduced != nil {
			rows, _ := reduced.Dims()
			aMat = reduced
			b = make([]float64, rows)
		}
	}

	// Component bounds as inequality rows: x_k <= upper and -x_k <= -lower,
	// plus the optional band on the objective's net flux.
	nRows := 2 * nVar
	if band != nil {
		nRows += 2
	}
	g := mat.NewDense(nRows, nVar, nil)
	h := make([]float64, nRows)
	for i, r := range p.rxns {
		fl, fu, rl, ru := componentBounds(r)
		g.Set(2*i, i, 1)
		h[2*i] = fu
		g.Set(2*i+1, i, -1)
		h[2*i+1] = -fl
		g.Set(2*(n+i), n+i, 1)
		h[2*(n+i)] = ru
		g.Set(2*(n+i)+1, n+i, -1)
		h[2*(n+i)+1] = -rl
	}
	if band != nil {
		i, ok := p.rxnIdx[band.ReactionID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownReaction, band.ReactionID)
		}
		row := 2 * nVar
		g.Set(row, i, 1)
		g.Set(row, n+i, -1)
		h[row] = band.Ub
		g.Set(row+1, i, -1)
		g.Set(row+1, n+i, 1)
		h[row+1] = -band.Lb
	}

	cStd, aStd, bStd := lp.Convert(c, g, h, aMat, b)
	_, xStd, err := lp.Simplex(cStd, aStd, bStd, simplexTol, nil)
	if err != nil {
		switch {
		case errors.Is(err, lp.ErrInfeasible):
			return nil, ErrInfeasible
		case errors.Is(err, lp.ErrUnbounded):
			return nil, ErrUnbounded
		default:
			return nil, fmt.Errorf("fba: solve: %w", err)
		}
	}

	// Convert splits each free variable into positive and negative parts.
	x := make([]float64, nVar)
	for k := range x {
		x[k] = xStd[k] - xStd[nVar+k]
	}
	return x, nil
}

// rankTol is the pivot threshold below which a row is treated as linearly
// dependent during equality reduction. Stoichiometric coefficients are small
// rationals, so dependent rows cancel to well under this.
const rankTol = 1e-9

// independentRows Gauss-eliminates a homogeneous equality system (rhs zero)
// down to its nonzero echelon rows, an equivalent system of full row rank.
// Returns nil when every row is dependent.
func independentRows(a *mat.Dense) *mat.Dense {
	m, n := a.Dims()
	rows := make([][]float64, m)
	for i := range rows {
		rows[i] = mat.Row(nil, i, a)
	}

	rank := 0
	for col := 0; col < n && rank < m; col++ {
		pivot := rank
		for i := rank + 1; i < m; i++ {
			if math.Abs(rows[i][col]) > math.Abs(rows[pivot][col]) {
				pivot = i
			}
		}
		if math.Abs(rows[pivot][col]) <= rankTol {
			continue
		}
		rows[rank], rows[pivot] = rows[pivot], rows[rank]
		for i := rank + 1; i < m; i++ {
			f := rows[i][col] / rows[rank][col]
			if f == 0 {
				continue
			}
			for j := col; j < n; j++ {
				rows[i][j] -= f * rows[rank][j]
			}
		}
		rank++
	}
	if rank == 0 {
		return nil
	}

	data := make([]float64, 0, rank*n)
	for i := 0; i < rank; i++ {
		data = append(data, rows[i]...)
	}
	return mat.NewDense(rank, n, data)
}

func (p *problem) fluxes(x []float64) Fluxes {
	n := len(p.rxns)
	out := make(Fluxes, n)
	for i, r := range p.rxns {
		out[r.ID] = x[i] - x[n+i]
	}
	return out
}

// Maximize solves a plain FBA for the unconstrained optimum flux through the
// named objective reaction.
func Maximize(n *model.Network, objectiveID string) (float64, error) {
	p := newProblem(n)
	i, ok := p.rxnIdx[objectiveID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownReaction, objectiveID)
	}
	c := make([]float64, 2*len(p.rxns))
	c[i] = -1
	c[len(p.rxns)+i] = 1
	x, err := p.solve(c, nil)
	if err != nil {
		return 0, err
	}
	return x[i] - x[len(p.rxns)+i], nil
}

// MinimizeTotalFlux solves the parsimonious objective: minimize the weighted
// sum of forward and reverse flux over all reactions, subject to the flux
// band. Reactions missing from weights carry weight 1.
func MinimizeTotalFlux(n *model.Network, weights map[string]float64, band FluxBand) (Fluxes, error) {
	p := newProblem(n)
	c := make([]float64, 2*len(p.rxns))
	for i, r := range p.rxns {
		w, ok := weights[r.ID]
		if !ok {
			w = 1
		}
		c[i] = w
		c[len(p.rxns)+i] = w
	}
	x, err := p.solve(c, &band)
	if err != nil {
		return nil, err
	}
	return p.fluxes(x), nil
}
