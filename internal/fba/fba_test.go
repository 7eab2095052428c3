package fba

import (
	"errors"
	"math"
	"testing"

	"github.com/csbl/reconstructor/internal/model"
)

const delta = 1e-6

// chainNetwork builds EX_a <-> a_e -> b_c -> (biomass sink).
func chainNetwork(t *testing.T) *model.Network {
	t.Helper()
	n := model.NewNetwork("chain")
	n.AddMetabolites(
		&model.Metabolite{ID: "cpdA_e", Compartment: model.CompartmentExtracellular},
		&model.Metabolite{ID: "cpdB_c", Compartment: model.CompartmentCytosol},
	)
	err := n.AddReactions(
		&model.Reaction{ID: "EX_cpdA_e", Metabolites: model.Stoichiometry{"cpdA_e": -1}, LowerBound: -1000, UpperBound: 1000},
		&model.Reaction{ID: "rxnT_c", Metabolites: model.Stoichiometry{"cpdA_e": -1, "cpdB_c": 1}, LowerBound: -1000, UpperBound: 1000},
		&model.Reaction{ID: "bio1", Metabolites: model.Stoichiometry{"cpdB_c": -1}, LowerBound: 0, UpperBound: 1000},
	)
	if err != nil {
		t.Fatalf("build chain network: %v", err)
	}
	return n
}

func TestMaximizeChain(t *testing.T) {
	n := chainNetwork(t)
	v, err := Maximize(n, "bio1")
	if err != nil {
		t.Fatalf("Maximize: %v", err)
	}
	if math.Abs(v-1000) > delta {
		t.Errorf("optimum = %v, want 1000", v)
	}
}

func TestMaximizeUnknownReaction(t *testing.T) {
	n := chainNetwork(t)
	_, err := Maximize(n, "nope")
	if !errors.Is(err, ErrUnknownReaction) {
		t.Fatalf("error = %v, want ErrUnknownReaction", err)
	}
}

func TestMaximizeRespectsUptakeLimit(t *testing.T) {
	n := chainNetwork(t)
	exch, _ := n.Reaction("EX_cpdA_e")
	exch.SetBounds(-7, 1000)

	v, err := Maximize(n, "bio1")
	if err != nil {
		t.Fatalf("Maximize: %v", err)
	}
	if math.Abs(v-7) > delta {
		t.Errorf("optimum = %v, want 7 (limited by uptake)", v)
	}
}

func TestMinimizeTotalFluxBand(t *testing.T) {
	n := chainNetwork(t)
	weights := map[string]float64{"EX_cpdA_e": 0, "rxnT_c": 1, "bio1": 1}

	fluxes, err := MinimizeTotalFlux(n, weights, FluxBand{ReactionID: "bio1", Lb: 10, Ub: 500})
	if err != nil {
		t.Fatalf("MinimizeTotalFlux: %v", err)
	}
	if math.Abs(fluxes["bio1"]-10) > delta {
		t.Errorf("bio1 flux = %v, want the band floor 10", fluxes["bio1"])
	}
	if math.Abs(fluxes["rxnT_c"]-10) > delta {
		t.Errorf("rxnT_c flux = %v, want 10", fluxes["rxnT_c"])
	}
	if math.Abs(fluxes["EX_cpdA_e"]+10) > delta {
		t.Errorf("EX_cpdA_e flux = %v, want -10", fluxes["EX_cpdA_e"])
	}
}

func TestSolvesWithDeadEndReaction(t *testing.T) {
	// Dead-end species make the stoichiometric matrix row-rank-deficient;
	// the solve must still succeed as long as the dead end is not forced.
	n := chainNetwork(t)
	n.AddMetabolites(
		&model.Metabolite{ID: "cpdD_c", Compartment: model.CompartmentCytosol},
		&model.Metabolite{ID: "cpdE_c", Compartment: model.CompartmentCytosol},
	)
	if err := n.AddReactions(&model.Reaction{
		ID:          "rxnDeadEnd_c",
		Metabolites: model.Stoichiometry{"cpdD_c": -1, "cpdE_c": 1},
		LowerBound:  0,
		UpperBound:  1000,
	}); err != nil {
		t.Fatalf("add dead end: %v", err)
	}

	v, err := Maximize(n, "bio1")
	if err != nil {
		t.Fatalf("Maximize with dead end: %v", err)
	}
	if math.Abs(v-1000) > delta {
		t.Errorf("optimum = %v, want 1000", v)
	}

	fluxes, err := MinimizeTotalFlux(n, nil, FluxBand{ReactionID: "bio1", Lb: 10, Ub: 500})
	if err != nil {
		t.Fatalf("MinimizeTotalFlux with dead end: %v", err)
	}
	if math.Abs(fluxes["rxnDeadEnd_c"]) > delta {
		t.Errorf("dead-end flux = %v, want 0", fluxes["rxnDeadEnd_c"])
	}
}

func TestInfeasibleForcedFlux(t *testing.T) {
	n := chainNetwork(t)
	n.AddMetabolites(
		&model.Metabolite{ID: "cpdD_c", Compartment: model.CompartmentCytosol},
		&model.Metabolite{ID: "cpdE_c", Compartment: model.CompartmentCytosol},
	)
	// Orphan conversion with forced flux: nothing produces cpdD_c, so any
	// positive flux violates steady state.
	if err := n.AddReactions(&model.Reaction{
		ID:          "rxnOrphan_c",
		Metabolites: model.Stoichiometry{"cpdD_c": -1, "cpdE_c": 1},
		LowerBound:  0.01,
		UpperBound:  1000,
	}); err != nil {
		t.Fatalf("add orphan: %v", err)
	}

	if _, err := Maximize(n, "bio1"); !errors.Is(err, ErrInfeasible) {
		t.Fatalf("error = %v, want ErrInfeasible", err)
	}
}

func TestBandUnknownReaction(t *testing.T) {
	n := chainNetwork(t)
	_, err := MinimizeTotalFlux(n, nil, FluxBand{ReactionID: "ghost", Lb: 0, Ub: 1})
	if !errors.Is(err, ErrUnknownReaction) {
		t.Fatalf("error = %v, want ErrUnknownReaction", err)
	}
}
