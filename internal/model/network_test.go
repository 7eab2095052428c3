package model

import (
	"errors"
	"testing"
)

func newTestNetwork(t *testing.T) *Network {
	t.Helper()
	n := NewNetwork("test")
	n.AddMetabolites(
		&Metabolite{ID: "cpdA_e", Name: "A", Compartment: CompartmentExtracellular},
		&Metabolite{ID: "cpdB_c", Name: "B", Compartment: CompartmentCytosol},
	)
	if err := n.AddReactions(
		&Reaction{ID: "EX_cpdA_e", Metabolites: Stoichiometry{"cpdA_e": -1}, LowerBound: -1000, UpperBound: 1000},
		&Reaction{ID: "rxn00001_c", Metabolites: Stoichiometry{"cpdA_e": -1, "cpdB_c": 1}, LowerBound: -1000, UpperBound: 1000, GeneRule: "g1 or g2"},
	); err != nil {
		t.Fatalf("AddReactions: %v", err)
	}
	return n
}

func TestAddReactionsDuplicate(t *testing.T) {
	n := newTestNetwork(t)
	err := n.AddReactions(&Reaction{ID: "rxn00001_c", Metabolites: Stoichiometry{"cpdB_c": -1}})
	if !errors.Is(err, ErrDuplicateReaction) {
		t.Fatalf("duplicate insert error = %v, want ErrDuplicateReaction", err)
	}
}

func TestAddReactionsUnknownMetabolite(t *testing.T) {
	n := newTestNetwork(t)
	err := n.AddReactions(&Reaction{ID: "rxn00002_c", Metabolites: Stoichiometry{"cpdZ_c": -1}})
	if !errors.Is(err, ErrUnknownMetabolite) {
		t.Fatalf("unknown metabolite error = %v, want ErrUnknownMetabolite", err)
	}
}

func TestGeneRuleRegistersGenes(t *testing.T) {
	n := newTestNetwork(t)
	for _, id := range []string{"g1", "g2"} {
		if !n.HasGene(id) {
			t.Errorf("gene %s referenced by a rule is missing from the network", id)
		}
	}
}

func TestRemoveReactions(t *testing.T) {
	n := newTestNetwork(t)
	if err := n.SetObjective("rxn00001_c"); err != nil {
		t.Fatalf("SetObjective: %v", err)
	}
	n.RemoveReactions("rxn00001_c", "not_there")
	if n.HasReaction("rxn00001_c") {
		t.Error("rxn00001_c still present after removal")
	}
	if n.Objective() != "" {
		t.Errorf("objective = %q after removing the objective reaction, want empty", n.Objective())
	}
	if len(n.Reactions()) != 1 {
		t.Errorf("reactions remaining = %d, want 1", len(n.Reactions()))
	}
}

func TestImportReactions(t *testing.T) {
	src := newTestNetwork(t)
	dst := NewNetwork("dst")

	if err := dst.ImportReactions(src, "rxn00001_c"); err != nil {
		t.Fatalf("ImportReactions: %v", err)
	}
	if _, ok := dst.Metabolite("cpdA_e"); !ok {
		t.Error("imported reaction's metabolite cpdA_e was not copied")
	}

	// Imports are copies: mutating the copy must not touch the source.
	rxn, _ := dst.Reaction("rxn00001_c")
	rxn.LowerBound = -5
	orig, _ := src.Reaction("rxn00001_c")
	if orig.LowerBound != -1000 {
		t.Errorf("source lower bound = %v after mutating the import, want -1000", orig.LowerBound)
	}

	if err := dst.ImportReactions(src, "rxn00001_c"); !errors.Is(err, ErrDuplicateReaction) {
		t.Errorf("re-import error = %v, want ErrDuplicateReaction", err)
	}
	if err := dst.ImportReactions(src, "nope"); !errors.Is(err, ErrUnknownReaction) {
		t.Errorf("missing source error = %v, want ErrUnknownReaction", err)
	}
}

func TestCloneIsDeep(t *testing.T) {
	n := newTestNetwork(t)
	if err := n.SetObjective("rxn00001_c"); err != nil {
		t.Fatalf("SetObjective: %v", err)
	}
	clone := n.Clone()

	rxn, _ := clone.Reaction("rxn00001_c")
	rxn.Metabolites["cpdB_c"] = 99
	rxn.SetBounds(0, 1)
	clone.RemoveReactions("EX_cpdA_e")

	orig, _ := n.Reaction("rxn00001_c")
	if orig.Metabolites["cpdB_c"] != 1 {
		t.Error("clone mutation leaked into original stoichiometry")
	}
	if lb, ub := orig.Bounds(); lb != -1000 || ub != 1000 {
		t.Error("clone mutation leaked into original bounds")
	}
	if !n.HasReaction("EX_cpdA_e") {
		t.Error("removal on clone leaked into original")
	}
	if clone.Objective() != "rxn00001_c" {
		t.Errorf("clone objective = %q, want rxn00001_c", clone.Objective())
	}
}

func TestSetMedium(t *testing.T) {
	n := newTestNetwork(t)
	n.AddMetabolites(&Metabolite{ID: "cpdC_e", Compartment: CompartmentExtracellular})
	if _, err := n.AddExchange(&Metabolite{ID: "cpdC_e", Compartment: CompartmentExtracellular}, "EX_cpdC_e", -1000, 1000); err != nil {
		t.Fatalf("AddExchange: %v", err)
	}

	n.SetMedium(map[string]float64{"EX_cpdA_e": 1000})

	exA, _ := n.Reaction("EX_cpdA_e")
	if exA.LowerBound != -1000 {
		t.Errorf("medium exchange lower bound = %v, want -1000", exA.LowerBound)
	}
	exC, _ := n.Reaction("EX_cpdC_e")
	if exC.LowerBound != 0 {
		t.Errorf("non-medium exchange lower bound = %v, want 0", exC.LowerBound)
	}
	if exC.UpperBound != 1000 {
		t.Errorf("upper bound changed by SetMedium: %v", exC.UpperBound)
	}
}

func TestExchanges(t *testing.T) {
	n := newTestNetwork(t)
	exchanges := n.Exchanges()
	if len(exchanges) != 1 || exchanges[0].ID != "EX_cpdA_e" {
		t.Fatalf("Exchanges() = %v, want exactly EX_cpdA_e", exchanges)
	}
}

func TestParseGeneRule(t *testing.T) {
	got := ParseGeneRule("g1 or g2 or g3")
	want := []string{"g1", "g2", "g3"}
	if len(got) != len(want) {
		t.Fatalf("ParseGeneRule = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ParseGeneRule = %v, want %v", got, want)
		}
	}
	if ParseGeneRule("  ") != nil {
		t.Error("blank rule should yield no genes")
	}
}
