package recon

import (
	"context"
	"database/sql"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/csbl/reconstructor/internal/medium"
	"github.com/csbl/reconstructor/internal/model"
	"github.com/csbl/reconstructor/internal/modelio"
)

// writeRefDB lays out a reference database directory whose universal bag can
// reach the gram-negative objective from L-alanine (cpd00035, present in both
// the rich and the complete medium):
//
//	EX_cpd00035_e <-> cpd00035_e -> cpdB_c -> cpdC_c -> (biomass_GmNeg)
//
// Every complete-medium compound gets an exchange plus a DM_ sink so the
// forced-uptake pass stays feasible.
func writeRefDB(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	u := model.NewNetwork("universal")
	u.AddMetabolites(
		&model.Metabolite{ID: "cpdB_c", Compartment: model.CompartmentCytosol},
		&model.Metabolite{ID: "cpdC_c", Compartment: model.CompartmentCytosol},
	)
	for _, cpd := range medium.Complete {
		met := &model.Metabolite{ID: cpd, Compartment: model.CompartmentExtracellular}
		u.AddMetabolites(met)
		_, err := u.AddExchange(met, model.ExchangePrefix+cpd, -1000, 1000)
		require.NoError(t, err)
		require.NoError(t, u.AddReactions(&model.Reaction{
			ID:          "DM_" + cpd,
			Metabolites: model.Stoichiometry{cpd: -1},
			UpperBound:  1000,
		}))
	}
	require.NoError(t, u.AddReactions(
		&model.Reaction{ID: "rxn00001_c", Metabolites: model.Stoichiometry{"cpd00035_e": -1, "cpdB_c": 1}, LowerBound: -1000, UpperBound: 1000},
		&model.Reaction{ID: "rxn00002_c", Metabolites: model.Stoichiometry{"cpdB_c": -1, "cpdC_c": 1}, UpperBound: 1000},
		&model.Reaction{ID: "biomass_GmNeg", Metabolites: model.Stoichiometry{"cpdC_c": -1}, UpperBound: 1000},
	))
	require.NoError(t, modelio.Write(u, filepath.Join(dir, "universal.json")))

	handle, err := sql.Open("sqlite", filepath.Join(dir, "genes.db"))
	require.NoError(t, err)
	defer handle.Close()
	for _, stmt := range []string{
		"CREATE TABLE gene_reactions (gene TEXT, reaction TEXT)",
		"CREATE TABLE gene_names (gene TEXT, name TEXT)",
		"INSERT INTO gene_reactions VALUES ('tor:G1', 'rxn00001')",
		"INSERT INTO gene_reactions VALUES ('tor:G2', 'rxn00002')",
		"INSERT INTO gene_names VALUES ('tor:G1', 'alanine transaminase')",
	} {
		_, err := handle.Exec(stmt)
		require.NoError(t, err)
	}
	return dir
}

func writeHits(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "genome.KEGGprot.out")
	data := "q1\ttor:G1\t99.1\nq2\ttor:G2\t97.4\nq3\ttor:NOPE\t88.0\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestReconstructFromHits(t *testing.T) {
	opts := Options{
		InputPath:     writeHits(t),
		Kind:          KindHits,
		Gram:          "negative",
		MinFraction:   0.01,
		MaxFraction:   0.5,
		ModelID:       "toy",
		GapFill:       true,
		OpenExchanges: true,
		DBDir:         writeRefDB(t),
	}
	net, report, err := Reconstruct(context.Background(), opts, zap.NewNop())
	require.NoError(t, err)

	require.Equal(t, "biomass_GmNeg", net.Objective())
	require.Equal(t, 1, report.UnmappedGenes)
	require.Equal(t, 0, report.UnresolvedReactions)
	require.Equal(t, 2, report.DraftReactions)
	require.NotEmpty(t, report.RunID)

	// The draft carries the hit-backed chain with its gene rules.
	rxn, ok := net.Reaction("rxn00001_c")
	require.True(t, ok)
	require.Equal(t, "q1", rxn.GeneRule)
	require.True(t, net.HasReaction("rxn00002_c"))

	// Phase 1 pulled in the objective and the alanine exchange; phase 2
	// pulled in sinks for the forced base-medium compounds.
	require.True(t, net.HasReaction("biomass_GmNeg"))
	require.True(t, net.HasReaction("EX_cpd00035_e"))
	require.True(t, net.HasReaction("DM_cpd00051_e"))
	require.Positive(t, report.GapfilledReactions)
	require.Equal(t, report.DraftReactions+report.GapfilledReactions, report.FinalReactions)

	// Open-exchange policy applies to every exchange, uniformly.
	for _, exch := range net.Exchanges() {
		lb, ub := exch.Bounds()
		require.Equal(t, float64(-1000), lb, exch.ID)
		require.Equal(t, float64(1000), ub, exch.ID)
	}
	require.InDelta(t, 1000.0, report.ObjectiveFlux, 1e-6)

	// Annotation pass ran.
	g1, ok := net.Gene("q1")
	require.True(t, ok)
	require.Equal(t, "SBO:0000243", g1.Annotation["sbo"])
	require.Equal(t, "Alanine Transaminase", g1.Name)
	met, ok := net.Metabolite("cpd00035_e")
	require.True(t, ok)
	require.Equal(t, "cpd00035", met.Annotation["seed.compound"])
}

func TestReconstructClosedExchanges(t *testing.T) {
	opts := Options{
		InputPath:   writeHits(t),
		Kind:        KindHits,
		Gram:        "negative",
		MinFraction: 0.01,
		MaxFraction: 0.5,
		GapFill:     true,
		DBDir:       writeRefDB(t),
	}
	net, report, err := Reconstruct(context.Background(), opts, zap.NewNop())
	require.NoError(t, err)

	for _, exch := range net.Exchanges() {
		lb, ub := exch.Bounds()
		require.Zero(t, lb, exch.ID)
		require.Zero(t, ub, exch.ID)
	}
	// Nothing can enter, so the optimum is the all-zero flux state.
	require.Zero(t, report.ObjectiveFlux)
}

func TestReconstructNoGapFill(t *testing.T) {
	opts := Options{
		InputPath:   writeHits(t),
		Kind:        KindHits,
		Gram:        "negative",
		MinFraction: 0.01,
		MaxFraction: 0.5,
		GapFill:     false,
		DBDir:       writeRefDB(t),
	}
	net, report, err := Reconstruct(context.Background(), opts, zap.NewNop())
	require.NoError(t, err)

	// Without gap-filling the model is exactly the draft plus annotation.
	require.Equal(t, report.DraftReactions, report.FinalReactions)
	require.Zero(t, report.GapfilledReactions)
	require.ElementsMatch(t, []string{"rxn00001_c", "rxn00002_c"}, net.ReactionIDs())
	require.Empty(t, net.Objective())

	rxn, _ := net.Reaction("rxn00001_c")
	require.Equal(t, "rxn00001", rxn.Annotation["seed.reaction"])
}

func TestReconstructNetworkPassthrough(t *testing.T) {
	in := model.NewNetwork("existing")
	in.AddMetabolites(
		&model.Metabolite{ID: "cpdX_e", Compartment: model.CompartmentExtracellular},
		&model.Metabolite{ID: "cpdY_c", Compartment: model.CompartmentCytosol},
	)
	require.NoError(t, in.AddReactions(
		&model.Reaction{ID: "EX_cpdX_e", Metabolites: model.Stoichiometry{"cpdX_e": -1}, LowerBound: -1000, UpperBound: 1000},
		&model.Reaction{ID: "rxnX_c", Metabolites: model.Stoichiometry{"cpdX_e": -1, "cpdY_c": 1}, UpperBound: 1000},
		&model.Reaction{ID: "bio1", Metabolites: model.Stoichiometry{"cpdY_c": -1}, UpperBound: 1000},
	))
	require.NoError(t, in.SetObjective("bio1"))
	path := filepath.Join(t.TempDir(), "existing.json")
	require.NoError(t, modelio.Write(in, path))

	opts := Options{
		InputPath:     path,
		Kind:          KindNetwork,
		Gram:          "negative",
		MinFraction:   0.01,
		MaxFraction:   0.5,
		OpenExchanges: true,
		DBDir:         writeRefDB(t),
	}
	net, report, err := Reconstruct(context.Background(), opts, zap.NewNop())
	require.NoError(t, err)

	require.Equal(t, "bio1", net.Objective())
	require.Zero(t, report.GapfilledReactions)
	require.Equal(t, report.DraftReactions, report.FinalReactions)
	require.InDelta(t, 1000.0, report.ObjectiveFlux, 1e-6)
}

func TestReconstructNetworkWithoutObjective(t *testing.T) {
	in := model.NewNetwork("no_obj")
	path := filepath.Join(t.TempDir(), "no_obj.json")
	require.NoError(t, modelio.Write(in, path))

	opts := Options{
		InputPath: path,
		Kind:      KindNetwork,
		Gram:      "negative",
		DBDir:     writeRefDB(t),
	}
	_, _, err := Reconstruct(context.Background(), opts, zap.NewNop())
	require.Error(t, err)
	require.Contains(t, err.Error(), "no objective")
}

func TestReconstructUnknownGram(t *testing.T) {
	opts := Options{
		InputPath: writeHits(t),
		Kind:      KindHits,
		Gram:      "unknown",
		DBDir:     writeRefDB(t),
	}
	_, _, err := Reconstruct(context.Background(), opts, zap.NewNop())
	require.ErrorIs(t, err, ErrUnknownGram)
}

func TestReconstructMissingInput(t *testing.T) {
	opts := Options{
		InputPath: filepath.Join(t.TempDir(), "absent.out"),
		Kind:      KindHits,
		Gram:      "negative",
	}
	_, _, err := Reconstruct(context.Background(), opts, zap.NewNop())
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{
		"sequences": KindSequences, "FASTA": KindSequences, "1": KindSequences,
		"hits": KindHits, "blast": KindHits, "2": KindHits,
		"network": KindNetwork, "model": KindNetwork, "3": KindNetwork,
	} {
		got, err := ParseKind(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
	_, err := ParseKind("spreadsheet")
	require.Error(t, err)
}

func TestClampFractions(t *testing.T) {
	logger := zap.NewNop()

	minFrac, maxFrac := clampFractions(0.01, 0.5, logger)
	require.Equal(t, 0.01, minFrac)
	require.Equal(t, 0.5, maxFrac)

	minFrac, maxFrac = clampFractions(-1, 2, logger)
	require.Equal(t, DefaultMinFraction, minFrac)
	require.Equal(t, DefaultMaxFraction, maxFrac)

	minFrac, maxFrac = clampFractions(0.8, 0.4, logger)
	require.Equal(t, 0.2, minFrac)
	require.Equal(t, 0.4, maxFrac)
}

func TestBlastOutputPath(t *testing.T) {
	require.Equal(t, "genome.KEGGprot.out", blastOutputPath("genome.fasta"))
	require.Equal(t, filepath.Join("a", "b.KEGGprot.out"), blastOutputPath(filepath.Join("a", "b.faa")))
}

func TestObjectiveForGram(t *testing.T) {
	obj, err := objectiveForGram("positive")
	require.NoError(t, err)
	require.Equal(t, "biomass_GmPos", obj)

	obj, err = objectiveForGram("negative")
	require.NoError(t, err)
	require.Equal(t, "biomass_GmNeg", obj)
}
