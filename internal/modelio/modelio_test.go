package modelio

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/csbl/reconstructor/internal/model"
)

func buildNetwork(t *testing.T) *model.Network {
	t.Helper()
	n := model.NewNetwork("toy")
	n.Name = "Toy model"
	n.Notes["source"] = "test"
	n.AddMetabolites(
		&model.Metabolite{ID: "cpdA_e", Name: "A", Compartment: model.CompartmentExtracellular},
		&model.Metabolite{ID: "cpdB_c", Name: "B", Compartment: model.CompartmentCytosol},
	)
	n.AddGenes(&model.Gene{ID: "g1", Name: "Gene One", Annotation: model.Annotation{"kegg.genes": "tor:G1"}})
	require.NoError(t, n.AddReactions(
		&model.Reaction{ID: "EX_cpdA_e", Name: "A exchange", Metabolites: model.Stoichiometry{"cpdA_e": -1}, LowerBound: -1000, UpperBound: 1000},
		&model.Reaction{ID: "rxn00001_c", Metabolites: model.Stoichiometry{"cpdA_e": -1, "cpdB_c": 1}, UpperBound: 1000, GeneRule: "g1"},
		&model.Reaction{ID: "bio1", Metabolites: model.Stoichiometry{"cpdB_c": -1}, UpperBound: 1000},
	))
	require.NoError(t, n.SetObjective("bio1"))
	return n
}

func TestRoundTrip(t *testing.T) {
	for _, name := range []string{"model.json", "model.json.gz"} {
		t.Run(name, func(t *testing.T) {
			n := buildNetwork(t)
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, Write(n, path))

			got, err := Read(path)
			require.NoError(t, err)

			if diff := cmp.Diff(FromNetwork(n), FromNetwork(got)); diff != "" {
				t.Errorf("network changed across round trip (-want +got):\n%s", diff)
			}
			require.Equal(t, "bio1", got.Objective())
		})
	}
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}

func TestToNetworkRegistersImplicitMetabolites(t *testing.T) {
	doc := &Document{
		ID:      "implicit",
		Version: "1",
		Reactions: []ReactionDoc{{
			ID:          "rxn1_c",
			Metabolites: map[string]float64{"cpdX_c": -1, "cpdY_e": 1},
			UpperBound:  1000,
		}},
	}
	n, err := doc.ToNetwork()
	require.NoError(t, err)

	met, ok := n.Metabolite("cpdY_e")
	require.True(t, ok)
	require.Equal(t, model.CompartmentExtracellular, met.Compartment)
}

func TestDuplicateReactionRejected(t *testing.T) {
	doc := &Document{
		ID:      "dup",
		Version: "1",
		Reactions: []ReactionDoc{
			{ID: "rxn1_c", Metabolites: map[string]float64{"cpdX_c": -1}},
			{ID: "rxn1_c", Metabolites: map[string]float64{"cpdX_c": 1}},
		},
	}
	_, err := doc.ToNetwork()
	require.ErrorIs(t, err, model.ErrDuplicateReaction)
}
