package recon

import (
	"strings"

	"github.com/csbl/reconstructor/internal/model"
)

// annotationObjectiveBuilt marks a model whose biomass machinery was built by
// this pipeline; the whole biomass reaction family is annotated rather than a
// single caller-named objective.
const annotationObjectiveBuilt = "built"

// SBO terms attached during the annotation pass.
const (
	sboGene            = "SBO:0000243"
	sboMetabolite      = "SBO:0000247"
	sboExchange        = "SBO:0000627"
	sboTransport       = "SBO:0000185"
	sboMetabolic       = "SBO:0000176"
	sboBiomass         = "SBO:0000629"
	sboBiomassExchange = "SBO:0000632"
	exchangeBiomassRxn = "EX_biomass"
	seedCompoundMarker = "cpd"
	seedReactionMarker = "rxn"
)

// biomassReactionIDs lists the biomass machinery annotated when the model's
// objective was built by this pipeline.
var biomassReactionIDs = []string{
	"dna_rxn", "rna_rxn", "protein_rxn", "teichoicacid_rxn",
	"peptidoglycan_rxn", "lipid_rxn", "cofactor_rxn", "GmPos_cellwall",
	"rxn10088_c", "GmNeg_cellwall", "biomass_rxn_gp", "biomass_rxn_gn",
}

// annotate attaches SBO terms and ModelSEED cross-references to every gene,
// metabolite, and reaction. objective is either annotationObjectiveBuilt or
// the ID of the model's own objective reaction.
func annotate(net *model.Network, objective string) {
	for _, gene := range net.Genes() {
		setAnnotation(&gene.Annotation, "sbo", sboGene)
	}

	for _, met := range net.Metabolites() {
		setAnnotation(&met.Annotation, "sbo", sboMetabolite)
		if strings.Contains(met.ID, seedCompoundMarker) {
			setAnnotation(&met.Annotation, "seed.compound", baseID(met.ID))
		}
	}

	for _, rxn := range net.Reactions() {
		if strings.Contains(rxn.ID, seedReactionMarker) {
			setAnnotation(&rxn.Annotation, "seed.reaction", baseID(rxn.ID))
		}
		setAnnotation(&rxn.Annotation, "sbo", reactionSBO(net, rxn))
	}

	if objective == annotationObjectiveBuilt {
		if exch, ok := net.Reaction(exchangeBiomassRxn); ok {
			setAnnotation(&exch.Annotation, "sbo", sboBiomassExchange)
		}
		for _, id := range biomassReactionIDs {
			if rxn, ok := net.Reaction(id); ok {
				setAnnotation(&rxn.Annotation, "sbo", sboBiomass)
			}
		}
		return
	}
	if rxn, ok := net.Reaction(objective); ok {
		setAnnotation(&rxn.Annotation, "sbo", sboBiomass)
	}
}

// reactionSBO classifies a reaction: boundary reactions are exchanges,
// reactions spanning compartments are transports, the rest are metabolic.
func reactionSBO(net *model.Network, rxn *model.Reaction) string {
	if rxn.IsBoundary() {
		return sboExchange
	}
	compartments := map[string]struct{}{}
	for metID := range rxn.Metabolites {
		if met, ok := net.Metabolite(metID); ok {
			compartments[met.Compartment] = struct{}{}
		}
	}
	if len(compartments) > 1 {
		return sboTransport
	}
	return sboMetabolic
}

// baseID strips the compartment suffix from a namespaced identifier.
func baseID(id string) string {
	if i := strings.Index(id, "_"); i > 0 {
		return id[:i]
	}
	return id
}

func setAnnotation(ann *model.Annotation, key, value string) {
	if *ann == nil {
		*ann = model.Annotation{}
	}
	(*ann)[key] = value
}
