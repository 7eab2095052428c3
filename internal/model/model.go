// Package model defines the in-memory representation of a metabolic network:
// reactions, metabolites, genes, and the Network container that owns them.
//
// Identifiers follow the ModelSEED namespace convention used by the reference
// database: reactions are "rxnNNNNN_<compartment>" or "EX_<metabolite>",
// metabolites are "cpdNNNNN_<compartment>". A Network keeps its reactions,
// metabolites, and genes in insertion order so that serialized output is
// reproducible across runs.
package model

import "strings"

// Compartment tags carried by metabolites. The extracellular tag decides
// exchange-reaction eligibility during gap-filling.
const (
	CompartmentCytosol       = "cytosol"
	CompartmentExtracellular = "extracellular"
)

// Identifier conventions shared across the pipeline.
const (
	// ExchangePrefix prefixes the boundary reaction of an extracellular
	// metabolite, e.g. EX_cpd00027_e.
	ExchangePrefix = "EX_"

	// CytosolSuffix is appended to reference reaction base IDs when genes
	// are translated to candidate reactions.
	CytosolSuffix = "_c"

	// ExtracellularSuffix marks extracellular metabolite IDs.
	ExtracellularSuffix = "_e"
)

// Stoichiometry maps metabolite IDs to signed coefficients. Negative values
// are consumed, positive values are produced.
type Stoichiometry map[string]float64

// Annotation holds external cross-references (e.g. "kegg.genes", "sbo").
type Annotation map[string]string

// Clone returns an independent copy of the annotation map.
func (a Annotation) Clone() Annotation {
	if a == nil {
		return nil
	}
	out := make(Annotation, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Metabolite is a chemical species in a single compartment.
type Metabolite struct {
	ID          string
	Name        string
	Compartment string
	Annotation  Annotation
}

// Clone returns an independent copy of the metabolite.
func (m *Metabolite) Clone() *Metabolite {
	out := *m
	out.Annotation = m.Annotation.Clone()
	return &out
}

// IsExtracellular reports whether the metabolite lives in the extracellular
// compartment.
func (m *Metabolite) IsExtracellular() bool {
	return m.Compartment == CompartmentExtracellular
}

// CompartmentForID derives a compartment tag from a namespaced metabolite ID.
// Unknown suffixes default to cytosol.
func CompartmentForID(id string) string {
	if strings.HasSuffix(id, ExtracellularSuffix) {
		return CompartmentExtracellular
	}
	return CompartmentCytosol
}

// Gene is a catalyst referenced by reaction gene rules. IDs are sanitized to
// the restricted identifier character set (see SanitizeID).
type Gene struct {
	ID         string
	Name       string
	Annotation Annotation
}

// Clone returns an independent copy of the gene.
func (g *Gene) Clone() *Gene {
	out := *g
	out.Annotation = g.Annotation.Clone()
	return &out
}

// Reaction is a stoichiometric conversion with flux bounds and an optional
// gene rule. Once inserted into a Network only its bounds and gene rule are
// edited; everything else is treated as immutable.
type Reaction struct {
	ID          string
	Name        string
	Metabolites Stoichiometry
	LowerBound  float64
	UpperBound  float64

	// GeneRule is a disjunction of gene IDs ("g1 or g2"). Only OR semantics
	// are used by the reconstruction pipeline.
	GeneRule string

	Annotation Annotation
}

// Clone returns an independent copy of the reaction.
func (r *Reaction) Clone() *Reaction {
	out := *r
	out.Metabolites = make(Stoichiometry, len(r.Metabolites))
	for id, coeff := range r.Metabolites {
		out.Metabolites[id] = coeff
	}
	out.Annotation = r.Annotation.Clone()
	return &out
}

// Bounds returns the lower and upper flux bounds.
func (r *Reaction) Bounds() (float64, float64) {
	return r.LowerBound, r.UpperBound
}

// SetBounds sets both flux bounds.
func (r *Reaction) SetBounds(lb, ub float64) {
	r.LowerBound = lb
	r.UpperBound = ub
}

// IsBoundary reports whether the reaction touches exactly one metabolite,
// i.e. it moves mass across the system boundary.
func (r *Reaction) IsBoundary() bool {
	return len(r.Metabolites) == 1
}

// IsExchange reports whether the reaction is an exchange reaction: a boundary
// reaction following the EX_ naming convention.
func (r *Reaction) IsExchange() bool {
	return r.IsBoundary() && strings.HasPrefix(r.ID, ExchangePrefix)
}

// GeneIDs returns the gene identifiers referenced by the reaction's gene
// rule, in rule order. Only disjunctions are recognized.
func (r *Reaction) GeneIDs() []string {
	return ParseGeneRule(r.GeneRule)
}

// ParseGeneRule splits an OR-only gene rule into its gene identifiers.
func ParseGeneRule(rule string) []string {
	if strings.TrimSpace(rule) == "" {
		return nil
	}
	var ids []string
	for _, tok := range strings.Fields(rule) {
		if strings.EqualFold(tok, "or") {
			continue
		}
		ids = append(ids, tok)
	}
	return ids
}

// JoinGeneRule builds an OR-only gene rule from gene identifiers.
func JoinGeneRule(ids []string) string {
	return strings.Join(ids, " or ")
}
