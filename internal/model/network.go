package model

import (
	"errors"
	"fmt"
	"sort"
)

// Errors reported by Network mutation operations. Callers match them with
// errors.Is.
var (
	ErrDuplicateReaction = errors.New("model: duplicate reaction")
	ErrUnknownReaction   = errors.New("model: unknown reaction")
	ErrUnknownMetabolite = errors.New("model: unknown metabolite")
)

// Network owns a set of reactions unique by ID, the metabolites they
// reference, the genes referenced by their gene rules, one distinguished
// objective reaction, and a medium (uptake exchange ID to bound magnitude).
//
// All collections preserve insertion order so that two identical
// reconstructions serialize identically.
type Network struct {
	ID    string
	Name  string
	Notes map[string]string

	reactions   []*Reaction
	reactionIdx map[string]*Reaction

	metabolites   []*Metabolite
	metaboliteIdx map[string]*Metabolite

	genes   []*Gene
	geneIdx map[string]*Gene

	objective string
	medium    map[string]float64
}

// NewNetwork creates an empty network with the given ID.
func NewNetwork(id string) *Network {
	return &Network{
		ID:            id,
		Notes:         map[string]string{},
		reactionIdx:   map[string]*Reaction{},
		metaboliteIdx: map[string]*Metabolite{},
		geneIdx:       map[string]*Gene{},
		medium:        map[string]float64{},
	}
}

// Reactions returns the reactions in insertion order. The slice is shared;
// callers must not reorder it.
func (n *Network) Reactions() []*Reaction { return n.reactions }

// Metabolites returns the metabolites in insertion order.
func (n *Network) Metabolites() []*Metabolite { return n.metabolites }

// Genes returns the genes in insertion order.
func (n *Network) Genes() []*Gene { return n.genes }

// Reaction looks up a reaction by ID.
func (n *Network) Reaction(id string) (*Reaction, bool) {
	r, ok := n.reactionIdx[id]
	return r, ok
}

// HasReaction reports whether a reaction with the given ID exists.
func (n *Network) HasReaction(id string) bool {
	_, ok := n.reactionIdx[id]
	return ok
}

// Metabolite looks up a metabolite by ID.
func (n *Network) Metabolite(id string) (*Metabolite, bool) {
	m, ok := n.metaboliteIdx[id]
	return m, ok
}

// Gene looks up a gene by ID.
func (n *Network) Gene(id string) (*Gene, bool) {
	g, ok := n.geneIdx[id]
	return g, ok
}

// HasGene reports whether a gene with the given ID exists.
func (n *Network) HasGene(id string) bool {
	_, ok := n.geneIdx[id]
	return ok
}

// AddMetabolites registers metabolites, keeping the first definition when an
// ID repeats.
func (n *Network) AddMetabolites(mets ...*Metabolite) {
	for _, m := range mets {
		if _, ok := n.metaboliteIdx[m.ID]; ok {
			continue
		}
		n.metabolites = append(n.metabolites, m)
		n.metaboliteIdx[m.ID] = m
	}
}

// AddGenes registers genes, keeping the first definition when an ID repeats.
func (n *Network) AddGenes(genes ...*Gene) {
	for _, g := range genes {
		if _, ok := n.geneIdx[g.ID]; ok {
			continue
		}
		n.genes = append(n.genes, g)
		n.geneIdx[g.ID] = g
	}
}

// AddReactions inserts reactions into the network. Inserting an ID that is
// already present fails with ErrDuplicateReaction; referencing a metabolite
// the network does not own fails with ErrUnknownMetabolite. Genes named by a
// reaction's gene rule are registered automatically so the gene set always
// covers every rule.
func (n *Network) AddReactions(rxns ...*Reaction) error {
	for _, r := range rxns {
		if _, ok := n.reactionIdx[r.ID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateReaction, r.ID)
		}
		for metID := range r.Metabolites {
			if _, ok := n.metaboliteIdx[metID]; !ok {
				return fmt.Errorf("%w: %s (referenced by %s)", ErrUnknownMetabolite, metID, r.ID)
			}
		}
	}
	for _, r := range rxns {
		n.reactions = append(n.reactions, r)
		n.reactionIdx[r.ID] = r
		for _, geneID := range r.GeneIDs() {
			if !n.HasGene(geneID) {
				n.AddGenes(&Gene{ID: geneID})
			}
		}
	}
	return nil
}

// RemoveReactions deletes the named reactions. Unknown IDs are ignored.
// Metabolites and genes are not pruned.
func (n *Network) RemoveReactions(ids ...string) {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := n.reactionIdx[id]; ok {
			drop[id] = struct{}{}
			delete(n.reactionIdx, id)
		}
	}
	if len(drop) == 0 {
		return
	}
	kept := n.reactions[:0]
	for _, r := range n.reactions {
		if _, gone := drop[r.ID]; !gone {
			kept = append(kept, r)
		}
	}
	n.reactions = kept
	if n.objective != "" {
		if _, gone := drop[n.objective]; gone {
			n.objective = ""
		}
	}
}

// ImportReactions copies the named reactions from src into n, cloning each
// reaction and any metabolite it references that n does not yet own. Missing
// source reactions fail with ErrUnknownReaction; IDs already present in n
// fail with ErrDuplicateReaction.
func (n *Network) ImportReactions(src *Network, ids ...string) error {
	for _, id := range ids {
		srcRxn, ok := src.Reaction(id)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownReaction, id)
		}
		for metID := range srcRxn.Metabolites {
			if _, have := n.Metabolite(metID); have {
				continue
			}
			if met, ok := src.Metabolite(metID); ok {
				n.AddMetabolites(met.Clone())
			} else {
				n.AddMetabolites(&Metabolite{ID: metID, Compartment: CompartmentForID(metID)})
			}
		}
		if err := n.AddReactions(srcRxn.Clone()); err != nil {
			return err
		}
	}
	return nil
}

// SetObjective marks the reaction whose flux is maximized by flux analyses of
// this network.
func (n *Network) SetObjective(id string) error {
	if !n.HasReaction(id) {
		return fmt.Errorf("%w: objective %s", ErrUnknownReaction, id)
	}
	n.objective = id
	return nil
}

// Objective returns the ID of the objective reaction, or "" when unset.
func (n *Network) Objective() string { return n.objective }

// Exchanges returns the exchange reactions (EX_-prefixed boundary reactions)
// in insertion order.
func (n *Network) Exchanges() []*Reaction {
	var out []*Reaction
	for _, r := range n.reactions {
		if r.IsExchange() {
			out = append(out, r)
		}
	}
	return out
}

// AddExchange creates an exchange reaction for the given metabolite,
// registering the metabolite if needed.
func (n *Network) AddExchange(met *Metabolite, id string, lb, ub float64) (*Reaction, error) {
	if _, ok := n.Metabolite(met.ID); !ok {
		n.AddMetabolites(met.Clone())
	}
	rxn := &Reaction{
		ID:          id,
		Name:        met.Name + " exchange",
		Metabolites: Stoichiometry{met.ID: -1},
		LowerBound:  lb,
		UpperBound:  ub,
	}
	if err := n.AddReactions(rxn); err != nil {
		return nil, err
	}
	return rxn, nil
}

// SetMedium applies an uptake environment: every exchange reaction listed in
// the medium gets a lower bound of minus its bound magnitude, every exchange
// reaction not listed gets a lower bound of zero. Upper bounds are untouched.
func (n *Network) SetMedium(medium map[string]float64) {
	n.medium = make(map[string]float64, len(medium))
	for id, bound := range medium {
		n.medium[id] = bound
	}
	for _, exch := range n.Exchanges() {
		if bound, ok := n.medium[exch.ID]; ok {
			exch.LowerBound = -bound
		} else {
			exch.LowerBound = 0
		}
	}
}

// Medium returns the uptake environment last applied with SetMedium.
func (n *Network) Medium() map[string]float64 { return n.medium }

// ReactionIDs returns the reaction IDs in insertion order.
func (n *Network) ReactionIDs() []string {
	out := make([]string, len(n.reactions))
	for i, r := range n.reactions {
		out[i] = r.ID
	}
	return out
}

// MetaboliteIDs returns the metabolite IDs in insertion order.
func (n *Network) MetaboliteIDs() []string {
	out := make([]string, len(n.metabolites))
	for i, m := range n.metabolites {
		out[i] = m.ID
	}
	return out
}

// ReactionIDSet returns the reaction IDs as a set.
func (n *Network) ReactionIDSet() map[string]struct{} {
	out := make(map[string]struct{}, len(n.reactions))
	for _, r := range n.reactions {
		out[r.ID] = struct{}{}
	}
	return out
}

// Clone returns a deep copy of the network. Mutating the copy never affects
// the original; this is the basis of the gap-fill solver's scoped overlay.
func (n *Network) Clone() *Network {
	out := NewNetwork(n.ID)
	out.Name = n.Name
	for k, v := range n.Notes {
		out.Notes[k] = v
	}
	for _, m := range n.metabolites {
		out.AddMetabolites(m.Clone())
	}
	for _, g := range n.genes {
		out.AddGenes(g.Clone())
	}
	for _, r := range n.reactions {
		// Metabolites and genes are pre-registered, so this cannot fail.
		_ = out.AddReactions(r.Clone())
	}
	out.objective = n.objective
	for id, bound := range n.medium {
		out.medium[id] = bound
	}
	return out
}

// SortedIDs returns the keys of a reaction ID set in lexical order. Useful
// wherever set contents feed deterministic output.
func SortedIDs(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
