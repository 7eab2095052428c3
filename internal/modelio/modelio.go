// Package modelio reads and writes networks in the COBRA JSON interchange
// format (schema version 1), the serialization consumed and produced by
// standard constraint-based-modeling tooling. Files ending in .gz are
// transparently compressed.
package modelio

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/csbl/reconstructor/internal/model"
)

// Document is the on-disk shape of a network. It doubles as a comparable
// snapshot of a Network for tests and diffing.
type Document struct {
	ID          string            `json:"id"`
	Name        string            `json:"name,omitempty"`
	Version     string            `json:"version"`
	Notes       map[string]string `json:"notes,omitempty"`
	Reactions   []ReactionDoc     `json:"reactions"`
	Metabolites []MetaboliteDoc   `json:"metabolites"`
	Genes       []GeneDoc         `json:"genes"`
}

// ReactionDoc mirrors a cobrapy reaction entry. The objective reaction
// carries ObjectiveCoefficient 1 so downstream tooling picks it up without
// translation.
type ReactionDoc struct {
	ID                   string             `json:"id"`
	Name                 string             `json:"name,omitempty"`
	Metabolites          map[string]float64 `json:"metabolites"`
	LowerBound           float64            `json:"lower_bound"`
	UpperBound           float64            `json:"upper_bound"`
	GeneReactionRule     string             `json:"gene_reaction_rule"`
	ObjectiveCoefficient float64            `json:"objective_coefficient,omitempty"`
	Annotation           map[string]string  `json:"annotation,omitempty"`
}

// MetaboliteDoc mirrors a cobrapy metabolite entry.
type MetaboliteDoc struct {
	ID          string            `json:"id"`
	Name        string            `json:"name,omitempty"`
	Compartment string            `json:"compartment,omitempty"`
	Annotation  map[string]string `json:"annotation,omitempty"`
}

// GeneDoc mirrors a cobrapy gene entry.
type GeneDoc struct {
	ID         string            `json:"id"`
	Name       string            `json:"name,omitempty"`
	Annotation map[string]string `json:"annotation,omitempty"`
}

// FromNetwork converts a network to its document form.
func FromNetwork(n *model.Network) *Document {
	doc := &Document{
		ID:      n.ID,
		Name:    n.Name,
		Version: "1",
	}
	if len(n.Notes) > 0 {
		doc.Notes = make(map[string]string, len(n.Notes))
		for k, v := range n.Notes {
			doc.Notes[k] = v
		}
	}
	for _, r := range n.Reactions() {
		rd := ReactionDoc{
			ID:               r.ID,
			Name:             r.Name,
			Metabolites:      map[string]float64{},
			LowerBound:       r.LowerBound,
			UpperBound:       r.UpperBound,
			GeneReactionRule: r.GeneRule,
			Annotation:       map[string]string(r.Annotation.Clone()),
		}
		for metID, coeff := range r.Metabolites {
			rd.Metabolites[metID] = coeff
		}
		if r.ID == n.Objective() {
			rd.ObjectiveCoefficient = 1
		}
		doc.Reactions = append(doc.Reactions, rd)
	}
	for _, m := range n.Metabolites() {
		doc.Metabolites = append(doc.Metabolites, MetaboliteDoc{
			ID:          m.ID,
			Name:        m.Name,
			Compartment: m.Compartment,
			Annotation:  map[string]string(m.Annotation.Clone()),
		})
	}
	for _, g := range n.Genes() {
		doc.Genes = append(doc.Genes, GeneDoc{
			ID:         g.ID,
			Name:       g.Name,
			Annotation: map[string]string(g.Annotation.Clone()),
		})
	}
	return doc
}

// ToNetwork converts a document back into a network.
func (d *Document) ToNetwork() (*model.Network, error) {
	n := model.NewNetwork(d.ID)
	n.Name = d.Name
	for k, v := range d.Notes {
		n.Notes[k] = v
	}
	for _, md := range d.Metabolites {
		compartment := md.Compartment
		if compartment == "" {
			compartment = model.CompartmentForID(md.ID)
		}
		n.AddMetabolites(&model.Metabolite{
			ID:          md.ID,
			Name:        md.Name,
			Compartment: compartment,
			Annotation:  model.Annotation(md.Annotation),
		})
	}
	for _, gd := range d.Genes {
		n.AddGenes(&model.Gene{
			ID:         gd.ID,
			Name:       gd.Name,
			Annotation: model.Annotation(gd.Annotation),
		})
	}
	objective := ""
	for _, rd := range d.Reactions {
		rxn := &model.Reaction{
			ID:          rd.ID,
			Name:        rd.Name,
			Metabolites: model.Stoichiometry(rd.Metabolites),
			LowerBound:  rd.LowerBound,
			UpperBound:  rd.UpperBound,
			GeneRule:    rd.GeneReactionRule,
			Annotation:  model.Annotation(rd.Annotation),
		}
		// Reaction entries may reference metabolites the metabolite list
		// omits; register them so AddReactions accepts the document.
		for metID := range rxn.Metabolites {
			if _, ok := n.Metabolite(metID); !ok {
				n.AddMetabolites(&model.Metabolite{ID: metID, Compartment: model.CompartmentForID(metID)})
			}
		}
		if err := n.AddReactions(rxn); err != nil {
			return nil, fmt.Errorf("modelio: %w", err)
		}
		if rd.ObjectiveCoefficient != 0 && objective == "" {
			objective = rd.ID
		}
	}
	if objective != "" {
		if err := n.SetObjective(objective); err != nil {
			return nil, fmt.Errorf("modelio: %w", err)
		}
	}
	return n, nil
}

// Read loads a network from a COBRA JSON file, decompressing .gz inputs.
func Read(path string) (*model.Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("modelio: open %s: %w", path, err)
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("modelio: gunzip %s: %w", path, err)
		}
		defer gz.Close()
		reader = gz
	}

	var doc Document
	if err := json.NewDecoder(reader).Decode(&doc); err != nil {
		return nil, fmt.Errorf("modelio: decode %s: %w", path, err)
	}
	return doc.ToNetwork()
}

// Write saves a network as COBRA JSON, compressing when the path ends in .gz.
func Write(n *model.Network, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("modelio: create %s: %w", path, err)
	}
	defer f.Close()

	var writer io.Writer = f
	var gz *gzip.Writer
	if strings.HasSuffix(path, ".gz") {
		gz = gzip.NewWriter(f)
		writer = gz
	}

	enc := json.NewEncoder(writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(FromNetwork(n)); err != nil {
		return fmt.Errorf("modelio: encode %s: %w", path, err)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return fmt.Errorf("modelio: finish %s: %w", path, err)
		}
	}
	return nil
}
