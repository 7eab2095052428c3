// Package draft builds a minimal draft network from similarity-search hits:
// hit genes are translated to candidate reference reactions, and every
// candidate that resolves against the universal reaction bag is copied into a
// fresh network with an OR-of-genes rule attached.
package draft

import (
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/csbl/reconstructor/internal/align"
	"github.com/csbl/reconstructor/internal/model"
)

// Reference is the slice of the reference database the draft builder needs:
// the gene lookup tables. *refdb.Database satisfies it.
type Reference interface {
	ReactionsForGene(gene string) []string
	GenesForOrganism(org string) []string
	GeneName(gene string) (string, bool)
}

// Candidates accumulates reaction IDs and the genes that mapped to them, in
// discovery order. Order affects nothing semantically but keeps gene rules
// and serialized output reproducible.
type Candidates struct {
	order []string
	genes map[string][]*model.Gene
	seen  map[string]map[string]struct{}
}

// NewCandidates returns an empty candidate accumulator.
func NewCandidates() *Candidates {
	return &Candidates{
		genes: map[string][]*model.Gene{},
		seen:  map[string]map[string]struct{}{},
	}
}

// Add records that gene mapped to the reaction. A gene is recorded at most
// once per reaction.
func (c *Candidates) Add(reactionID string, gene *model.Gene) {
	if _, ok := c.genes[reactionID]; !ok {
		c.order = append(c.order, reactionID)
		c.seen[reactionID] = map[string]struct{}{}
	}
	if _, dup := c.seen[reactionID][gene.ID]; dup {
		return
	}
	c.seen[reactionID][gene.ID] = struct{}{}
	c.genes[reactionID] = append(c.genes[reactionID], gene)
}

// ReactionIDs returns the candidate reaction IDs in discovery order.
func (c *Candidates) ReactionIDs() []string { return c.order }

// Genes returns the genes recorded for a reaction, in discovery order.
func (c *Candidates) Genes(reactionID string) []*model.Gene { return c.genes[reactionID] }

// Len returns the number of candidate reactions.
func (c *Candidates) Len() int { return len(c.order) }

// Stats reports mapping coverage of a translation run. Unmapped genes are
// dropped silently by design; the counts exist so callers can observe the
// loss without parsing log output.
type Stats struct {
	// AugmentedOrgGenes counts genes added from the organism's reference
	// record because the similarity search missed them.
	AugmentedOrgGenes int

	// UnmappedGenes counts hit genes with no recorded reaction.
	UnmappedGenes int
}

// GenesToReactions translates hit genes into candidate cytosolic reactions
// using the gene lookup tables. When organism is non-empty, every gene the
// reference map records for that organism and the search did not hit is added
// as well.
func GenesToReactions(hits []align.Hit, db Reference, organism string, logger *zap.Logger) (*Candidates, Stats) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cands := NewCandidates()
	var stats Stats

	blasted := make(map[string]struct{}, len(hits))
	for _, hit := range hits {
		blasted[hit.SubjectID] = struct{}{}
	}

	for _, hit := range hits {
		bases := db.ReactionsForGene(hit.SubjectID)
		if len(bases) == 0 {
			stats.UnmappedGenes++
			continue
		}
		gene := &model.Gene{
			ID:         hit.QueryID,
			Annotation: model.Annotation{"kegg.genes": hit.SubjectID},
		}
		for _, base := range bases {
			cands.Add(base+model.CytosolSuffix, gene)
		}
	}

	if organism != "" {
		var added int
		for _, code := range db.GenesForOrganism(organism) {
			if _, hit := blasted[code]; hit {
				continue
			}
			added++
			gene := &model.Gene{
				ID:         model.SanitizeID(code),
				Annotation: model.Annotation{"kegg.genes": code},
			}
			for _, base := range db.ReactionsForGene(code) {
				cands.Add(base+model.CytosolSuffix, gene)
			}
		}
		stats.AugmentedOrgGenes = added
		logger.Info("augmented hit genes from organism record",
			zap.String("organism", organism),
			zap.Int("added", added),
		)
	}

	if stats.UnmappedGenes > 0 {
		logger.Warn("hit genes without a known reaction were dropped",
			zap.Int("unmapped", stats.UnmappedGenes),
		)
	}
	return cands, stats
}

// Build constructs the draft network: a candidate reaction is included iff
// the universal bag has it under that exact ID, with its gene rule set to the
// OR of every gene that mapped to it. Unresolved candidates are dropped
// without error; the count of drops is returned.
func Build(cands *Candidates, universal *model.Network, modelID string) (*model.Network, int) {
	net := model.NewNetwork(modelID)

	for _, id := range cands.ReactionIDs() {
		for _, gene := range cands.Genes(id) {
			if !net.HasGene(gene.ID) {
				net.AddGenes(gene.Clone())
			}
		}
	}

	unresolved := 0
	for _, id := range cands.ReactionIDs() {
		if !universal.HasReaction(id) {
			unresolved++
			continue
		}
		// Candidate IDs are unique, so the import cannot collide.
		if err := net.ImportReactions(universal, id); err != nil {
			unresolved++
			continue
		}
		rxn, _ := net.Reaction(id)
		ids := make([]string, len(cands.Genes(id)))
		for i, gene := range cands.Genes(id) {
			ids[i] = gene.ID
		}
		rxn.GeneRule = model.JoinGeneRule(ids)
	}
	return net, unresolved
}

// AddGeneNames fills in display names from the gene name table, keyed by the
// gene's external reference code.
func AddGeneNames(net *model.Network, db Reference) {
	for _, gene := range net.Genes() {
		code := gene.Annotation["kegg.genes"]
		if code == "" {
			code = gene.ID
		}
		if name, ok := db.GeneName(code); ok {
			gene.Name = titleCase(name)
		}
	}
}

func titleCase(s string) string {
	var b strings.Builder
	startOfWord := true
	for _, r := range s {
		if unicode.IsSpace(r) {
			startOfWord = true
			b.WriteRune(r)
			continue
		}
		if startOfWord {
			b.WriteRune(unicode.ToUpper(r))
			startOfWord = false
		} else {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
