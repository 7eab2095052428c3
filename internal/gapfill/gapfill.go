// Package gapfill implements the two-phase parsimonious-FBA gap-filling
// engine. One round merges the draft network into a scratch copy of the
// universal reaction bag, pins the objective reaction to a band of its
// unconstrained optimum, and minimizes total flux through every reaction the
// draft did not already have; the reactions left carrying flux are the gap
// fill. Integration then copies that minimal set into the draft permanently.
package gapfill

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/csbl/reconstructor/internal/fba"
	"github.com/csbl/reconstructor/internal/medium"
	"github.com/csbl/reconstructor/internal/model"
)

// ActivityEpsilon is the flux magnitude above which a reaction counts as
// active. It absorbs solver numerical noise; changing it invalidates the
// downstream activity tests.
const ActivityEpsilon = 1e-6

// Phase selects the band policy of a gap-filling round.
type Phase int

const (
	// Phase1 anchors a base of activity: objective flux is held inside
	// [V*minFrac, V*maxFrac] of the unconstrained optimum V.
	Phase1 Phase = 1

	// Phase2 tightens toward the optimum: objective flux inside
	// [V*maxFrac, V].
	Phase2 Phase = 2
)

const (
	exchangeOpenLower = -1000.0
	exchangeOpenUpper = 1000.0
	baseUptakeUpper   = -0.01
)

// FindActiveReactions performs one round of constrained pFBA and returns the
// IDs of reactions beyond the model's own set whose solved flux exceeds
// ActivityEpsilon. The universal argument is only ever mutated through a
// disposable copy; it is bit-for-bit unaffected when the call returns,
// success or failure.
//
// preserveObjective must be true only when the model came in as a complete
// network (the objective reaction then belongs to the model rather than the
// universal bag).
func FindActiveReactions(
	mdl, universal *model.Network,
	tasks []string,
	objectiveID string,
	minFrac, maxFrac float64,
	phase Phase,
	preserveObjective bool,
	logger *zap.Logger,
) (map[string]struct{}, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Scoped transaction: every mutation below happens on the scratch copy.
	scratch := universal.Clone()

	// The model's reactions replace their universal namesakes so the solve
	// sees model-exact bounds, while the objective stays owned by the bag
	// unless the model brought its own.
	origIDs := map[string]struct{}{}
	var overlap []string
	for _, rxn := range mdl.Reactions() {
		if rxn.ID == objectiveID && !preserveObjective {
			continue
		}
		origIDs[rxn.ID] = struct{}{}
		if scratch.HasReaction(rxn.ID) {
			overlap = append(overlap, rxn.ID)
		}
	}
	scratch.RemoveReactions(overlap...)
	for _, rxn := range mdl.Reactions() {
		if rxn.ID == objectiveID && !preserveObjective {
			continue
		}
		if err := scratch.ImportReactions(mdl, rxn.ID); err != nil {
			return nil, fmt.Errorf("gapfill: merge model into scratch bag: %w", err)
		}
	}

	// Metabolic tasks are forced to carry at least the minimum fraction.
	for _, taskID := range tasks {
		if rxn, ok := scratch.Reaction(taskID); ok {
			rxn.LowerBound = minFrac
		}
	}

	optimum, err := fba.Maximize(scratch, objectiveID)
	if err != nil {
		return nil, fmt.Errorf("gapfill: phase %d objective optimum: %w", phase, err)
	}

	var band fba.FluxBand
	switch phase {
	case Phase1:
		band = fba.FluxBand{ReactionID: objectiveID, Lb: optimum * minFrac, Ub: optimum * maxFrac}
	case Phase2:
		band = fba.FluxBand{ReactionID: objectiveID, Lb: optimum * maxFrac, Ub: optimum}
	default:
		return nil, fmt.Errorf("gapfill: unknown phase %d", phase)
	}

	// pFBA objective: the model's own reactions are free, every candidate
	// from the bag is penalized per unit of forward plus reverse flux.
	weights := make(map[string]float64, len(scratch.Reactions()))
	for _, rxn := range scratch.Reactions() {
		if _, own := origIDs[rxn.ID]; own {
			weights[rxn.ID] = 0
		} else {
			weights[rxn.ID] = 1
		}
	}

	fluxes, err := fba.MinimizeTotalFlux(scratch, weights, band)
	if err != nil {
		return nil, fmt.Errorf("gapfill: phase %d pFBA: %w", phase, err)
	}

	active := map[string]struct{}{}
	for id, flux := range fluxes {
		if math.Abs(flux) <= ActivityEpsilon {
			continue
		}
		if _, own := origIDs[id]; own {
			continue
		}
		active[id] = struct{}{}
	}

	logger.Info("gap-fill round solved",
		zap.Int("phase", int(phase)),
		zap.Float64("objective_optimum", optimum),
		zap.Float64("band_lb", band.Lb),
		zap.Float64("band_ub", band.Ub),
		zap.Int("active_new_reactions", len(active)),
	)
	return active, nil
}

// Integrate permanently adds the discovered reactions to the model. Phase 1
// additionally imports the objective reaction itself, whether or not the
// solver reported it. Integration is strictly additive: a duplicate ID is an
// error, never an overwrite. Afterwards every extracellular metabolite
// without an exchange reaction gets one with open bounds, and the model's
// objective is set to maximize the objective reaction.
func Integrate(
	mdl, universal *model.Network,
	newIDs map[string]struct{},
	objectiveID string,
	phase Phase,
	logger *zap.Logger,
) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	var imports []string
	if phase == Phase1 {
		imports = append(imports, objectiveID)
	}
	for _, id := range model.SortedIDs(newIDs) {
		if id != objectiveID {
			imports = append(imports, id)
		}
	}
	if err := mdl.ImportReactions(universal, imports...); err != nil {
		return fmt.Errorf("gapfill: integrate phase %d: %w", phase, err)
	}
	if err := mdl.SetObjective(objectiveID); err != nil {
		return fmt.Errorf("gapfill: integrate phase %d: %w", phase, err)
	}

	added := 0
	for _, met := range mdl.Metabolites() {
		if !met.IsExtracellular() {
			continue
		}
		exchID := model.ExchangePrefix + met.ID
		if mdl.HasReaction(exchID) {
			continue
		}
		if _, err := mdl.AddExchange(met, exchID, exchangeOpenLower, exchangeOpenUpper); err != nil {
			return fmt.Errorf("gapfill: add exchange %s: %w", exchID, err)
		}
		added++
	}

	logger.Info("integrated gap-fill round",
		zap.Int("phase", int(phase)),
		zap.Int("reactions_imported", len(imports)),
		zap.Int("exchanges_added", added),
	)
	return nil
}

// SetBaseInputs forces uptake of the complete-medium compound set before the
// second gap-filling pass, importing any missing exchange reactions from the
// universal bag. A compound whose exchange is missing from the bag indicates
// a reference-database mismatch and is an error.
func SetBaseInputs(mdl, universal *model.Network) error {
	exchanges := make([]string, len(medium.Complete))
	for i, cpd := range medium.Complete {
		exchanges[i] = model.ExchangePrefix + cpd
	}
	for _, exchID := range exchanges {
		if mdl.HasReaction(exchID) {
			continue
		}
		if err := mdl.ImportReactions(universal, exchID); err != nil {
			return fmt.Errorf("gapfill: base medium: %w", err)
		}
	}
	for _, exchID := range exchanges {
		rxn, _ := mdl.Reaction(exchID)
		rxn.SetBounds(exchangeOpenLower, baseUptakeUpper)
	}
	return nil
}
