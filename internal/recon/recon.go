// Package recon orchestrates a reconstruction end to end: intake (sequences,
// precomputed hits, or an existing network), draft construction, the
// two-phase pFBA gap-fill, annotation, and the final exchange-bound policy.
package recon

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/csbl/reconstructor/internal/align"
	"github.com/csbl/reconstructor/internal/draft"
	"github.com/csbl/reconstructor/internal/fba"
	"github.com/csbl/reconstructor/internal/gapfill"
	"github.com/csbl/reconstructor/internal/medium"
	"github.com/csbl/reconstructor/internal/model"
	"github.com/csbl/reconstructor/internal/modelio"
	"github.com/csbl/reconstructor/internal/refdb"
)

// Version tags the Notes["source"] entry of produced models.
const Version = "1.0.0"

// ErrUnknownGram rejects a gram-stain classification outside
// {positive, negative}; the classification selects the objective reaction and
// the reconstruction cannot proceed without it.
var ErrUnknownGram = errors.New("recon: unrecognized gram classification")

// Kind is the input provenance, dispatched exactly once at the orchestrator
// boundary.
type Kind int

const (
	// KindSequences is an annotated protein FASTA; the similarity search
	// runs first.
	KindSequences Kind = iota + 1
	// KindHits is a precomputed tabular similarity-search output.
	KindHits
	// KindNetwork is an existing network model to extend.
	KindNetwork
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindSequences:
		return "sequences"
	case KindHits:
		return "hits"
	case KindNetwork:
		return "network"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind accepts the provenance names and their legacy numeric codes.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sequences", "fasta", "1":
		return KindSequences, nil
	case "hits", "blast", "2":
		return KindHits, nil
	case "network", "model", "3":
		return KindNetwork, nil
	default:
		return 0, fmt.Errorf("recon: unknown input kind %q", s)
	}
}

// Documented fraction defaults applied when out-of-range values are clamped.
const (
	DefaultMinFraction = 0.01
	DefaultMaxFraction = 0.5
)

const (
	objectiveGramPositive = "biomass_GmPos"
	objectiveGramNegative = "biomass_GmNeg"
	defaultModelID        = "new_model"
	mediumUptakeBound     = 1000.0
)

// Options configures one reconstruction run.
type Options struct {
	InputPath string
	Kind      Kind

	// Media is an explicit compound list; when nil, MediaName selects a
	// preset (default "rich").
	Media     medium.Medium
	MediaName string

	// Tasks lists reaction IDs forced active during gap-filling.
	Tasks []string

	// Organism optionally augments hit genes with the organism's full
	// reference record.
	Organism string

	MinFraction float64
	MaxFraction float64

	// Gram selects the objective reaction: "positive" or "negative".
	Gram string

	ModelID    string
	Processors int

	GapFill       bool
	OpenExchanges bool

	// DBDir is the reference database directory (see refdb).
	DBDir string

	// DiamondExe overrides the similarity-search binary; BlastDB overrides
	// the protein database path (default DBDir/protein.dmnd).
	DiamondExe string
	BlastDB    string
}

// Report summarizes a reconstruction. The mapping-loss counters exist so
// callers can observe the silent best-effort gene mapping without parsing
// log output.
type Report struct {
	RunID string

	AugmentedOrgGenes   int
	UnmappedGenes       int
	UnresolvedReactions int

	DraftGenes       int
	DraftReactions   int
	DraftMetabolites int

	GapfilledReactions   int
	GapfilledMetabolites int

	FinalReactions   int
	FinalMetabolites int

	// ObjectiveFlux is the final model's optimal objective flux, NaN when
	// the final bounds leave the problem infeasible.
	ObjectiveFlux float64
}

// Reconstruct builds a genome-scale network from the configured input and
// returns the final model with its report. Any terminal failure aborts the
// whole reconstruction; no partial model is returned.
func Reconstruct(ctx context.Context, opts Options, logger *zap.Logger) (*model.Network, *Report, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	report := &Report{RunID: uuid.NewString()}
	logger = logger.With(zap.String("run_id", report.RunID))

	// Validating.
	if _, err := os.Stat(opts.InputPath); err != nil {
		return nil, nil, fmt.Errorf("recon: input: %w", err)
	}
	objective, err := objectiveForGram(opts.Gram)
	if err != nil {
		return nil, nil, err
	}
	minFrac, maxFrac := clampFractions(opts.MinFraction, opts.MaxFraction, logger)

	media := opts.Media
	if media == nil {
		name := opts.MediaName
		if name == "" {
			name = medium.NameRich
		}
		media, err = medium.Named(name)
		if err != nil {
			return nil, nil, err
		}
	}

	db, err := refdb.Load(opts.DBDir, logger)
	if err != nil {
		return nil, nil, err
	}

	// DraftBuilding (skipped when the input is already a full network).
	net, objective, err := intake(ctx, opts, db, objective, report, logger)
	if err != nil {
		return nil, nil, err
	}

	draftReactions := net.ReactionIDSet()
	draftMetabolites := make(map[string]struct{}, len(net.Metabolites()))
	for _, id := range net.MetaboliteIDs() {
		draftMetabolites[id] = struct{}{}
	}
	report.DraftGenes = len(net.Genes())
	report.DraftReactions = len(draftReactions)
	report.DraftMetabolites = len(draftMetabolites)

	annotateObjective := annotationObjectiveBuilt
	if opts.GapFill {
		// The run-local universal copy absorbs the medium bounds; the
		// cached reference instance stays untouched.
		universal := db.Universal()
		universal.SetMedium(mediumUptake(media, universal))
		preserve := opts.Kind == KindNetwork

		// GapFillPhase1 / IntegratePhase1.
		newIDs, err := gapfill.FindActiveReactions(net, universal, opts.Tasks, objective,
			minFrac, maxFrac, gapfill.Phase1, preserve, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := gapfill.Integrate(net, universal, newIDs, objective, gapfill.Phase1, logger); err != nil {
			return nil, nil, err
		}

		if opts.Kind != KindNetwork {
			// BaseMediumSetup / GapFillPhase2 / IntegratePhase2.
			if err := gapfill.SetBaseInputs(net, universal); err != nil {
				return nil, nil, err
			}
			mediaIDs, err := gapfill.FindActiveReactions(net, universal, opts.Tasks, objective,
				minFrac, maxFrac, gapfill.Phase2, preserve, logger)
			if err != nil {
				return nil, nil, err
			}
			if err := gapfill.Integrate(net, universal, mediaIDs, objective, gapfill.Phase2, logger); err != nil {
				return nil, nil, err
			}
		} else {
			annotateObjective = objective
		}
	}

	// Annotate.
	annotate(net, annotateObjective)

	// BoundsFinalize: one global policy for every exchange reaction.
	lb, ub := 0.0, 0.0
	if opts.OpenExchanges {
		lb, ub = -1000.0, 1000.0
	}
	for _, exch := range net.Exchanges() {
		exch.SetBounds(lb, ub)
	}

	finalize(net, draftReactions, draftMetabolites, report, logger)
	return net, report, nil
}

// intake converts the input into a draft network, returning the objective
// reaction ID to use (derived from the network itself for KindNetwork).
func intake(ctx context.Context, opts Options, db *refdb.Database, objective string, report *Report, logger *zap.Logger) (*model.Network, string, error) {
	modelID := opts.ModelID
	if modelID == "" {
		modelID = defaultModelID
	}

	hitsPath := opts.InputPath
	switch opts.Kind {
	case KindSequences:
		hitsPath = blastOutputPath(opts.InputPath)
		blastDB := opts.BlastDB
		if blastDB == "" {
			blastDB = filepath.Join(opts.DBDir, "protein.dmnd")
		}
		if err := align.RunBlast(ctx, opts.DiamondExe, opts.InputPath, hitsPath, blastDB, opts.Processors, logger); err != nil {
			return nil, "", err
		}
		fallthrough

	case KindHits:
		hits, err := align.ReadHits(hitsPath)
		if err != nil {
			return nil, "", err
		}
		cands, stats := draft.GenesToReactions(hits, db, opts.Organism, logger)
		net, unresolved := draft.Build(cands, db.UniversalRef(), modelID)
		draft.AddGeneNames(net, db)
		net.Notes["source"] = "reconstructor v" + Version

		report.AugmentedOrgGenes = stats.AugmentedOrgGenes
		report.UnmappedGenes = stats.UnmappedGenes
		report.UnresolvedReactions = unresolved
		return net, objective, nil

	case KindNetwork:
		net, err := modelio.Read(opts.InputPath)
		if err != nil {
			return nil, "", err
		}
		if net.Objective() == "" {
			return nil, "", fmt.Errorf("recon: input network %s declares no objective reaction", opts.InputPath)
		}
		return net, net.Objective(), nil

	default:
		return nil, "", fmt.Errorf("recon: unknown input kind %v", opts.Kind)
	}
}

func objectiveForGram(gram string) (string, error) {
	switch gram {
	case "positive":
		return objectiveGramPositive, nil
	case "negative":
		return objectiveGramNegative, nil
	default:
		return "", fmt.Errorf("%w: %q (want positive or negative)", ErrUnknownGram, gram)
	}
}

// clampFractions recovers out-of-range fraction parameters to the documented
// defaults with a warning instead of failing the run.
func clampFractions(minFrac, maxFrac float64, logger *zap.Logger) (float64, float64) {
	if minFrac <= 0 || minFrac > 1 {
		logger.Warn("improper minimum fraction, using default",
			zap.Float64("given", minFrac),
			zap.Float64("default", DefaultMinFraction),
		)
		minFrac = DefaultMinFraction
	}
	if maxFrac <= 0 || maxFrac > 1 {
		logger.Warn("improper maximum fraction, using default",
			zap.Float64("given", maxFrac),
			zap.Float64("default", DefaultMaxFraction),
		)
		maxFrac = DefaultMaxFraction
	}
	if maxFrac < minFrac {
		logger.Warn("maximum fraction below minimum, setting minimum to half maximum",
			zap.Float64("min", minFrac),
			zap.Float64("max", maxFrac),
		)
		minFrac = maxFrac * 0.5
	}
	return minFrac, maxFrac
}

// mediumUptake maps the medium's compounds onto exchange reactions that the
// universal bag actually carries.
func mediumUptake(media medium.Medium, universal *model.Network) map[string]float64 {
	out := map[string]float64{}
	for _, cpd := range media {
		exchID := model.ExchangePrefix + cpd
		if universal.HasReaction(exchID) {
			out[exchID] = mediumUptakeBound
		}
	}
	return out
}

// blastOutputPath replaces the input's extension with the hits suffix.
func blastOutputPath(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + ".KEGGprot.out"
}

// finalize fills in the report's summary counters and the final objective
// flux.
func finalize(net *model.Network, draftReactions, draftMetabolites map[string]struct{}, report *Report, logger *zap.Logger) {
	report.FinalReactions = len(net.Reactions())
	report.FinalMetabolites = len(net.Metabolites())
	for _, id := range net.ReactionIDs() {
		if _, had := draftReactions[id]; !had {
			report.GapfilledReactions++
		}
	}
	for _, id := range net.MetaboliteIDs() {
		if _, had := draftMetabolites[id]; !had {
			report.GapfilledMetabolites++
		}
	}

	report.ObjectiveFlux = 0
	if obj := net.Objective(); obj != "" {
		flux, err := fba.Maximize(net, obj)
		switch {
		case err == nil:
			report.ObjectiveFlux = flux
		case errors.Is(err, fba.ErrInfeasible):
			report.ObjectiveFlux = math.NaN()
			logger.Warn("final model objective is infeasible under the finalized bounds")
		default:
			report.ObjectiveFlux = math.NaN()
			logger.Warn("final objective flux check failed", zap.Error(err))
		}
	}

	logger.Info("reconstruction finished",
		zap.Int("draft_genes", report.DraftGenes),
		zap.Int("draft_reactions", report.DraftReactions),
		zap.Int("draft_metabolites", report.DraftMetabolites),
		zap.Int("gapfilled_reactions", report.GapfilledReactions),
		zap.Int("gapfilled_metabolites", report.GapfilledMetabolites),
		zap.Int("final_reactions", report.FinalReactions),
		zap.Int("final_metabolites", report.FinalMetabolites),
		zap.Float64("objective_flux", report.ObjectiveFlux),
	)
}
