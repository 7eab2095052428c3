// Command reconstructor builds a genome-scale metabolic network model from an
// annotated protein FASTA, a precomputed similarity-search hit table, or an
// existing network model, gap-filling it with a two-phase pFBA procedure.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/csbl/reconstructor/internal/config"
	"github.com/csbl/reconstructor/internal/medium"
	"github.com/csbl/reconstructor/internal/modelio"
	"github.com/csbl/reconstructor/internal/recon"
)

var (
	inputPath     string
	inputType     string
	mediaArg      string
	tasksArg      string
	organism      string
	minFrac       float64
	maxFrac       float64
	gram          string
	outPath       string
	modelID       string
	processors    int
	doGapfill     bool
	openExchanges bool
	dbDir         string
	diamondExe    string
	blastDB       string
	configPath    string
	verbose       bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "reconstructor",
	Short: "Genome-scale metabolic network reconstruction with pFBA gap-filling",
	Long: `reconstructor builds a genome-scale network reconstruction (GENRE) in the
ModelSEED namespace and gap-fills it so the biomass objective carries flux.

Input types:
  sequences  annotated protein FASTA (DIAMOND runs against the reference database)
  hits       tabular DIAMOND blastp output
  network    existing COBRA JSON model to extend

Examples:
  reconstructor --input genome.faa --type sequences --gram negative
  reconstructor --input genome.hits.out --type hits --gram positive --media minimal
  reconstructor --input model.json --type network`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		zapCfg := zap.NewProductionConfig()
		if level, parseErr := zapcore.ParseLevel(cfg.Logging.Level); parseErr == nil {
			zapCfg.Level = zap.NewAtomicLevelAt(level)
		}
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		applyConfig(cmd, cfg)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runReconstruction,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&inputPath, "input", "", "input file (required)")
	flags.StringVar(&inputType, "type", "sequences", "input type: sequences, hits, or network (legacy codes 1/2/3)")
	flags.StringVar(&mediaArg, "media", medium.NameRich, "medium: preset name, comma-separated compound list, or @file.yaml")
	flags.StringVar(&tasksArg, "tasks", "", "comma-separated reaction IDs forced active during gap-filling")
	flags.StringVar(&organism, "org", "", "reference organism code used to augment similarity-search hits")
	flags.Float64Var(&minFrac, "min-frac", recon.DefaultMinFraction, "minimum objective fraction required during gap-filling")
	flags.Float64Var(&maxFrac, "max-frac", recon.DefaultMaxFraction, "maximum objective fraction allowed during gap-filling")
	flags.StringVar(&gram, "gram", "positive", "gram classification selecting the biomass objective: positive or negative")
	flags.StringVar(&outPath, "out", "", "output model path (default derived from the input path)")
	flags.StringVar(&modelID, "name", "", "ID of the produced model")
	flags.IntVar(&processors, "cpu", 0, "processors for the similarity search (0 lets DIAMOND decide)")
	flags.BoolVar(&doGapfill, "gapfill", true, "perform pFBA gap-filling")
	flags.BoolVar(&openExchanges, "open-exchanges", true, "leave every exchange reaction open in the final model")
	flags.StringVar(&dbDir, "db-dir", "", "reference database directory (default from config)")
	flags.StringVar(&diamondExe, "diamond", "", "path to the DIAMOND binary (default: found on PATH)")
	flags.StringVar(&blastDB, "blast-db", "", "DIAMOND protein database (default: <db-dir>/protein.dmnd)")

	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	_ = rootCmd.MarkFlagRequired("input")
}

func runReconstruction(cmd *cobra.Command, args []string) error {
	kind, err := recon.ParseKind(inputType)
	if err != nil {
		return err
	}
	media, mediaName, err := resolveMedia(mediaArg)
	if err != nil {
		return err
	}

	var tasks []string
	if tasksArg != "" {
		for _, task := range strings.Split(tasksArg, ",") {
			if task = strings.TrimSpace(task); task != "" {
				tasks = append(tasks, task)
			}
		}
	}

	opts := recon.Options{
		InputPath:     inputPath,
		Kind:          kind,
		Media:         media,
		MediaName:     mediaName,
		Tasks:         tasks,
		Organism:      organism,
		MinFraction:   minFrac,
		MaxFraction:   maxFrac,
		Gram:          gram,
		ModelID:       modelID,
		Processors:    processors,
		GapFill:       doGapfill,
		OpenExchanges: openExchanges,
		DBDir:         dbDir,
		DiamondExe:    diamondExe,
		BlastDB:       blastDB,
	}

	net, report, err := recon.Reconstruct(cmd.Context(), opts, logger)
	if err != nil {
		return err
	}

	out := outPath
	if out == "" {
		out = defaultOutputPath(inputPath, kind)
	}
	if err := modelio.Write(net, out); err != nil {
		return err
	}

	printSummary(cmd, report, out)
	return nil
}

// resolveMedia turns the --media argument into either an explicit compound
// list or a preset name for the orchestrator to resolve.
func resolveMedia(arg string) (medium.Medium, string, error) {
	switch {
	case strings.HasPrefix(arg, "@"):
		m, err := medium.LoadFile(strings.TrimPrefix(arg, "@"))
		return m, "", err
	case strings.Contains(arg, ","):
		var compounds []string
		for _, cpd := range strings.Split(arg, ",") {
			if cpd = strings.TrimSpace(cpd); cpd != "" {
				compounds = append(compounds, cpd)
			}
		}
		return medium.Medium(compounds), "", nil
	default:
		return nil, arg, nil
	}
}

func defaultOutputPath(input string, kind recon.Kind) string {
	base := strings.TrimSuffix(input, filepath.Ext(input))
	if kind == recon.KindNetwork {
		return base + ".extended.json"
	}
	return base + ".json"
}

// applyConfig fills in every setting the user left at its flag default with
// the configuration file's value. Explicit flags always win.
func applyConfig(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if !flags.Changed("db-dir") && dbDir == "" {
		dbDir = cfg.Database.Dir
	}
	if !flags.Changed("diamond") && cfg.Search.Executable != "" {
		diamondExe = cfg.Search.Executable
	}
	if !flags.Changed("blast-db") && cfg.Search.ProteinDB != "" {
		blastDB = cfg.Search.ProteinDB
	}
	if !flags.Changed("cpu") && cfg.Search.Processors > 0 {
		processors = cfg.Search.Processors
	}
	if !flags.Changed("gapfill") {
		doGapfill = cfg.GapFill.Enabled
	}
	if !flags.Changed("min-frac") && cfg.GapFill.MinFraction > 0 {
		minFrac = cfg.GapFill.MinFraction
	}
	if !flags.Changed("max-frac") && cfg.GapFill.MaxFraction > 0 {
		maxFrac = cfg.GapFill.MaxFraction
	}
	if !flags.Changed("media") && cfg.GapFill.Medium != "" {
		mediaArg = cfg.GapFill.Medium
	}
}

func printSummary(cmd *cobra.Command, report *recon.Report, out string) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Draft reconstruction had %d genes, %d reactions, and %d metabolites\n",
		report.DraftGenes, report.DraftReactions, report.DraftMetabolites)
	fmt.Fprintf(w, "Gapfilled %d reactions and %d metabolites\n",
		report.GapfilledReactions, report.GapfilledMetabolites)
	if report.UnmappedGenes > 0 || report.UnresolvedReactions > 0 {
		fmt.Fprintf(w, "Dropped %d unmapped genes and %d unresolved reactions\n",
			report.UnmappedGenes, report.UnresolvedReactions)
	}
	fmt.Fprintf(w, "Final reconstruction has %d reactions and %d metabolites\n",
		report.FinalReactions, report.FinalMetabolites)
	fmt.Fprintf(w, "Final objective flux is %.3f\n", report.ObjectiveFlux)
	fmt.Fprintf(w, "Saved model to %s\n", out)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
