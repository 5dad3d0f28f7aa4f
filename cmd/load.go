package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"vocab-loader/core/reconcile"
	"vocab-loader/core/source"
	"vocab-loader/core/store"
	"vocab-loader/feature/stcm"
	"vocab-loader/feature/vocabulary"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags shared by the load commands
	dryRunLoad     bool
	yesConfirm     bool
	keepAbsentStcm bool
	skipFetch      bool
	vocabDirFlag   string
	stcmDirFlag    string

	// confirm asks before vocabularies are dropped
	confirm = confirmDestructiveAction
)

// loadCmd is the parent command for all reconciliation runs.
var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Reconcile vocabulary files with the CDM database",
	Long: `Reconcile custom vocabularies and source-to-concept maps with the database.

Files are validated before anything is written; every problem found is reported at once.
Each table family is written in a single transaction.

Examples:
  # Show what would change
  load all --dry-run

  # Reload changed vocabularies, confirming drops of vocabularies no longer on disk
  load vocabulary --yes

  # Reload changed mappings, keeping those of vocabularies missing from the version file
  load stcm --keep-absent-stcm`,
}

var loadVocabularyCmd = &cobra.Command{
	Use:   "vocabulary",
	Short: "Reconcile vocabulary, concept_class and concept",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLoad(cmd.Context(), true, false)
	},
}

var loadStcmCmd = &cobra.Command{
	Use:   "stcm",
	Short: "Reconcile source_to_concept_map",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLoad(cmd.Context(), false, true)
	},
}

var loadAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Reconcile vocabularies, then source_to_concept_map",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLoad(cmd.Context(), true, true)
	},
}

func init() {
	flags := loadCmd.PersistentFlags()
	flags.BoolVar(&dryRunLoad, "dry-run", false, "Plan and validate without writing")
	flags.BoolVar(&yesConfirm, "yes", false, "Auto-confirm dropping vocabularies no longer on disk (non-interactive)")
	flags.BoolVar(&keepAbsentStcm, "keep-absent-stcm", false, "Keep STCM rows of vocabularies missing from the version file")
	flags.BoolVar(&skipFetch, "no-fetch", false, "Do not download files from object storage first")
	flags.StringVar(&vocabDirFlag, "vocab-dir", "", "Directory of vocabulary files (overrides VOCAB_DIR)")
	flags.StringVar(&stcmDirFlag, "stcm-dir", "", "Directory of STCM files (overrides VOCAB_STCM_DIR)")

	loadCmd.AddCommand(loadVocabularyCmd, loadStcmCmd, loadAllCmd)
	RootCmd.AddCommand(loadCmd)
}

func runLoad(ctx context.Context, vocabularies, mappings bool) error {
	a, err := bootstrap(true)
	if err != nil {
		return err
	}
	defer a.close()

	if vocabDirFlag != "" {
		a.cfg.Vocab.Dir = vocabDirFlag
	}
	if stcmDirFlag != "" {
		a.cfg.Vocab.StcmDir = stcmDirFlag
	}
	if !skipFetch {
		if err := fetchAll(ctx, a); err != nil {
			return err
		}
	}

	opts := reconcile.ReconcileOptions{
		DryRun:      dryRunLoad,
		PruneAbsent: a.cfg.Reconcile.PruneAbsent && !keepAbsentStcm,
	}
	return reconcileFiles(ctx, a, vocabularies, mappings, opts)
}

// reconcileFiles runs the vocabulary reconciliation, then the STCM one. They are
// separate units of work; a failed STCM run leaves the committed vocabulary run in place.
func reconcileFiles(ctx context.Context, a *app, vocabularies, mappings bool, opts reconcile.ReconcileOptions) error {
	if vocabularies {
		plan, proceed, err := loadVocabularies(ctx, a, opts)
		if err != nil {
			return err
		}
		if !proceed {
			if mappings {
				a.log.Warn("Skipping STCM reconciliation, vocabularies were not reconciled")
			}
			return nil
		}
		if opts.DryRun {
			opts.PendingVocabularies = &plan.Vocabularies
		}
	}
	if mappings {
		if err := loadMappings(ctx, a, opts); err != nil {
			return err
		}
	}
	return nil
}

// loadVocabularies plans the vocabulary run and applies it unless this is a dry run.
// proceed is false when the user declined to drop vocabularies no longer on disk.
func loadVocabularies(ctx context.Context, a *app, opts reconcile.ReconcileOptions) (plan *vocabulary.Plan, proceed bool, err error) {
	src, err := source.New(a.cfg.Vocab.Dir)
	if err != nil {
		return nil, false, err
	}
	uow := reconcile.NewUnitOfWork()
	r := vocabulary.NewReconciler(src, store.New(a.db, uow, a.cfg.Store), a.log)

	plan, err = r.Plan(ctx)
	if err != nil {
		return nil, false, err
	}
	printVocabularyPlan(a.log, plan)

	if opts.DryRun {
		a.log.Info("Dry-run mode: No changes were made.")
		return plan, true, nil
	}
	if len(plan.Vocabularies.Unused) > 0 && !confirm(plan.Vocabularies.Unused.Sorted()) {
		a.log.Warn("Operation cancelled by user. No changes were made.")
		return plan, false, nil
	}

	if err := r.Apply(ctx, plan); err != nil {
		return nil, false, err
	}
	logCounts(a.log, uow)
	return plan, true, nil
}

func loadMappings(ctx context.Context, a *app, opts reconcile.ReconcileOptions) error {
	src, err := source.New(a.cfg.Vocab.StcmDir)
	if err != nil {
		return err
	}
	uow := reconcile.NewUnitOfWork()
	r := stcm.NewReconciler(src, store.New(a.db, uow, a.cfg.Store), a.cfg.Vocab.StcmVersionFile, a.log)

	if _, err := r.Run(ctx, opts); err != nil {
		return err
	}
	if !opts.DryRun {
		logCounts(a.log, uow)
	}
	return nil
}

// printVocabularyPlan prints the plan summary using the logger.
func printVocabularyPlan(l *zap.Logger, plan *vocabulary.Plan) {
	s := plan.Summary()

	l.Info("Vocabulary plan",
		zap.Strings("create", plan.Vocabularies.ToCreate.Sorted()),
		zap.Strings("update", plan.Vocabularies.ToUpdate.Sorted()),
		zap.Strings("drop", plan.Vocabularies.Unused.Sorted()),
		zap.Int("unchanged", s.VocabulariesUnchanged),
	)
	l.Info("Concept plan",
		zap.Int("classes_created", s.ClassesCreated),
		zap.Int("classes_renamed", s.ClassesRenamed),
		zap.Int("classes_dropped", s.ClassesDropped),
		zap.Int("concepts", s.Concepts),
		zap.Strings("files", plan.ConceptFiles),
		zap.Int("skipped_files", s.SkippedFiles),
	)
}

// confirmDestructiveAction prompts the user for confirmation or uses --yes flag.
func confirmDestructiveAction(dropped []string) bool {
	if yesConfirm {
		fmt.Println("\n✓ Auto-confirmed via --yes flag")
		return true
	}

	fmt.Printf("\n⚠️  Vocabularies %s are no longer on disk and will be dropped with their concepts.\n", strings.Join(dropped, ", "))
	fmt.Print("Type 'yes' to confirm: ")
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	return strings.TrimSpace(response) == "yes"
}
