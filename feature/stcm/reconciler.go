package stcm

import (
	"context"
	"fmt"
	"sort"

	"vocab-loader/core/logger"
	"vocab-loader/core/reconcile"
	"vocab-loader/core/source"
	"vocab-loader/core/store"
	"vocab-loader/feature/cdm/models"

	"go.uber.org/zap"
)

// Plan is the outcome of comparing the STCM version file with the version table.
type Plan struct {
	Versions reconcile.Diff `json:"versions"`

	// Drop holds the source vocabularies whose mapping and version rows are deleted:
	// every loaded vocabulary, plus the unused ones when pruning.
	Drop reconcile.Set `json:"drop"`

	Mappings    []models.SourceToConceptMap `json:"-"`
	NewVersions []models.StcmVersion        `json:"-"`

	Files        []string `json:"files"`
	SkippedFiles []string `json:"skipped_files"`

	// Unmapped counts rows with target_concept_id 0; they are read but never inserted.
	Unmapped int `json:"unmapped"`
}

// HasChanges reports whether applying the plan would write to the store.
func (p *Plan) HasChanges() bool {
	return len(p.Drop) > 0 || len(p.NewVersions) > 0
}

// Reconciler brings source_to_concept_map and its version table in line with a source
// directory holding a version file and mapping files.
type Reconciler struct {
	src         *source.Source
	store       *store.Store
	versionFile string
	log         *zap.Logger
}

// NewReconciler returns a reconciler reading src, whose version declarations live in
// the file named versionFile, and writing st.
func NewReconciler(src *source.Source, st *store.Store, versionFile string, l *zap.Logger) *Reconciler {
	runID := ""
	if uow := st.UnitOfWork(); uow != nil {
		runID = uow.RunID
	}
	return &Reconciler{
		src:         src,
		store:       st,
		versionFile: versionFile,
		log:         logger.WithRun(l, runID, "stcm"),
	}
}

// Run plans the reconciliation and, unless opts.DryRun is set, applies it.
func (r *Reconciler) Run(ctx context.Context, opts reconcile.ReconcileOptions) (*Plan, error) {
	r.log.Info("Planning STCM reconciliation", zap.String("dir", r.src.Dir()))

	plan, err := r.Plan(ctx, opts)
	if err != nil {
		return nil, err
	}

	r.log.Info("STCM plan",
		zap.Strings("to_load", plan.Versions.LoadSet().Sorted()),
		zap.Strings("to_drop", plan.Drop.Sorted()),
		zap.Int("unchanged", len(plan.Versions.Unchanged)),
		zap.Int("mappings", len(plan.Mappings)),
		zap.Int("unmapped", plan.Unmapped),
	)

	if opts.DryRun {
		r.log.Info("Dry run, no changes applied")
		return plan, nil
	}
	return plan, r.Apply(ctx, plan)
}

// Plan checks the preconditions, validates the version file and the eligible mapping
// files, and computes the changes. It never writes.
func (r *Reconciler) Plan(ctx context.Context, opts reconcile.ReconcileOptions) (*Plan, error) {
	tables := []string{
		models.Vocabulary{}.TableName(),
		models.SourceToConceptMap{}.TableName(),
		models.StcmVersion{}.TableName(),
	}
	for _, table := range tables {
		if !r.store.HasTable(table) {
			return nil, reconcile.NewConfigurationError(table,
				"table does not exist; run `vocab-loader schema create` first")
		}
	}

	f, err := r.src.File(r.versionFile)
	if err != nil {
		return nil, err
	}
	fr, err := source.ReadFile(f)
	if err != nil {
		return nil, err
	}
	declared, err := ValidateVersions(fr)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(declared))
	versions := make(map[string]string, len(declared))
	for _, v := range declared {
		ids = append(ids, v.SourceVocabularyID)
		versions[v.SourceVocabularyID] = v.StcmVersion
	}
	sort.Strings(ids)

	var vocabs []models.Vocabulary
	if err := r.store.FindIn(ctx, &vocabs, ColVocabularyID, ids); err != nil {
		return nil, err
	}
	knownVocabs := reconcile.NewSet()
	for _, v := range vocabs {
		knownVocabs.Add(v.VocabularyID)
	}
	if pending := opts.PendingVocabularies; pending != nil {
		loading := pending.LoadSet()
		for _, id := range ids {
			if loading.Has(id) {
				knownVocabs.Add(id)
			}
		}
		for id := range pending.Unused {
			delete(knownVocabs, id)
		}
	}
	if err := RequireKnownVocabularies(declared, knownVocabs); err != nil {
		return nil, err
	}

	var stored []models.StcmVersion
	if err := r.store.Find(ctx, &stored); err != nil {
		return nil, err
	}
	current := make(map[string]string, len(stored))
	for _, v := range stored {
		current[v.SourceVocabularyID] = v.StcmVersion
	}

	plan := &Plan{Versions: reconcile.ComputeDiff(current, versions)}
	load := plan.Versions.LoadSet()
	plan.Drop = load
	if opts.PruneAbsent {
		plan.Drop = load.Union(plan.Versions.Unused)
	} else if len(plan.Versions.Unused) > 0 {
		r.log.Info("Keeping STCM rows of vocabularies absent from the version file",
			zap.Strings("vocabulary_ids", plan.Versions.Unused.Sorted()))
	}
	for _, v := range declared {
		if load.Has(v.SourceVocabularyID) {
			plan.NewVersions = append(plan.NewVersions, v)
		}
	}

	if len(load) == 0 {
		if len(plan.Drop) == 0 {
			r.log.Info("No new STCM versions provided")
		}
		return plan, nil
	}

	known := reconcile.NewSet()
	for id := range current {
		known.Add(id)
	}
	for id := range versions {
		known.Add(id)
	}
	if err := r.planMappings(plan, load, known, knownVocabs); err != nil {
		return nil, err
	}
	return plan, nil
}

func (r *Reconciler) planMappings(plan *Plan, load, known, knownVocabs reconcile.Set) error {
	files, err := r.src.ListFiles(source.TableStcm)
	if err != nil {
		return err
	}
	toUpdate, knownLower := load.Lower(), known.Lower()
	var eligible []source.File
	for _, f := range files {
		if source.Eligible(f, source.TableStcm, toUpdate, knownLower) {
			eligible = append(eligible, f)
			plan.Files = append(plan.Files, f.Name)
			continue
		}
		plan.SkippedFiles = append(plan.SkippedFiles, f.Name)
		r.log.Info("Skipping STCM file, version is up to date", zap.String("file", f.Name))
	}
	if len(eligible) == 0 {
		r.log.Warn("No eligible STCM file for the updated vocabularies, their mappings will be empty",
			zap.Strings("vocabulary_ids", load.Sorted()))
		return nil
	}

	records, err := source.ReadFiles(eligible)
	if err != nil {
		return err
	}
	mappings, err := ValidateMappings(records, r.log)
	if err != nil {
		return err
	}

	outside := make(map[string]int)
	for _, m := range mappings {
		id := m.SourceVocabularyID
		switch {
		case m.TargetConceptID == 0:
			plan.Unmapped++
		case !load.Has(id):
			outside[id]++
		case !knownVocabs.Has(id):
			return reconcile.NewConfigurationError(id, "source vocabulary is not a known vocabulary")
		default:
			plan.Mappings = append(plan.Mappings, m)
		}
	}
	for id, n := range outside {
		r.log.Info("Skipping STCM rows of a vocabulary outside this run's update set",
			zap.String("source_vocabulary_id", id), zap.Int("rows", n))
	}
	return nil
}

// Apply deletes the mapping and version rows of the dropped vocabularies and inserts the
// new ones, in one transaction.
func (r *Reconciler) Apply(ctx context.Context, plan *Plan) error {
	if !plan.HasChanges() {
		return nil
	}

	drop := plan.Drop.Sorted()
	err := r.store.Atomic(ctx, func(tx *store.Store) error {
		if _, err := tx.DeleteIn(ctx, &models.SourceToConceptMap{}, ColSourceVocabularyID, drop); err != nil {
			return err
		}
		if _, err := tx.DeleteIn(ctx, &models.StcmVersion{}, ColSourceVocabularyID, drop); err != nil {
			return err
		}
		if _, err := tx.Insert(ctx, &plan.Mappings); err != nil {
			return err
		}
		if _, err := tx.Insert(ctx, &plan.NewVersions); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("STCM reconciliation rolled back: %w", err)
	}

	r.log.Info("STCM reconciliation applied",
		zap.Int("mappings_loaded", len(plan.Mappings)),
		zap.Int("versions_loaded", len(plan.NewVersions)),
	)
	return nil
}
