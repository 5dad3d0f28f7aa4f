package vocabulary

import (
	"context"
	"fmt"
	"strings"

	"vocab-loader/core/logger"
	"vocab-loader/core/reconcile"
	"vocab-loader/core/source"
	"vocab-loader/core/store"
	"vocab-loader/core/utils"
	"vocab-loader/feature/cdm/models"

	"go.uber.org/zap"
)

// Plan is the outcome of comparing the custom vocabularies on disk with the store.
// It holds everything Apply needs; nothing is re-read from disk afterwards.
type Plan struct {
	Vocabularies reconcile.Diff `json:"vocabularies"`
	Classes      reconcile.Diff `json:"concept_classes"`

	// ClassDrop is Classes.Unused minus the classes still referenced by concepts that
	// survive the run.
	ClassDrop reconcile.Set `json:"class_drop"`

	NewVocabularies []models.Vocabulary   `json:"-"`
	NewClasses      []models.ConceptClass `json:"-"`
	RenamedClasses  []models.ConceptClass `json:"-"`
	Concepts        []models.Concept      `json:"-"`

	ConceptFiles []string `json:"concept_files"`
	SkippedFiles []string `json:"skipped_files"`
}

// Summary counts the changes of a plan.
type Summary struct {
	VocabulariesCreated   int `json:"vocabularies_created"`
	VocabulariesUpdated   int `json:"vocabularies_updated"`
	VocabulariesUnchanged int `json:"vocabularies_unchanged"`
	VocabulariesDropped   int `json:"vocabularies_dropped"`
	ClassesCreated        int `json:"classes_created"`
	ClassesRenamed        int `json:"classes_renamed"`
	ClassesDropped        int `json:"classes_dropped"`
	Concepts              int `json:"concepts"`
	ConceptFiles          int `json:"concept_files"`
	SkippedFiles          int `json:"skipped_files"`
}

// HasChanges reports whether applying the plan would write to the store.
func (p *Plan) HasChanges() bool {
	return p.Vocabularies.HasChanges() ||
		len(p.NewClasses) > 0 || len(p.RenamedClasses) > 0 || len(p.ClassDrop) > 0
}

// Summary returns the change counts of the plan.
func (p *Plan) Summary() Summary {
	return Summary{
		VocabulariesCreated:   len(p.Vocabularies.ToCreate),
		VocabulariesUpdated:   len(p.Vocabularies.ToUpdate),
		VocabulariesUnchanged: len(p.Vocabularies.Unchanged),
		VocabulariesDropped:   len(p.Vocabularies.Unused),
		ClassesCreated:        len(p.NewClasses),
		ClassesRenamed:        len(p.RenamedClasses),
		ClassesDropped:        len(p.ClassDrop),
		Concepts:              len(p.Concepts),
		ConceptFiles:          len(p.ConceptFiles),
		SkippedFiles:          len(p.SkippedFiles),
	}
}

// Reconciler brings the custom vocabulary, concept_class and concept rows of the store
// in line with a source directory.
type Reconciler struct {
	src   *source.Source
	store *store.Store
	log   *zap.Logger
}

// NewReconciler returns a reconciler reading src and writing st.
func NewReconciler(src *source.Source, st *store.Store, l *zap.Logger) *Reconciler {
	runID := ""
	if uow := st.UnitOfWork(); uow != nil {
		runID = uow.RunID
	}
	return &Reconciler{src: src, store: st, log: logger.WithRun(l, runID, "vocabulary")}
}

// Run plans the reconciliation and, unless opts.DryRun is set, applies it.
func (r *Reconciler) Run(ctx context.Context, opts reconcile.ReconcileOptions) (*Plan, error) {
	r.log.Info("Planning vocabulary reconciliation", zap.String("dir", r.src.Dir()))

	plan, err := r.Plan(ctx)
	if err != nil {
		return nil, err
	}

	summary := plan.Summary()
	r.log.Info("Vocabulary plan",
		zap.Strings("to_create", plan.Vocabularies.ToCreate.Sorted()),
		zap.Strings("to_update", plan.Vocabularies.ToUpdate.Sorted()),
		zap.Strings("unused", plan.Vocabularies.Unused.Sorted()),
		zap.Int("unchanged", summary.VocabulariesUnchanged),
		zap.Int("classes_created", summary.ClassesCreated),
		zap.Int("classes_renamed", summary.ClassesRenamed),
		zap.Int("classes_dropped", summary.ClassesDropped),
		zap.Int("concepts", summary.Concepts),
	)

	if opts.DryRun {
		r.log.Info("Dry run, no changes applied")
		return plan, nil
	}
	return plan, r.Apply(ctx, plan)
}

// Plan reads the store and the source directory, validates every file it needs and
// computes the changes. It never writes.
func (r *Reconciler) Plan(ctx context.Context) (*Plan, error) {
	declared, err := r.declaredVocabularies()
	if err != nil {
		return nil, err
	}

	var stored []models.Vocabulary
	if err := r.store.Find(ctx, &stored, store.Eq(ColVocabularyConceptID, models.CustomConceptID)); err != nil {
		return nil, err
	}
	current := make(map[string]string, len(stored))
	for _, v := range stored {
		current[v.VocabularyID] = utils.ToString(v.VocabularyVersion)
	}
	versions := make(map[string]string, len(declared))
	for _, v := range declared {
		versions[v.VocabularyID] = utils.ToString(v.VocabularyVersion)
	}

	plan := &Plan{Vocabularies: reconcile.ComputeDiff(current, versions)}
	if err := r.requireCustom(ctx, &models.Vocabulary{}, ColVocabularyID, ColVocabularyConceptID, plan.Vocabularies.ToCreate); err != nil {
		return nil, err
	}

	load := plan.Vocabularies.LoadSet()
	for _, v := range declared {
		if load.Has(v.VocabularyID) {
			plan.NewVocabularies = append(plan.NewVocabularies, v)
		}
	}

	knownClasses, err := r.planClasses(ctx, plan)
	if err != nil {
		return nil, err
	}

	known := reconcile.NewSet()
	for id := range current {
		known.Add(id)
	}
	for id := range versions {
		known.Add(id)
	}
	if err := r.planConcepts(plan, known, knownClasses); err != nil {
		return nil, err
	}
	return plan, nil
}

func (r *Reconciler) declaredVocabularies() ([]models.Vocabulary, error) {
	files, err := r.src.ListFiles(source.TableVocabulary)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		// Reconciling against an empty declaration would drop every custom vocabulary
		return nil, reconcile.NewConfigurationError(r.src.Dir(),
			"no %s file found (expected %s.tsv or <prefix>_%s.tsv)",
			source.TableVocabulary, source.TableVocabulary, source.TableVocabulary)
	}
	records, err := source.ReadFiles(files)
	if err != nil {
		return nil, err
	}
	return ValidateVocabularies(records, r.log)
}

// planClasses diffs the concept classes and returns the class IDs concepts may reference
// once the plan is applied.
func (r *Reconciler) planClasses(ctx context.Context, plan *Plan) (reconcile.Set, error) {
	plan.Classes = reconcile.ComputeDiff(nil, nil)
	plan.ClassDrop = reconcile.NewSet()

	var all []models.ConceptClass
	if err := r.store.Find(ctx, &all); err != nil {
		return nil, err
	}

	files, err := r.src.ListFiles(source.TableConceptClass)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		r.log.Info("No concept_class file found, concept classes left unchanged")
		known := reconcile.NewSet()
		for _, c := range all {
			known.Add(c.ConceptClassID)
		}
		return known, nil
	}

	records, err := source.ReadFiles(files)
	if err != nil {
		return nil, err
	}
	declared, err := ValidateConceptClasses(records)
	if err != nil {
		return nil, err
	}

	current := make(map[string]string)
	for _, c := range all {
		if c.ConceptClassConceptID == models.CustomConceptID {
			current[c.ConceptClassID] = c.ConceptClassName
		}
	}
	names := make(map[string]string, len(declared))
	for _, c := range declared {
		names[c.ConceptClassID] = c.ConceptClassName
	}

	plan.Classes = reconcile.ComputeDiff(current, names)
	if err := r.requireCustom(ctx, &models.ConceptClass{}, ColConceptClassID, ColConceptClassConceptID, plan.Classes.ToCreate); err != nil {
		return nil, err
	}

	for _, c := range declared {
		switch {
		case plan.Classes.ToCreate.Has(c.ConceptClassID):
			plan.NewClasses = append(plan.NewClasses, c)
		case plan.Classes.ToUpdate.Has(c.ConceptClassID):
			plan.RenamedClasses = append(plan.RenamedClasses, c)
		}
	}

	// Classes are updated in place, so only unused ones are dropped, and only when no
	// surviving concept still points at them.
	if len(plan.Classes.Unused) > 0 {
		var refs []models.Concept
		if err := r.store.FindIn(ctx, &refs, ColConceptClassID, plan.Classes.Unused.Sorted()); err != nil {
			return nil, err
		}
		drop := plan.Vocabularies.DropSet()
		referenced := reconcile.NewSet()
		for _, c := range refs {
			if !drop.Has(c.VocabularyID) {
				referenced.Add(c.ConceptClassID)
			}
		}
		for id := range plan.Classes.Unused {
			if referenced.Has(id) {
				r.log.Warn("Concept class is no longer declared but still used by concepts, keeping it",
					zap.String("concept_class_id", id))
				continue
			}
			plan.ClassDrop.Add(id)
		}
	}

	known := reconcile.NewSet()
	for _, c := range all {
		if !plan.ClassDrop.Has(c.ConceptClassID) {
			known.Add(c.ConceptClassID)
		}
	}
	for id := range names {
		known.Add(id)
	}
	return known, nil
}

// planConcepts reads the eligible concept files and keeps the rows of vocabularies in
// the load set.
func (r *Reconciler) planConcepts(plan *Plan, known, knownClasses reconcile.Set) error {
	load := plan.Vocabularies.LoadSet()
	if len(load) == 0 {
		return nil
	}

	files, err := r.src.ListFiles(source.TableConcept)
	if err != nil {
		return err
	}
	toUpdate, knownLower := load.Lower(), known.Lower()
	var eligible []source.File
	for _, f := range files {
		if source.Eligible(f, source.TableConcept, toUpdate, knownLower) {
			eligible = append(eligible, f)
			plan.ConceptFiles = append(plan.ConceptFiles, f.Name)
			continue
		}
		plan.SkippedFiles = append(plan.SkippedFiles, f.Name)
		r.log.Info("Skipping concept file, vocabulary is up to date", zap.String("file", f.Name))
	}
	if len(eligible) == 0 {
		return reconcile.NewConfigurationError(r.src.Dir(),
			"vocabularies %s must be loaded but no eligible concept file was found (expected <vocabulary_id>_concept.tsv or concept.tsv)",
			strings.Join(load.Sorted(), ", "))
	}

	records, err := source.ReadFiles(eligible)
	if err != nil {
		return err
	}
	concepts, err := ValidateConcepts(records, knownClasses, r.log)
	if err != nil {
		return err
	}

	seen := reconcile.NewSet()
	skipped := 0
	for _, c := range concepts {
		if !load.Has(c.VocabularyID) {
			skipped++
			continue
		}
		seen.Add(c.VocabularyID)
		plan.Concepts = append(plan.Concepts, c)
	}
	if skipped > 0 {
		r.log.Info("Skipped concept rows of vocabularies not being loaded", zap.Int("rows", skipped))
	}
	for _, id := range load.Sorted() {
		if !seen.Has(id) {
			r.log.Warn("Vocabulary has no concepts in the eligible files", zap.String("vocabulary_id", id))
		}
	}
	return nil
}

// requireCustom fails when an identifier about to be created already exists as a
// standard (non-custom) row, which the loader must never touch.
func (r *Reconciler) requireCustom(ctx context.Context, model any, idColumn, conceptColumn string, ids reconcile.Set) error {
	if len(ids) == 0 {
		return nil
	}
	var clashes []string
	switch model.(type) {
	case *models.Vocabulary:
		var rows []models.Vocabulary
		if err := r.store.FindIn(ctx, &rows, idColumn, ids.Sorted(), notCustom(conceptColumn)); err != nil {
			return err
		}
		for _, row := range rows {
			clashes = append(clashes, row.VocabularyID)
		}
	case *models.ConceptClass:
		var rows []models.ConceptClass
		if err := r.store.FindIn(ctx, &rows, idColumn, ids.Sorted(), notCustom(conceptColumn)); err != nil {
			return err
		}
		for _, row := range rows {
			clashes = append(clashes, row.ConceptClassID)
		}
	default:
		return fmt.Errorf("unsupported model %T", model)
	}
	if len(clashes) > 0 {
		return reconcile.NewConfigurationError(idColumn,
			"%s already exist as standard rows (%s != %d) and cannot be loaded as custom",
			strings.Join(clashes, ", "), conceptColumn, models.CustomConceptID)
	}
	return nil
}

func notCustom(column string) store.Predicate {
	return store.Predicate{Query: column + " <> ?", Args: []any{models.CustomConceptID}}
}

// Apply writes the plan in one transaction. Drops run leaf-first (concepts, classes,
// vocabularies), then loads run parent-first. Any failure rolls the whole family back.
func (r *Reconciler) Apply(ctx context.Context, plan *Plan) error {
	if !plan.HasChanges() {
		r.log.Info("Custom vocabularies are up to date")
		return nil
	}

	err := r.store.Atomic(ctx, func(tx *store.Store) error {
		drop := plan.Vocabularies.DropSet().Sorted()

		n, err := tx.DeleteIn(ctx, &models.Concept{}, ColVocabularyID, drop)
		if err != nil {
			return err
		}
		r.log.Debug("Dropped concepts", zap.Int64("rows", n))

		if _, err := tx.DeleteIn(ctx, &models.ConceptClass{}, ColConceptClassID, plan.ClassDrop.Sorted(),
			store.Eq(ColConceptClassConceptID, models.CustomConceptID)); err != nil {
			return err
		}
		if _, err := tx.DeleteIn(ctx, &models.Vocabulary{}, ColVocabularyID, drop,
			store.Eq(ColVocabularyConceptID, models.CustomConceptID)); err != nil {
			return err
		}

		for _, c := range plan.RenamedClasses {
			if _, err := tx.Update(ctx, &models.ConceptClass{},
				map[string]any{ColConceptClassName: c.ConceptClassName},
				store.Eq(ColConceptClassID, c.ConceptClassID),
				store.Eq(ColConceptClassConceptID, models.CustomConceptID)); err != nil {
				return err
			}
		}

		if _, err := tx.Insert(ctx, &plan.NewClasses); err != nil {
			return err
		}
		if _, err := tx.Insert(ctx, &plan.NewVocabularies); err != nil {
			return err
		}
		if _, err := tx.Insert(ctx, &plan.Concepts); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("vocabulary reconciliation rolled back: %w", err)
	}

	r.log.Info("Vocabulary reconciliation applied",
		zap.Int("vocabularies_loaded", len(plan.NewVocabularies)),
		zap.Int("concepts_loaded", len(plan.Concepts)),
	)
	return nil
}
