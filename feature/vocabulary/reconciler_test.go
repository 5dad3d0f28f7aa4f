package vocabulary

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vocab-loader/core/reconcile"
	"vocab-loader/core/source"
	"vocab-loader/core/store"
	"vocab-loader/feature/cdm/models"
	"vocab-loader/feature/cdm/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	vocabHeader   = "vocabulary_id\tvocabulary_name\tvocabulary_reference\tvocabulary_version\tvocabulary_concept_id"
	classHeader   = "concept_class_id\tconcept_class_name\tconcept_class_concept_id"
	conceptHeader = "concept_id\tconcept_name\tdomain_id\tvocabulary_id\tconcept_class_id\tstandard_concept\tconcept_code\tvalid_start_date\tvalid_end_date\tinvalid_reason"
)

type fixture struct {
	t   *testing.T
	db  *gorm.DB
	dir string
}

func newFixture(t *testing.T) *fixture {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, schema.Create(db))
	return &fixture{t: t, db: db, dir: t.TempDir()}
}

func (f *fixture) write(name string, lines ...string) {
	err := os.WriteFile(filepath.Join(f.dir, name), []byte(strings.Join(lines, "\n")+"\n"), 0o644)
	require.NoError(f.t, err)
}

func (f *fixture) remove(name string) {
	require.NoError(f.t, os.Remove(filepath.Join(f.dir, name)))
}

func (f *fixture) run(l *zap.Logger, opts reconcile.ReconcileOptions) (*Plan, *reconcile.UnitOfWork, error) {
	src, err := source.New(f.dir)
	require.NoError(f.t, err)
	uow := reconcile.NewUnitOfWork()
	r := NewReconciler(src, store.New(f.db, uow, store.Config{}), l)
	plan, err := r.Run(context.Background(), opts)
	return plan, uow, err
}

func (f *fixture) mustRun() (*Plan, *reconcile.UnitOfWork) {
	plan, uow, err := f.run(zap.NewNop(), reconcile.ReconcileOptions{})
	require.NoError(f.t, err)
	return plan, uow
}

func (f *fixture) vocabularies() map[string]string {
	var rows []models.Vocabulary
	require.NoError(f.t, f.db.Find(&rows).Error)
	out := make(map[string]string, len(rows))
	for _, v := range rows {
		version := ""
		if v.VocabularyVersion != nil {
			version = *v.VocabularyVersion
		}
		out[v.VocabularyID] = version
	}
	return out
}

func (f *fixture) conceptIDs(vocabularyID string) []int64 {
	var ids []int64
	require.NoError(f.t, f.db.Model(&models.Concept{}).
		Where("vocabulary_id = ?", vocabularyID).
		Order("concept_id").
		Pluck("concept_id", &ids).Error)
	return ids
}

func vocabRow(id, version string) string {
	return fmt.Sprintf("%s\t%s vocabulary\t\t%s\t0", id, id, version)
}

func conceptRow(id int64, vocabularyID string) string {
	return fmt.Sprintf("%d\tConcept %d\tCondition\t%s\tCustom\tS\tC%d\t20200101\t20991231\t", id, id, vocabularyID, id)
}

func (f *fixture) writeClasses(name string) {
	f.write("concept_class.tsv", classHeader, "Custom\t"+name+"\t0")
}

func TestRun_ScenarioA_CreateIntoEmptyStore(t *testing.T) {
	f := newFixture(t)
	f.write("vocabulary.tsv", vocabHeader, vocabRow("ICD10", "1.0"))
	f.writeClasses("Custom class")
	f.write("icd10_concept.tsv", conceptHeader, conceptRow(2000000001, "ICD10"), conceptRow(2000000002, "ICD10"))

	plan, uow := f.mustRun()

	assert.Equal(t, []string{"ICD10"}, plan.Vocabularies.ToCreate.Sorted())
	assert.Empty(t, plan.Vocabularies.ToUpdate)
	assert.Equal(t, map[string]string{"ICD10": "1.0"}, f.vocabularies())
	assert.Equal(t, []int64{2000000001, 2000000002}, f.conceptIDs("ICD10"))

	assert.Equal(t, int64(1), uow.Counts("vocabulary").Inserted)
	assert.Equal(t, int64(1), uow.Counts("concept_class").Inserted)
	assert.Equal(t, int64(2), uow.Counts("concept").Inserted)
}

func TestRun_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.write("vocabulary.tsv", vocabHeader, vocabRow("ICD10", "1.0"))
	f.writeClasses("Custom class")
	f.write("icd10_concept.tsv", conceptHeader, conceptRow(2000000001, "ICD10"))
	f.mustRun()

	plan, uow := f.mustRun()

	assert.False(t, plan.HasChanges())
	assert.Equal(t, []string{"ICD10"}, plan.Vocabularies.Unchanged.Sorted())
	assert.Equal(t, reconcile.TableCounts{}, uow.Total())
	assert.Equal(t, []int64{2000000001}, f.conceptIDs("ICD10"))
}

func TestRun_ScenarioB_UpdateReplacesConcepts(t *testing.T) {
	f := newFixture(t)
	f.write("vocabulary.tsv", vocabHeader, vocabRow("ICD10", "1.0"))
	f.writeClasses("Custom class")
	f.write("icd10_concept.tsv", conceptHeader, conceptRow(2000000001, "ICD10"), conceptRow(2000000002, "ICD10"))
	f.mustRun()

	f.write("vocabulary.tsv", vocabHeader, vocabRow("ICD10", "2.0"))
	f.write("icd10_concept.tsv", conceptHeader, conceptRow(2000000003, "ICD10"))
	plan, uow := f.mustRun()

	assert.Equal(t, []string{"ICD10"}, plan.Vocabularies.ToUpdate.Sorted())
	assert.Equal(t, map[string]string{"ICD10": "2.0"}, f.vocabularies())
	assert.Equal(t, []int64{2000000003}, f.conceptIDs("ICD10"))
	assert.Equal(t, reconcile.TableCounts{Deleted: 2, Inserted: 1}, uow.Counts("concept"))
	assert.Equal(t, reconcile.TableCounts{Deleted: 1, Inserted: 1}, uow.Counts("vocabulary"))
}

func TestRun_ScenarioC_UnusedVocabularyDropped(t *testing.T) {
	f := newFixture(t)
	f.write("vocabulary.tsv", vocabHeader, vocabRow("ICD10", "1.0"), vocabRow("SNOMED", "1.0"))
	f.writeClasses("Custom class")
	f.write("icd10_concept.tsv", conceptHeader, conceptRow(2000000001, "ICD10"))
	f.write("snomed_concept.tsv", conceptHeader, conceptRow(2000000010, "SNOMED"))
	f.mustRun()

	f.write("vocabulary.tsv", vocabHeader, vocabRow("SNOMED", "1.0"))
	f.remove("icd10_concept.tsv")
	plan, _ := f.mustRun()

	assert.Equal(t, []string{"ICD10"}, plan.Vocabularies.Unused.Sorted())
	assert.Equal(t, []string{"SNOMED"}, plan.Vocabularies.Unchanged.Sorted())
	assert.Equal(t, map[string]string{"SNOMED": "1.0"}, f.vocabularies())
	assert.Empty(t, f.conceptIDs("ICD10"))
	assert.Equal(t, []int64{2000000010}, f.conceptIDs("SNOMED"))
}

func TestRun_SkipsFilesOfUnchangedVocabularies(t *testing.T) {
	f := newFixture(t)
	f.write("vocabulary.tsv", vocabHeader, vocabRow("ICD10", "1.0"), vocabRow("SNOMED", "1.0"))
	f.writeClasses("Custom class")
	f.write("icd10_concept.tsv", conceptHeader, conceptRow(2000000001, "ICD10"))
	f.write("snomed_concept.tsv", conceptHeader, conceptRow(2000000010, "SNOMED"))
	f.mustRun()

	f.write("vocabulary.tsv", vocabHeader, vocabRow("ICD10", "2.0"), vocabRow("SNOMED", "1.0"))
	// A broken file for an unchanged vocabulary is never parsed
	f.write("snomed_concept.tsv", conceptHeader, "not-a-number\t\t\t\t\t\t\t\t\t")
	plan, _ := f.mustRun()

	assert.Equal(t, []string{"icd10_concept.tsv"}, plan.ConceptFiles)
	assert.Equal(t, []string{"snomed_concept.tsv"}, plan.SkippedFiles)
	assert.Equal(t, []int64{2000000010}, f.conceptIDs("SNOMED"))
}

func TestRun_GenericFileRowsFilteredByLoadSet(t *testing.T) {
	f := newFixture(t)
	f.write("vocabulary.tsv", vocabHeader, vocabRow("ICD10", "1.0"), vocabRow("SNOMED", "1.0"))
	f.writeClasses("Custom class")
	f.write("concept.tsv", conceptHeader, conceptRow(2000000001, "ICD10"), conceptRow(2000000010, "SNOMED"))
	f.mustRun()

	f.write("vocabulary.tsv", vocabHeader, vocabRow("ICD10", "2.0"), vocabRow("SNOMED", "1.0"))
	f.write("concept.tsv", conceptHeader, conceptRow(2000000002, "ICD10"), conceptRow(2000000010, "SNOMED"))
	plan, uow := f.mustRun()

	assert.Equal(t, []string{"concept.tsv"}, plan.ConceptFiles)
	require.Len(t, plan.Concepts, 1)
	assert.Equal(t, int64(2000000002), plan.Concepts[0].ConceptID)
	assert.Equal(t, int64(1), uow.Counts("concept").Inserted)
	assert.Equal(t, []int64{2000000010}, f.conceptIDs("SNOMED"))
}

func TestRun_StandardVocabulariesUntouched(t *testing.T) {
	f := newFixture(t)
	std := models.Vocabulary{VocabularyID: "LOINC", VocabularyName: "LOINC", VocabularyConceptID: 44819102}
	require.NoError(t, f.db.Create(&std).Error)
	require.NoError(t, f.db.Create(&models.ConceptClass{ConceptClassID: "Lab Test", ConceptClassName: "Lab Test", ConceptClassConceptID: 44819233}).Error)

	f.write("vocabulary.tsv", vocabHeader, vocabRow("ICD10", "1.0"))
	f.writeClasses("Custom class")
	f.write("icd10_concept.tsv", conceptHeader, conceptRow(2000000001, "ICD10"))
	plan, _ := f.mustRun()

	// LOINC is not custom, so it is neither unused nor dropped
	assert.Empty(t, plan.Vocabularies.Unused)
	assert.Empty(t, plan.ClassDrop)
	assert.Contains(t, f.vocabularies(), "LOINC")
}

func TestRun_CustomIDClashingWithStandard(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Create(&models.Vocabulary{VocabularyID: "LOINC", VocabularyName: "LOINC", VocabularyConceptID: 44819102}).Error)

	f.write("vocabulary.tsv", vocabHeader, vocabRow("LOINC", "1.0"))
	f.write("loinc_concept.tsv", conceptHeader, conceptRow(2000000001, "LOINC"))
	_, _, err := f.run(zap.NewNop(), reconcile.ReconcileOptions{})

	require.ErrorIs(t, err, reconcile.ErrConfiguration)
	assert.Contains(t, err.Error(), "LOINC")
}

func TestRun_ConceptIDFloor(t *testing.T) {
	f := newFixture(t)
	f.write("vocabulary.tsv", vocabHeader, vocabRow("ICD10", "1.0"))
	f.writeClasses("Custom class")
	f.write("icd10_concept.tsv", conceptHeader, conceptRow(1999999999, "ICD10"))
	f.write("concept.tsv", conceptHeader, conceptRow(2000000005, "ICD10"))

	_, uow, err := f.run(zap.NewNop(), reconcile.ReconcileOptions{})

	require.ErrorIs(t, err, reconcile.ErrDataQuality)
	assert.Contains(t, err.Error(), "1999999999")
	assert.Equal(t, reconcile.TableCounts{}, uow.Total())
	assert.Empty(t, f.vocabularies())
	assert.Empty(t, f.conceptIDs("ICD10"))
}

func TestRun_DuplicateVocabularyAcrossFiles(t *testing.T) {
	f := newFixture(t)
	f.write("vocabulary.tsv", vocabHeader, vocabRow("ICD10", "1.0"))
	f.write("extra_vocabulary.tsv", vocabHeader, vocabRow("ICD10", "1.1"))
	f.write("icd10_concept.tsv", conceptHeader, conceptRow(2000000001, "ICD10"))

	_, _, err := f.run(zap.NewNop(), reconcile.ReconcileOptions{})

	var dq *reconcile.DataQualityError
	require.ErrorAs(t, err, &dq)
	assert.Equal(t, []string{"extra_vocabulary.tsv", "vocabulary.tsv"}, dq.Files())
	assert.Contains(t, err.Error(), "duplicated across one or multiple files")
	assert.Empty(t, f.vocabularies())
}

func TestRun_NoEligibleConceptFiles(t *testing.T) {
	f := newFixture(t)
	f.write("vocabulary.tsv", vocabHeader, vocabRow("OTHER", "1.0"))
	f.writeClasses("Custom class")
	f.write("other_concept.tsv", conceptHeader, conceptRow(2000000001, "OTHER"))
	f.mustRun()

	f.write("vocabulary.tsv", vocabHeader, vocabRow("OTHER", "1.0"), vocabRow("NEWV", "1.0"))
	_, uow, err := f.run(zap.NewNop(), reconcile.ReconcileOptions{})

	require.ErrorIs(t, err, reconcile.ErrConfiguration)
	assert.Contains(t, err.Error(), "NEWV")
	assert.Contains(t, err.Error(), "no eligible concept file")
	assert.Equal(t, reconcile.TableCounts{}, uow.Total())
	assert.NotContains(t, f.vocabularies(), "NEWV")
}

func TestRun_NoVocabularyFiles(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.run(zap.NewNop(), reconcile.ReconcileOptions{})
	require.ErrorIs(t, err, reconcile.ErrConfiguration)
}

func TestRun_DryRun(t *testing.T) {
	f := newFixture(t)
	f.write("vocabulary.tsv", vocabHeader, vocabRow("ICD10", "1.0"))
	f.writeClasses("Custom class")
	f.write("icd10_concept.tsv", conceptHeader, conceptRow(2000000001, "ICD10"))

	plan, uow, err := f.run(zap.NewNop(), reconcile.ReconcileOptions{DryRun: true})
	require.NoError(t, err)

	assert.True(t, plan.HasChanges())
	assert.Equal(t, 1, plan.Summary().Concepts)
	assert.Equal(t, reconcile.TableCounts{}, uow.Total())
	assert.Empty(t, f.vocabularies())
}

func TestRun_ClassRenamedInPlace(t *testing.T) {
	f := newFixture(t)
	f.write("vocabulary.tsv", vocabHeader, vocabRow("ICD10", "1.0"))
	f.writeClasses("Custom class")
	f.write("icd10_concept.tsv", conceptHeader, conceptRow(2000000001, "ICD10"))
	f.mustRun()

	f.writeClasses("Renamed class")
	plan, uow := f.mustRun()

	assert.Equal(t, []string{"Custom"}, plan.Classes.ToUpdate.Sorted())
	assert.Equal(t, 1, plan.Summary().ClassesRenamed)
	assert.Equal(t, int64(1), uow.Counts("concept_class").Updated)

	var class models.ConceptClass
	require.NoError(t, f.db.First(&class, "concept_class_id = ?", "Custom").Error)
	assert.Equal(t, "Renamed class", class.ConceptClassName)
	// Concepts of the unchanged vocabulary are kept
	assert.Equal(t, []int64{2000000001}, f.conceptIDs("ICD10"))
}

func TestRun_UnusedClassStillReferencedIsKept(t *testing.T) {
	f := newFixture(t)
	f.write("vocabulary.tsv", vocabHeader, vocabRow("ICD10", "1.0"))
	f.writeClasses("Custom class")
	f.write("icd10_concept.tsv", conceptHeader, conceptRow(2000000001, "ICD10"))
	f.mustRun()

	f.write("concept_class.tsv", classHeader, "Other\tOther class\t0")
	core, logs := observer.New(zapcore.InfoLevel)
	plan, _, err := f.run(zap.New(core), reconcile.ReconcileOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"Custom"}, plan.Classes.Unused.Sorted())
	assert.Empty(t, plan.ClassDrop)
	assert.Equal(t, 1, logs.FilterMessageSnippet("still used by concepts").Len())
}

func TestRun_UnknownConceptClass(t *testing.T) {
	f := newFixture(t)
	f.write("vocabulary.tsv", vocabHeader, vocabRow("ICD10", "1.0"))
	f.write("icd10_concept.tsv", conceptHeader, conceptRow(2000000001, "ICD10"))

	_, _, err := f.run(zap.NewNop(), reconcile.ReconcileOptions{})

	require.ErrorIs(t, err, reconcile.ErrDataQuality)
	assert.Contains(t, err.Error(), `concept_class_id "Custom" is not a known concept class`)
}

func TestRun_StoreFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Create(&models.Vocabulary{VocabularyID: "STD", VocabularyName: "Standard", VocabularyConceptID: 1}).Error)
	require.NoError(t, f.db.Exec(
		"INSERT INTO concept (concept_id, concept_name, domain_id, vocabulary_id, concept_class_id, concept_code, valid_start_date, valid_end_date) VALUES (?, 'x', 'x', 'STD', 'Custom', 'x', '2020-01-01', '2099-12-31')",
		2000000001).Error)

	f.write("vocabulary.tsv", vocabHeader, vocabRow("ICD10", "1.0"))
	f.writeClasses("Custom class")
	f.write("icd10_concept.tsv", conceptHeader, conceptRow(2000000001, "ICD10"))

	_, uow, err := f.run(zap.NewNop(), reconcile.ReconcileOptions{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rolled back")
	assert.Equal(t, reconcile.TableCounts{}, uow.Total())
	assert.NotContains(t, f.vocabularies(), "ICD10")
	var classes int64
	require.NoError(t, f.db.Model(&models.ConceptClass{}).Count(&classes).Error)
	assert.Zero(t, classes)
}

func TestRun_PrefixMismatchWarning(t *testing.T) {
	f := newFixture(t)
	f.write("vocabulary.tsv", vocabHeader, vocabRow("ICD10", "1.0"), vocabRow("SNOMED", "1.0"))
	f.writeClasses("Custom class")
	f.write("icd10_concept.tsv", conceptHeader, conceptRow(2000000001, "ICD10"), conceptRow(2000000002, "SNOMED"))

	core, logs := observer.New(zapcore.WarnLevel)
	_, _, err := f.run(zap.New(core), reconcile.ReconcileOptions{})
	require.NoError(t, err)

	warnings := logs.FilterMessageSnippet("prefix does not match").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, "icd10_concept.tsv", warnings[0].ContextMap()["file"])
	assert.Equal(t, []int64{2000000002}, f.conceptIDs("SNOMED"))
}
