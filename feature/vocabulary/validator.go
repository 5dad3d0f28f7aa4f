package vocabulary

import (
	"errors"
	"strconv"
	"time"

	"vocab-loader/core/reconcile"
	"vocab-loader/core/source"
	"vocab-loader/core/utils"
	"vocab-loader/feature/cdm/models"

	"go.uber.org/zap"
)

// Columns of the vocabulary, concept_class and concept files.
const (
	ColVocabularyID        = "vocabulary_id"
	ColVocabularyName      = "vocabulary_name"
	ColVocabularyReference = "vocabulary_reference"
	ColVocabularyVersion   = "vocabulary_version"
	ColVocabularyConceptID = "vocabulary_concept_id"

	ColConceptClassID        = "concept_class_id"
	ColConceptClassName      = "concept_class_name"
	ColConceptClassConceptID = "concept_class_concept_id"

	ColConceptID       = "concept_id"
	ColConceptName     = "concept_name"
	ColDomainID        = "domain_id"
	ColStandardConcept = "standard_concept"
	ColConceptCode     = "concept_code"
	ColValidStartDate  = "valid_start_date"
	ColValidEndDate    = "valid_end_date"
	ColInvalidReason   = "invalid_reason"
)

var customConceptID = strconv.FormatInt(models.CustomConceptID, 10)

var errEmpty = errors.New("empty value")

// ValidateVocabularies checks every vocabulary row of files and returns the parsed rows.
// All violations across all files are returned together as one *reconcile.DataQualityError.
func ValidateVocabularies(files []source.FileRecords, l *zap.Logger) ([]models.Vocabulary, error) {
	v := reconcile.NewViolations(source.TableVocabulary)
	dups := reconcile.NewDuplicateTracker(ColVocabularyID)
	var out []models.Vocabulary

	for _, fr := range files {
		if !requireColumns(v, fr, ColVocabularyID, ColVocabularyName, ColVocabularyVersion, ColVocabularyConceptID) {
			continue
		}
		ids := make([]string, 0, len(fr.Records))
		for _, rec := range fr.Records {
			id := rec.Get(ColVocabularyID)
			requireValues(v, fr.File, rec, ColVocabularyID, ColVocabularyName)
			if c := rec.Get(ColVocabularyConceptID); c != customConceptID {
				v.Addf(fr.File.Name, rec.Line, "%s must be %s for a custom vocabulary, got %q",
					ColVocabularyConceptID, customConceptID, c)
			}
			if id == "" {
				continue
			}
			dups.See(id, fr.File.Name, rec.Line)
			ids = append(ids, id)
			out = append(out, models.Vocabulary{
				VocabularyID:        id,
				VocabularyName:      rec.Get(ColVocabularyName),
				VocabularyReference: utils.ToOptionalString(rec.Get(ColVocabularyReference)),
				VocabularyVersion:   utils.ToOptionalString(rec.Get(ColVocabularyVersion)),
				VocabularyConceptID: models.CustomConceptID,
			})
		}
		warnPrefixMismatch(l, fr.File, source.TableVocabulary, ids)
	}

	dups.Report(v)
	if err := v.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ValidateConceptClasses checks every concept class row of files and returns the parsed rows.
func ValidateConceptClasses(files []source.FileRecords) ([]models.ConceptClass, error) {
	v := reconcile.NewViolations(source.TableConceptClass)
	dups := reconcile.NewDuplicateTracker(ColConceptClassID)
	var out []models.ConceptClass

	for _, fr := range files {
		if !requireColumns(v, fr, ColConceptClassID, ColConceptClassName, ColConceptClassConceptID) {
			continue
		}
		for _, rec := range fr.Records {
			id := rec.Get(ColConceptClassID)
			requireValues(v, fr.File, rec, ColConceptClassID, ColConceptClassName)
			if c := rec.Get(ColConceptClassConceptID); c != customConceptID {
				v.Addf(fr.File.Name, rec.Line, "%s must be %s for a custom concept class, got %q",
					ColConceptClassConceptID, customConceptID, c)
			}
			if id == "" {
				continue
			}
			dups.See(id, fr.File.Name, rec.Line)
			out = append(out, models.ConceptClass{
				ConceptClassID:        id,
				ConceptClassName:      rec.Get(ColConceptClassName),
				ConceptClassConceptID: models.CustomConceptID,
			})
		}
	}

	dups.Report(v)
	if err := v.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ValidateConcepts checks every concept row of files and returns the parsed rows.
// concept_id must be an integer in the custom range and unique across the whole batch.
// When knownClasses is non-nil, every concept_class_id must belong to it.
func ValidateConcepts(files []source.FileRecords, knownClasses reconcile.Set, l *zap.Logger) ([]models.Concept, error) {
	v := reconcile.NewViolations(source.TableConcept)
	dups := reconcile.NewDuplicateTracker(ColConceptID)
	var out []models.Concept

	for _, fr := range files {
		if !requireColumns(v, fr, ColConceptID, ColConceptName, ColDomainID, ColVocabularyID,
			ColConceptClassID, ColConceptCode, ColValidStartDate, ColValidEndDate) {
			continue
		}
		var vocabIDs []string
		for _, rec := range fr.Records {
			ok := requireValues(v, fr.File, rec, ColConceptName, ColConceptCode, ColVocabularyID,
				ColConceptClassID, ColDomainID, ColValidStartDate, ColValidEndDate)

			raw := rec.Get(ColConceptID)
			id, err := utils.ToInt64(raw)
			switch {
			case err != nil:
				v.Addf(fr.File.Name, rec.Line, "%s: %v", ColConceptID, err)
				ok = false
			case id < models.MinCustomConceptID:
				v.Addf(fr.File.Name, rec.Line, "%s %d is below the custom range (must be >= %d)",
					ColConceptID, id, models.MinCustomConceptID)
				ok = false
			default:
				dups.See(strconv.FormatInt(id, 10), fr.File.Name, rec.Line)
			}

			start, err := parseDate(v, fr.File, rec, ColValidStartDate)
			ok = ok && err == nil
			end, err := parseDate(v, fr.File, rec, ColValidEndDate)
			ok = ok && err == nil

			for _, col := range []string{ColStandardConcept, ColInvalidReason} {
				if val := rec.Get(col); len(val) > 1 {
					v.Addf(fr.File.Name, rec.Line, "%s must be a single character, got %q", col, val)
					ok = false
				}
			}

			class := rec.Get(ColConceptClassID)
			if knownClasses != nil && class != "" && !knownClasses.Has(class) {
				v.Addf(fr.File.Name, rec.Line, "%s %q is not a known concept class", ColConceptClassID, class)
				ok = false
			}

			if vid := rec.Get(ColVocabularyID); vid != "" {
				vocabIDs = append(vocabIDs, vid)
			}
			if !ok {
				continue
			}
			out = append(out, models.Concept{
				ConceptID:       id,
				ConceptName:     rec.Get(ColConceptName),
				DomainID:        rec.Get(ColDomainID),
				VocabularyID:    rec.Get(ColVocabularyID),
				ConceptClassID:  class,
				StandardConcept: utils.ToOptionalString(rec.Get(ColStandardConcept)),
				ConceptCode:     rec.Get(ColConceptCode),
				ValidStartDate:  start,
				ValidEndDate:    end,
				InvalidReason:   utils.ToOptionalString(rec.Get(ColInvalidReason)),
			})
		}
		warnPrefixMismatch(l, fr.File, source.TableConcept, vocabIDs)
	}

	dups.Report(v)
	if err := v.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// requireColumns records a violation for each required column missing from the header.
// It returns false when the file's rows cannot be checked.
func requireColumns(v *reconcile.Violations, fr source.FileRecords, cols ...string) bool {
	missing := fr.MissingColumns(cols...)
	for _, c := range missing {
		v.Addf(fr.File.Name, 1, "missing required column %q", c)
	}
	return len(missing) == 0
}

// requireValues records a violation for each empty required value.
func requireValues(v *reconcile.Violations, f source.File, rec source.Record, cols ...string) bool {
	ok := true
	for _, c := range cols {
		if rec.Get(c) == "" {
			v.Addf(f.Name, rec.Line, "%s must not be empty", c)
			ok = false
		}
	}
	return ok
}

func parseDate(v *reconcile.Violations, f source.File, rec source.Record, col string) (t time.Time, err error) {
	raw := rec.Get(col)
	if raw == "" {
		// Reported by requireValues
		return t, errEmpty
	}
	t, err = utils.ToDate(raw)
	if err != nil {
		v.Addf(f.Name, rec.Line, "%s: %v", col, err)
	}
	return t, err
}

// warnPrefixMismatch logs the vocabulary IDs of a prefixed file that do not match its
// prefix. Files without a prefix may legally hold several vocabularies.
func warnPrefixMismatch(l *zap.Logger, f source.File, table string, ids []string) {
	prefix, mismatched := source.PrefixMismatches(f, table, ids)
	if len(mismatched) == 0 || l == nil {
		return
	}
	l.Warn("File prefix does not match declared vocabulary IDs",
		zap.String("file", f.Name),
		zap.String("prefix", prefix),
		zap.Strings("vocabulary_ids", mismatched),
	)
}
