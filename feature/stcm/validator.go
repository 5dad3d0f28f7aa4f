package stcm

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"vocab-loader/core/reconcile"
	"vocab-loader/core/source"
	"vocab-loader/core/utils"
	"vocab-loader/feature/cdm/models"

	"go.uber.org/zap"
)

// Columns of the version file and the source_to_concept_map files.
const (
	ColSourceVocabularyID    = "source_vocabulary_id"
	ColStcmVersion           = "stcm_version"
	ColSourceCode            = "source_code"
	ColSourceConceptID       = "source_concept_id"
	ColSourceCodeDescription = "source_code_description"
	ColTargetConceptID       = "target_concept_id"
	ColTargetVocabularyID    = "target_vocabulary_id"
	ColValidStartDate        = "valid_start_date"
	ColValidEndDate          = "valid_end_date"
	ColInvalidReason         = "invalid_reason"

	ColVocabularyID = "vocabulary_id"
)

// tableVersion names the version file in violations.
const tableVersion = "stcm_version"

var errEmpty = errors.New("empty value")

// ValidateVersions checks the rows of the version file and returns them.
func ValidateVersions(fr source.FileRecords) ([]models.StcmVersion, error) {
	v := reconcile.NewViolations(tableVersion)
	dups := reconcile.NewDuplicateTracker(ColSourceVocabularyID)
	var out []models.StcmVersion

	if missing := fr.MissingColumns(ColSourceVocabularyID, ColStcmVersion); len(missing) > 0 {
		for _, c := range missing {
			v.Addf(fr.File.Name, 1, "missing required column %q", c)
		}
		return nil, v.Err()
	}

	for _, rec := range fr.Records {
		id, version := rec.Get(ColSourceVocabularyID), rec.Get(ColStcmVersion)
		if id == "" {
			v.Addf(fr.File.Name, rec.Line, "%s must not be empty", ColSourceVocabularyID)
		}
		if version == "" {
			v.Addf(fr.File.Name, rec.Line, "%s must not be empty", ColStcmVersion)
		}
		if id == "" || version == "" {
			continue
		}
		dups.See(id, fr.File.Name, rec.Line)
		out = append(out, models.StcmVersion{SourceVocabularyID: id, StcmVersion: version})
	}

	dups.Report(v)
	if err := v.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// RequireKnownVocabularies fails with a configuration error naming every declared
// source vocabulary absent from known. Unlike data quality violations this is a setup
// problem: the vocabularies must be loaded first.
func RequireKnownVocabularies(versions []models.StcmVersion, known reconcile.Set) error {
	unknown := reconcile.NewSet()
	for _, v := range versions {
		if !known.Has(v.SourceVocabularyID) {
			unknown.Add(v.SourceVocabularyID)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	return reconcile.NewConfigurationError(models.Vocabulary{}.TableName(),
		"unknown source vocabulary %s; load it with `vocab-loader load vocabulary` first",
		strings.Join(unknown.Sorted(), ", "))
}

// ValidateMappings checks every row of the STCM files and returns the parsed rows,
// including the unmapped ones (target_concept_id 0).
func ValidateMappings(files []source.FileRecords, l *zap.Logger) ([]models.SourceToConceptMap, error) {
	v := reconcile.NewViolations(source.TableStcm)
	dups := reconcile.NewDuplicateTracker("mapping")
	var out []models.SourceToConceptMap

	for _, fr := range files {
		missing := fr.MissingColumns(ColSourceCode, ColSourceConceptID, ColSourceVocabularyID,
			ColTargetConceptID, ColTargetVocabularyID, ColValidStartDate, ColValidEndDate)
		for _, c := range missing {
			v.Addf(fr.File.Name, 1, "missing required column %q", c)
		}
		if len(missing) > 0 {
			continue
		}

		var vocabIDs []string
		for _, rec := range fr.Records {
			ok := true
			for _, c := range []string{ColSourceCode, ColSourceVocabularyID, ColTargetConceptID, ColTargetVocabularyID} {
				if rec.Get(c) == "" {
					v.Addf(fr.File.Name, rec.Line, "%s must not be empty", c)
					ok = false
				}
			}

			sourceConcept, err := optionalInt(rec.Get(ColSourceConceptID))
			if err != nil {
				v.Addf(fr.File.Name, rec.Line, "%s: %v", ColSourceConceptID, err)
				ok = false
			}
			target, err := utils.ToInt64(rec.Get(ColTargetConceptID))
			if err != nil && rec.Get(ColTargetConceptID) != "" {
				v.Addf(fr.File.Name, rec.Line, "%s: %v", ColTargetConceptID, err)
				ok = false
			}
			start, err := date(v, fr.File.Name, rec, ColValidStartDate)
			ok = ok && err == nil
			end, err := date(v, fr.File.Name, rec, ColValidEndDate)
			ok = ok && err == nil
			if reason := rec.Get(ColInvalidReason); len(reason) > 1 {
				v.Addf(fr.File.Name, rec.Line, "%s must be a single character, got %q", ColInvalidReason, reason)
				ok = false
			}

			if id := rec.Get(ColSourceVocabularyID); id != "" {
				vocabIDs = append(vocabIDs, id)
			}
			if !ok {
				continue
			}

			m := models.SourceToConceptMap{
				SourceCode:            rec.Get(ColSourceCode),
				SourceConceptID:       sourceConcept,
				SourceVocabularyID:    rec.Get(ColSourceVocabularyID),
				SourceCodeDescription: utils.ToOptionalString(rec.Get(ColSourceCodeDescription)),
				TargetConceptID:       target,
				TargetVocabularyID:    rec.Get(ColTargetVocabularyID),
				ValidStartDate:        start,
				ValidEndDate:          end,
				InvalidReason:         utils.ToOptionalString(rec.Get(ColInvalidReason)),
			}
			// Unmapped rows are never inserted, so they cannot collide on the table key.
			if m.TargetConceptID != 0 {
				dups.See(mappingKey(m), fr.File.Name, rec.Line)
			}
			out = append(out, m)
		}

		if prefix, mismatched := source.PrefixMismatches(fr.File, source.TableStcm, vocabIDs); len(mismatched) > 0 && l != nil {
			l.Warn("File prefix does not match declared vocabulary IDs",
				zap.String("file", fr.File.Name),
				zap.String("prefix", prefix),
				zap.Strings("vocabulary_ids", mismatched),
			)
		}
	}

	dups.Report(v)
	if err := v.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// mappingKey renders the primary key of a mapping row.
func mappingKey(m models.SourceToConceptMap) string {
	return fmt.Sprintf("%s/%s->%d until %s", m.SourceVocabularyID, m.SourceCode, m.TargetConceptID,
		m.ValidEndDate.Format("2006-01-02"))
}

// optionalInt parses source_concept_id, which defaults to 0 when the cell is empty.
func optionalInt(val string) (int64, error) {
	if val == "" {
		return 0, nil
	}
	return utils.ToInt64(val)
}

func date(v *reconcile.Violations, file string, rec source.Record, col string) (time.Time, error) {
	val := rec.Get(col)
	if val == "" {
		v.Addf(file, rec.Line, "%s must not be empty", col)
		return time.Time{}, errEmpty
	}
	t, err := utils.ToDate(val)
	if err != nil {
		v.Addf(file, rec.Line, "%s: %v", col, err)
	}
	return t, err
}
