package stcm

import (
	"testing"

	"vocab-loader/core/reconcile"
	"vocab-loader/core/source"
	"vocab-loader/feature/cdm/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func records(name string, header []string, rows ...[]string) source.FileRecords {
	fr := source.FileRecords{
		File:   source.File{Name: name, Stem: name[:len(name)-len(".tsv")], Ext: ".tsv"},
		Header: header,
	}
	for i, row := range rows {
		values := make(map[string]string, len(header))
		for j, h := range header {
			values[h] = row[j]
		}
		fr.Records = append(fr.Records, source.NewRecord(i+2, values))
	}
	return fr
}

func TestValidateVersions(t *testing.T) {
	header := []string{ColSourceVocabularyID, ColStcmVersion}
	versions, err := ValidateVersions(records("stcm_versions.tsv", header,
		[]string{"V1", "1.0"}, []string{"V2", "2"}))
	require.NoError(t, err)
	assert.Equal(t, []models.StcmVersion{
		{SourceVocabularyID: "V1", StcmVersion: "1.0"},
		{SourceVocabularyID: "V2", StcmVersion: "2"},
	}, versions)

	_, err = ValidateVersions(records("stcm_versions.tsv", header,
		[]string{"", "1.0"}, []string{"V2", ""}, []string{"V3", "1"}, []string{"V3", "2"}))
	var dq *reconcile.DataQualityError
	require.ErrorAs(t, err, &dq)
	assert.Len(t, dq.Violations, 4)
	assert.Contains(t, err.Error(), "source_vocabulary_id must not be empty")
	assert.Contains(t, err.Error(), "stcm_version must not be empty")
	assert.Contains(t, err.Error(), `source_vocabulary_id "V3" is duplicated`)

	_, err = ValidateVersions(records("stcm_versions.tsv", []string{ColSourceVocabularyID}))
	require.ErrorIs(t, err, reconcile.ErrDataQuality)
	assert.Contains(t, err.Error(), `missing required column "stcm_version"`)
}

func TestRequireKnownVocabularies(t *testing.T) {
	versions := []models.StcmVersion{{SourceVocabularyID: "B"}, {SourceVocabularyID: "A"}, {SourceVocabularyID: "KNOWN"}}

	assert.NoError(t, RequireKnownVocabularies(versions, reconcile.NewSet("A", "B", "KNOWN")))

	err := RequireKnownVocabularies(versions, reconcile.NewSet("KNOWN"))
	var cfgErr *reconcile.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Message, "A, B")
}

var mappingHeader = []string{ColSourceCode, ColSourceConceptID, ColSourceVocabularyID, ColSourceCodeDescription,
	ColTargetConceptID, ColTargetVocabularyID, ColValidStartDate, ColValidEndDate, ColInvalidReason}

func TestValidateMappings(t *testing.T) {
	rows, err := ValidateMappings([]source.FileRecords{
		records("v1_source_to_concept_map.tsv", mappingHeader,
			[]string{"A", "", "V1", "", "201826", "SNOMED", "2020-01-01", "20991231", ""},
			[]string{"A", "0", "V1", "desc", "0", "None", "2020-01-01", "20991231", "D"},
		),
	}, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(0), rows[0].SourceConceptID)
	assert.Equal(t, int64(201826), rows[0].TargetConceptID)
	assert.Nil(t, rows[0].SourceCodeDescription)
	assert.Equal(t, "D", *rows[1].InvalidReason)
}

func TestValidateMappings_Violations(t *testing.T) {
	_, err := ValidateMappings([]source.FileRecords{
		records("a_source_to_concept_map.tsv", mappingHeader,
			[]string{"", "x", "V1", "", "1", "", "2020-01-01", "bad", "XY"},
		),
		records("b_source_to_concept_map.tsv", []string{ColSourceCode}),
	}, zap.NewNop())

	var dq *reconcile.DataQualityError
	require.ErrorAs(t, err, &dq)
	assert.Equal(t, []string{"a_source_to_concept_map.tsv", "b_source_to_concept_map.tsv"}, dq.Files())
	msg := err.Error()
	assert.Contains(t, msg, "source_code must not be empty")
	assert.Contains(t, msg, "target_vocabulary_id must not be empty")
	assert.Contains(t, msg, `source_concept_id: "x" is not an integer`)
	assert.Contains(t, msg, `valid_end_date: "bad" is not a date`)
	assert.Contains(t, msg, `invalid_reason must be a single character, got "XY"`)
	assert.Contains(t, msg, `missing required column "target_concept_id"`)
}

func TestValidateMappings_Duplicates(t *testing.T) {
	t.Run("Mapped", func(t *testing.T) {
		_, err := ValidateMappings([]source.FileRecords{
			records("v1_source_to_concept_map.tsv", mappingHeader,
				[]string{"A", "0", "V1", "", "5", "SNOMED", "20200101", "20991231", ""},
			),
			records("source_to_concept_map.tsv", mappingHeader,
				[]string{"A", "0", "V1", "", "5", "SNOMED", "20200101", "20991231", ""},
			),
		}, zap.NewNop())
		require.ErrorIs(t, err, reconcile.ErrDataQuality)
		assert.Contains(t, err.Error(), `"V1/A->5 until 2099-12-31"`)
	})

	t.Run("Unmapped", func(t *testing.T) {
		rows, err := ValidateMappings([]source.FileRecords{
			records("v1_source_to_concept_map.tsv", mappingHeader,
				[]string{"A", "0", "V1", "", "0", "None", "20200101", "20991231", ""},
				[]string{"A", "0", "V1", "", "0", "None", "20200101", "20991231", ""},
			),
		}, zap.NewNop())
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})
}

func TestValidateMappings_EmptyValues(t *testing.T) {
	_, err := ValidateMappings([]source.FileRecords{
		records("v1_source_to_concept_map.tsv", mappingHeader,
			[]string{"A", "0", "V1", "", "", "SNOMED", "", "20991231", ""},
		),
	}, zap.NewNop())

	var dq *reconcile.DataQualityError
	require.ErrorAs(t, err, &dq)
	msg := err.Error()
	assert.Contains(t, msg, "target_concept_id must not be empty")
	assert.Contains(t, msg, "valid_start_date must not be empty")
	assert.NotContains(t, msg, "empty value is not")
}

func TestValidateMappings_PrefixWarning(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	_, err := ValidateMappings([]source.FileRecords{
		records("v1_source_to_concept_map.tsv", mappingHeader,
			[]string{"A", "0", "V2", "", "1", "SNOMED", "20200101", "20991231", ""},
		),
	}, zap.New(core))
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessageSnippet("prefix does not match").Len())
}
