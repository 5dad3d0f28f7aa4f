package models

import "time"

// SourceToConceptMap is a row of the CDM source_to_concept_map table. The key is
// (source_code, source_vocabulary_id, target_concept_id, valid_end_date), so one source
// code may map to several targets.
type SourceToConceptMap struct {
	SourceCode            string    `gorm:"primaryKey;column:source_code;type:varchar(50)"`
	SourceConceptID       int64     `gorm:"column:source_concept_id;not null"`
	SourceVocabularyID    string    `gorm:"primaryKey;column:source_vocabulary_id;type:varchar(20);index"`
	SourceCodeDescription *string   `gorm:"column:source_code_description;type:varchar(255)"`
	TargetConceptID       int64     `gorm:"primaryKey;autoIncrement:false;column:target_concept_id"`
	TargetVocabularyID    string    `gorm:"column:target_vocabulary_id;type:varchar(20);not null"`
	ValidStartDate        time.Time `gorm:"column:valid_start_date;type:date;not null"`
	ValidEndDate          time.Time `gorm:"primaryKey;column:valid_end_date;type:date"`
	InvalidReason         *string   `gorm:"column:invalid_reason;type:varchar(1)"`
}

func (SourceToConceptMap) TableName() string {
	return "source_to_concept_map"
}

// StcmVersion records which version of a source vocabulary's mapping rows was last
// loaded. It is not part of the CDM; `schema create` adds it.
type StcmVersion struct {
	SourceVocabularyID string `gorm:"primaryKey;column:source_vocabulary_id;type:varchar(20)"`
	StcmVersion        string `gorm:"column:stcm_version;type:varchar(255);not null"`
}

func (StcmVersion) TableName() string {
	return "stcm_version"
}

// All returns one value of every model the loader manages, in dependency order.
func All() []any {
	return []any{
		&Vocabulary{},
		&ConceptClass{},
		&Concept{},
		&SourceToConceptMap{},
		&StcmVersion{},
	}
}
