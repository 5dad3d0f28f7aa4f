package models

import "time"

// CustomConceptID is the vocabulary_concept_id / concept_class_concept_id carried by every
// custom (non-Athena) vocabulary and concept class. Only rows with this value are managed
// by the loader.
const CustomConceptID int64 = 0

// MinCustomConceptID is the first concept_id of the range reserved for custom concepts.
const MinCustomConceptID int64 = 2_000_000_000

// Vocabulary is a row of the CDM vocabulary table.
type Vocabulary struct {
	VocabularyID        string  `gorm:"primaryKey;column:vocabulary_id;type:varchar(20)"`
	VocabularyName      string  `gorm:"column:vocabulary_name;type:varchar(255);not null"`
	VocabularyReference *string `gorm:"column:vocabulary_reference;type:varchar(255)"`
	VocabularyVersion   *string `gorm:"column:vocabulary_version;type:varchar(255)"`
	VocabularyConceptID int64   `gorm:"column:vocabulary_concept_id;not null"`
}

func (Vocabulary) TableName() string {
	return "vocabulary"
}

// ConceptClass is a row of the CDM concept_class table.
type ConceptClass struct {
	ConceptClassID        string `gorm:"primaryKey;column:concept_class_id;type:varchar(20)"`
	ConceptClassName      string `gorm:"column:concept_class_name;type:varchar(255);not null"`
	ConceptClassConceptID int64  `gorm:"column:concept_class_concept_id;not null"`
}

func (ConceptClass) TableName() string {
	return "concept_class"
}

// Concept is a row of the CDM concept table.
type Concept struct {
	ConceptID       int64     `gorm:"primaryKey;autoIncrement:false;column:concept_id"`
	ConceptName     string    `gorm:"column:concept_name;type:varchar(255);not null"`
	DomainID        string    `gorm:"column:domain_id;type:varchar(20);not null"`
	VocabularyID    string    `gorm:"column:vocabulary_id;type:varchar(20);not null;index"`
	ConceptClassID  string    `gorm:"column:concept_class_id;type:varchar(20);not null"`
	StandardConcept *string   `gorm:"column:standard_concept;type:varchar(1)"`
	ConceptCode     string    `gorm:"column:concept_code;type:varchar(50);not null"`
	ValidStartDate  time.Time `gorm:"column:valid_start_date;type:date;not null"`
	ValidEndDate    time.Time `gorm:"column:valid_end_date;type:date;not null"`
	InvalidReason   *string   `gorm:"column:invalid_reason;type:varchar(1)"`
}

func (Concept) TableName() string {
	return "concept"
}
