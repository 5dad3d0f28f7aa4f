// Package models declares the OMOP CDM tables the loader reads and writes, as GORM models.
//
// Only the reference tables touched by reconciliation are declared: vocabulary,
// concept_class, concept, source_to_concept_map, plus the loader's own stcm_version table.
// Column names and sizes follow the CDM DDL.
package models
