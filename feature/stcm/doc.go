// Package stcm reconciles source_to_concept_map rows with versioned STCM files.
//
// The STCM directory holds one version file (source_vocabulary_id, stcm_version) and any
// number of mapping files named [<source_vocabulary_id>_]source_to_concept_map.tsv.
// The stcm_version table remembers which version of each source vocabulary's mappings
// was last loaded. A vocabulary whose declared version differs from the stored one (or
// has none stored) has all its mapping rows replaced. Rows with target_concept_id 0 mean
// "no mapping" and are never inserted.
//
// Every declared source vocabulary must already exist in the vocabulary table, so the
// vocabulary reconciler runs first.
package stcm
