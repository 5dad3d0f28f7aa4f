// Package vocabulary reconciles custom vocabularies, concept classes and concepts.
//
// A custom vocabulary (or concept class) is one whose vocabulary_concept_id
// (concept_class_concept_id) is 0. Only those rows are read, replaced or dropped;
// standard rows from the Athena distribution are never touched.
//
// A run compares vocabulary versions in the store with the vocabulary files on disk:
//
//	created   = declared on disk, absent from the store
//	updated   = present in both with a different vocabulary_version
//	unused    = custom in the store, absent from disk
//	load set  = created + updated
//	drop set  = updated + unused
//
// Concept classes diff the same way on concept_class_name. Concepts of the drop set are
// deleted and concepts of the load set are read from the eligible concept files, that is
// files named <vocabulary_id>_concept.tsv for a vocabulary in the load set, files named
// concept.tsv, and files whose prefix is not a known vocabulary.
//
// Plan validates every file before anything is written; Apply runs all deletes and
// inserts in one transaction.
package vocabulary
