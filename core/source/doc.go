// Package source reads the versioned reference files a reconciliation run compares
// against the database.
//
// # Files and Prefixes
//
// One directory holds the files of one table family. A file belongs to table T when its
// stem is exactly T or ends with "_T":
//
//	vocabulary.tsv            -> table vocabulary, no prefix
//	icd10_concept.tsv         -> table concept, prefix "icd10"
//	my_vocab_concept_class.tsv -> table concept_class, prefix "my_vocab"
//
// Prefixes scope a file to one vocabulary so that unchanged vocabularies' files are not
// parsed again. Eligible applies the rule: a file is read when its prefix is being
// updated, when it has no prefix, or when its prefix is not a known identifier.
//
// # Reading
//
// Files are header-driven. .tsv and .txt files are split on tabs with no quoting (the
// Athena convention); .csv files use RFC 4180 quoting. Reader yields records lazily;
// ReadFile and ReadFiles collect them.
//
// # Bucket Sources
//
// Fetch mirrors a storage bucket prefix into a local directory before a run.
package source
