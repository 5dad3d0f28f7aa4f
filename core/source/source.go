package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"vocab-loader/core/reconcile"
)

// Table names used in file naming.
const (
	TableVocabulary   = "vocabulary"
	TableConceptClass = "concept_class"
	TableConcept      = "concept"
	TableStcm         = "source_to_concept_map"
)

// supportedExtensions are the delimited formats a source reads.
var supportedExtensions = map[string]rune{
	".tsv": '\t',
	".txt": '\t',
	".csv": ',',
}

// File is one delimited file in a source directory.
type File struct {
	// Path is the full path of the file.
	Path string
	// Name is the base name, e.g. "icd10_concept.tsv".
	Name string
	// Stem is the base name without extension, e.g. "icd10_concept".
	Stem string
	// Ext is the lower-cased extension including the dot.
	Ext string
}

// Source enumerates the files of one directory. It never writes to the directory.
type Source struct {
	dir string
}

// New returns a Source over dir. A missing directory is a configuration error.
func New(dir string) (*Source, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, reconcile.NewConfigurationError(dir, "directory does not exist")
		}
		return nil, fmt.Errorf("failed to stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, reconcile.NewConfigurationError(dir, "not a directory")
	}
	return &Source{dir: dir}, nil
}

// Dir returns the directory this source reads.
func (s *Source) Dir() string {
	return s.dir
}

// ListFiles returns the files of the directory belonging to table: those whose stem equals
// table or ends with "_"+table. Hidden and system files are skipped. The result is sorted
// by name.
func (s *Source) ListFiles(table string) ([]File, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.dir, err)
	}

	var files []File
	for _, entry := range entries {
		if entry.IsDir() || isHidden(entry.Name()) {
			continue
		}
		f, ok := s.fileOf(entry.Name())
		if !ok {
			continue
		}
		if matchesTable(f.Stem, table) {
			files = append(files, f)
		}
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})
	return files, nil
}

// File returns the named file of the directory. A missing file is a configuration error.
func (s *Source) File(name string) (File, error) {
	path := filepath.Join(s.dir, name)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return File{}, reconcile.NewConfigurationError(path, "file does not exist")
		}
		return File{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return File{}, reconcile.NewConfigurationError(path, "expected a file, found a directory")
	}
	f, ok := s.fileOf(name)
	if !ok {
		return File{}, reconcile.NewConfigurationError(path, "unsupported file extension")
	}
	return f, nil
}

func (s *Source) fileOf(name string) (File, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	if _, ok := supportedExtensions[ext]; !ok {
		return File{}, false
	}
	return File{
		Path: filepath.Join(s.dir, name),
		Name: name,
		Stem: strings.TrimSuffix(name, filepath.Ext(name)),
		Ext:  ext,
	}, true
}

// PrefixOf returns the lower-cased token before "_"+table in the file stem.
// ok is false when the stem is exactly table (no prefix).
func PrefixOf(f File, table string) (prefix string, ok bool) {
	stem := strings.ToLower(f.Stem)
	table = strings.ToLower(table)
	if stem == table {
		return "", false
	}
	suffix := "_" + table
	if !strings.HasSuffix(stem, suffix) {
		return "", false
	}
	prefix = strings.TrimSuffix(stem, suffix)
	if prefix == "" {
		return "", false
	}
	return prefix, true
}

// Eligible decides whether a file takes part in this run. toUpdate and known must hold
// lower-cased identifiers. A file is eligible when its prefix is being updated, when it
// has no prefix, or when its prefix is not a known identifier at all (generic files are
// always loaded). A known prefix outside toUpdate is skipped.
func Eligible(f File, table string, toUpdate, known reconcile.Set) bool {
	prefix, ok := PrefixOf(f, table)
	if !ok {
		return true
	}
	if toUpdate.Has(prefix) {
		return true
	}
	return !known.Has(prefix)
}

// PrefixMismatches returns the prefix of f and the distinct ids (sorted) that do not
// equal it, ignoring case. Unprefixed files never mismatch.
func PrefixMismatches(f File, table string, ids []string) (prefix string, mismatched []string) {
	prefix, ok := PrefixOf(f, table)
	if !ok {
		return "", nil
	}
	set := reconcile.NewSet()
	for _, id := range ids {
		if strings.ToLower(id) != prefix {
			set.Add(id)
		}
	}
	if len(set) == 0 {
		return prefix, nil
	}
	return prefix, set.Sorted()
}

func matchesTable(stem, table string) bool {
	stem = strings.ToLower(stem)
	table = strings.ToLower(table)
	return stem == table || strings.HasSuffix(stem, "_"+table)
}

// isHidden reports dot files and the lock/metadata files editors and OSes leave behind.
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") || strings.HasPrefix(name, "__")
}
