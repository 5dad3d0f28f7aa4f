package source

// Config holds the locations of the on-disk vocabulary and STCM files.
type Config struct {
	// Dir holds vocabulary, concept_class and concept files.
	Dir string `mapstructure:"dir" default:"./vocabularies"`
	// StcmDir holds source_to_concept_map files and the STCM version file.
	StcmDir string `mapstructure:"stcm_dir" default:"./stcm"`
	// StcmVersionFile is the name of the version-declaration file inside StcmDir.
	StcmVersionFile string `mapstructure:"stcm_version_file" default:"stcm_versions.tsv"`
	// BucketPrefix, when set, is mirrored from the storage bucket into Dir before a run.
	BucketPrefix string `mapstructure:"bucket_prefix" default:""`
	// StcmBucketPrefix, when set, is mirrored from the storage bucket into StcmDir before a run.
	StcmBucketPrefix string `mapstructure:"stcm_bucket_prefix" default:""`
}
