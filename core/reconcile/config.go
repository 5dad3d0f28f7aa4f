package reconcile

// Config holds the defaults of reconciliation runs. CLI flags override them.
type Config struct {
	// PruneAbsent drops STCM rows of source vocabularies missing from the version file.
	PruneAbsent bool `mapstructure:"prune_absent" default:"true"`
}
