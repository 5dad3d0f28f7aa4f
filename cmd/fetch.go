package cmd

import (
	"context"
	"fmt"

	"vocab-loader/core/source"
	"vocab-loader/core/storage"

	"github.com/spf13/cobra"
)

// fetchCmd mirrors the configured bucket prefixes into the local vocabulary directories.
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download vocabulary and STCM files from object storage",
	Long: `Downloads every object under VOCAB_BUCKET_PREFIX into VOCAB_DIR and every object
under VOCAB_STCM_BUCKET_PREFIX into VOCAB_STCM_DIR. Unset prefixes are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(false)
		if err != nil {
			return err
		}
		defer a.close()

		if a.cfg.Vocab.BucketPrefix == "" && a.cfg.Vocab.StcmBucketPrefix == "" {
			return fmt.Errorf("nothing to fetch: set VOCAB_BUCKET_PREFIX and/or VOCAB_STCM_BUCKET_PREFIX")
		}
		return fetchAll(cmd.Context(), a)
	},
}

func init() {
	RootCmd.AddCommand(fetchCmd)
}

// fetchAll downloads the configured prefixes. It does nothing when none is set.
func fetchAll(ctx context.Context, a *app) error {
	if a.cfg.Vocab.BucketPrefix == "" && a.cfg.Vocab.StcmBucketPrefix == "" {
		return nil
	}
	client, err := storage.NewClient(a.cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to connect to storage: %w", err)
	}

	targets := []struct{ prefix, dir string }{
		{a.cfg.Vocab.BucketPrefix, a.cfg.Vocab.Dir},
		{a.cfg.Vocab.StcmBucketPrefix, a.cfg.Vocab.StcmDir},
	}
	for _, t := range targets {
		if t.prefix == "" {
			continue
		}
		if _, err := source.Fetch(ctx, client, a.cfg.Storage.Bucket, t.prefix, t.dir, a.log); err != nil {
			return err
		}
	}
	return nil
}
