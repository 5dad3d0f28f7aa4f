// Package config provides configuration management for the vocabulary loader.
//
// It utilizes Viper for loading configuration from environment variables and an
// optional .env file. Defaults come from the `default` struct tags of each section.
//
// # Configuration Structure
//
//   - Database: CDM connection (DATABASE_DRIVER, DATABASE_HOST, DATABASE_SCHEMA, ...)
//   - Log: level and format (LOG_LEVEL, LOG_FORMAT)
//   - Storage: S3/MinIO credentials and bucket (STORAGE_ENDPOINT, STORAGE_BUCKET, ...)
//   - Vocab: file locations (VOCAB_DIR, VOCAB_STCM_DIR, VOCAB_STCM_VERSION_FILE, ...)
//   - Store: write batching (STORE_BATCH_SIZE)
//   - Reconcile: run defaults (RECONCILE_PRUNE_ABSENT)
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Vocab.Dir)
package config
