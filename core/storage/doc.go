// Package storage provides an abstraction layer for object storage services.
//
// Vocabulary and STCM releases are often published to a bucket rather than shipped with
// the loader. This package wraps the MinIO Go client (AWS S3 and self-hosted MinIO) with the
// few read operations the loader needs to mirror a bucket prefix into a local directory.
//
// # Client Interface
//
// The Client interface abstracts the underlying storage provider, making it easy to
// mock storage interactions for unit testing (see core/storage/mocks).
//
// # Operations
//
//   - BucketExists: Verifies access to the source bucket.
//   - ListObjects: Lists objects under a prefix.
//   - GetObject: Retrieves content as a stream.
//
// # Usage
//
//	client, err := storage.NewClient(cfg.Storage)
//	exists, err := client.BucketExists(ctx, "vocabularies")
package storage
