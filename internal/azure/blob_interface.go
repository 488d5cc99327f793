package azure

import "context"

// BlobStorage defines the interface for report storage operations
// This interface allows for easier testing with mock implementations
type BlobStorage interface {
	UploadReport(ctx context.Context, filename string, data []byte, contentType string) (string, error)
	DownloadReport(ctx context.Context, blobName string) ([]byte, error)
	BlobURL(blobName string) string
}

// Ensure BlobStorageClient implements BlobStorage interface
var _ BlobStorage = (*BlobStorageClient)(nil)
