package azure

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"go.uber.org/zap"
)

// BlobStorageClient wraps Azure Blob Storage SDK for shared report files
type BlobStorageClient struct {
	client        *azblob.Client
	serviceURL    string
	containerName string
	logger        *zap.Logger
}

// NewBlobStorageClient creates a new Azure Blob Storage client. An empty
// blobEndpoint uses the public endpoint of the account.
func NewBlobStorageClient(accountName, accountKey, containerName, blobEndpoint string, logger *zap.Logger) (*BlobStorageClient, error) {
	if accountName == "" || accountKey == "" || containerName == "" {
		return nil, fmt.Errorf("accountName, accountKey, and containerName are required")
	}

	// Resolve service URL
	serviceURL := blobEndpoint
	if serviceURL == "" {
		serviceURL = fmt.Sprintf("https://%s.blob.core.windows.net/", accountName)
	}

	// Create shared key credential
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create shared key credential: %w", err)
	}

	// Create blob client
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}

	return &BlobStorageClient{
		client:        client,
		serviceURL:    serviceURL,
		containerName: containerName,
		logger:        logger,
	}, nil
}

// UploadReport uploads a generated report under reports/ and returns the blob name
func (c *BlobStorageClient) UploadReport(ctx context.Context, filename string, data []byte, contentType string) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("filename is required")
	}
	if len(data) == 0 {
		return "", fmt.Errorf("report is empty")
	}

	c.logger.Info("uploading report to blob storage",
		zap.String("filename", filename),
		zap.Int("size_bytes", len(data)),
	)

	// Get blob client
	blobName := fmt.Sprintf("reports/%s", filename)
	blobClient := c.client.ServiceClient().NewContainerClient(c.containerName).NewBlockBlobClient(blobName)

	// Upload with metadata
	_, err := blobClient.UploadBuffer(ctx, data, &azblob.UploadBufferOptions{
		Metadata: map[string]*string{
			"contenttype": toPtr(contentType),
		},
	})
	if err != nil {
		c.logger.Error("failed to upload report",
			zap.String("filename", filename),
			zap.Error(err),
		)
		return "", fmt.Errorf("failed to upload report: %w", err)
	}

	c.logger.Info("report uploaded successfully", zap.String("blob_name", blobName))
	return blobName, nil
}

// DownloadReport downloads a previously shared report
func (c *BlobStorageClient) DownloadReport(ctx context.Context, blobName string) ([]byte, error) {
	if blobName == "" {
		return nil, fmt.Errorf("blob name is required")
	}

	c.logger.Info("downloading report from blob storage", zap.String("blob_name", blobName))

	// Get blob client
	blobClient := c.client.ServiceClient().NewContainerClient(c.containerName).NewBlockBlobClient(blobName)

	// Download blob
	downloadResponse, err := blobClient.DownloadStream(ctx, nil)
	if err != nil {
		c.logger.Error("failed to download report",
			zap.String("blob_name", blobName),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to download report: %w", err)
	}
	defer downloadResponse.Body.Close()

	// Read all data
	data, err := io.ReadAll(downloadResponse.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read report data: %w", err)
	}

	c.logger.Info("report downloaded successfully",
		zap.String("blob_name", blobName),
		zap.Int("size_bytes", len(data)),
	)
	return data, nil
}

// BlobURL returns the address of a blob in the report container
func (c *BlobStorageClient) BlobURL(blobName string) string {
	return fmt.Sprintf("%s%s/%s", withSlash(c.serviceURL), c.containerName, blobName)
}

func withSlash(s string) string {
	if len(s) > 0 && s[len(s)-1] == '/' {
		return s
	}
	return s + "/"
}

// toPtr is a helper function to convert a value to a pointer
func toPtr(s string) *string {
	return &s
}
