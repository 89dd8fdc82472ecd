package gcsuploader

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"

	"github.com/dvloznov/walletflow/internal/gcs"
)

// maxObjectSize caps the size of a fetched export.
const maxObjectSize = 64 << 20

// DownloadFile reads an object into memory.
func DownloadFile(ctx context.Context, bucketName, objectName string) ([]byte, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("DownloadFile: create storage client: %w", err)
	}
	defer client.Close()

	r, err := client.Bucket(bucketName).Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("DownloadFile: open object %s/%s: %w", bucketName, objectName, err)
	}
	defer r.Close()

	data, err := io.ReadAll(io.LimitReader(r, maxObjectSize+1))
	if err != nil {
		return nil, fmt.Errorf("DownloadFile: read object %s/%s: %w", bucketName, objectName, err)
	}
	if len(data) > maxObjectSize {
		return nil, fmt.Errorf("DownloadFile: object %s/%s exceeds %d bytes", bucketName, objectName, maxObjectSize)
	}

	return data, nil
}

// FetchFromGCS downloads the file bytes from the given GCS URI.
func FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	bucket, object, err := gcs.ParseGCSURI(gcsURI)
	if err != nil {
		return nil, fmt.Errorf("FetchFromGCS: %w", err)
	}
	return DownloadFile(ctx, bucket, object)
}
