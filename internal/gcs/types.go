package gcs

import (
	"context"
	"fmt"
	"path"
	"strings"
)

// Scheme prefixes every Cloud Storage URI.
const Scheme = "gs://"

// DiagramContentType is the content type of uploaded diagram text.
const DiagramContentType = "text/vnd.mermaid; charset=utf-8"

// StorageService provides an interface for cloud storage operations.
// This interface enables mocking and testing of storage functionality.
type StorageService interface {
	// FetchFromGCS downloads file bytes from the given storage URI.
	FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error)

	// UploadBytes writes data to the given storage URI.
	UploadBytes(ctx context.Context, gcsURI string, data []byte, contentType string) error
}

// IsGCSURI reports whether s names a Cloud Storage object.
func IsGCSURI(s string) bool {
	return strings.HasPrefix(s, Scheme)
}

// ParseGCSURI splits "gs://bucket/path/to/object" into bucket and object.
func ParseGCSURI(uri string) (bucket, object string, err error) {
	if !IsGCSURI(uri) {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}

	parts := strings.SplitN(strings.TrimPrefix(uri, Scheme), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

// ExtractFilenameFromGCSURI extracts the filename from a storage URI.
// e.g., "gs://bucket/folder/export.csv" → "export.csv"
func ExtractFilenameFromGCSURI(uri string) string {
	trimmed := strings.TrimPrefix(uri, Scheme)

	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}
	return path.Base(parts[1])
}

// DiagramURI is where a job's diagram is stored when the job names no
// output: gs://<bucket>/diagrams/<jobID>.mmd.
func DiagramURI(bucket, jobID string) string {
	return Scheme + bucket + "/diagrams/" + jobID + ".mmd"
}
