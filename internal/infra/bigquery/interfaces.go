package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"

	"github.com/dvloznov/walletflow/internal/domain"
)

// RecordRepository reads exported transaction records from a warehouse.
type RecordRepository interface {
	ListRecords(ctx context.Context, table TableRef, filter RecordFilter) ([]domain.TransactionRecord, error)
	Close() error
}

// BigQueryRecordRepository is the concrete implementation of RecordRepository
// that interacts with BigQuery. It holds a shared BigQuery client to avoid
// creating a new connection for each operation.
type BigQueryRecordRepository struct {
	client *bigquery.Client
}

// NewBigQueryRecordRepository creates a repository billed to projectID.
// Tables may live in other projects the credentials can read.
func NewBigQueryRecordRepository(ctx context.Context, projectID string) (*BigQueryRecordRepository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryRecordRepository: creating client: %w", err)
	}
	return &BigQueryRecordRepository{client: client}, nil
}

// Close closes the BigQuery client connection.
func (r *BigQueryRecordRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// ListRecords delegates to ListRecordsWithClient with the shared client.
func (r *BigQueryRecordRepository) ListRecords(ctx context.Context, table TableRef, filter RecordFilter) ([]domain.TransactionRecord, error) {
	return ListRecordsWithClient(ctx, r.client, table, filter)
}

var _ RecordRepository = (*BigQueryRecordRepository)(nil)
