package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/walletflow/internal/domain"
)

// ListRecords reads the transaction records of table, creating a client in
// the table's project.
func ListRecords(ctx context.Context, table TableRef, filter RecordFilter) ([]domain.TransactionRecord, error) {
	client, err := bigquery.NewClient(ctx, table.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("ListRecords: bigquery client: %w", err)
	}
	defer client.Close()

	return ListRecordsWithClient(ctx, client, table, filter)
}

// ListRecordsWithClient reads the transaction records of table using the
// provided BigQuery client.
func ListRecordsWithClient(ctx context.Context, client *bigquery.Client, table TableRef, filter RecordFilter) ([]domain.TransactionRecord, error) {
	query, params := buildRecordsQuery(table, filter)

	q := client.Query(query)
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListRecordsWithClient: query read: %w", err)
	}

	var records []domain.TransactionRecord
	for {
		var row RecordRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListRecordsWithClient: iter next: %w", err)
		}
		records = append(records, row.ToRecord())
	}

	return records, nil
}
