package renderer

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/walletflow/internal/csvimport"
	"github.com/dvloznov/walletflow/internal/domain"
	"github.com/dvloznov/walletflow/internal/gcs"
	infraBQ "github.com/dvloznov/walletflow/internal/infra/bigquery"
	"github.com/dvloznov/walletflow/internal/logger"
)

var (
	// ErrUnsupportedSource is returned for URIs that are neither gs:// nor bq://.
	ErrUnsupportedSource = errors.New("unsupported source URI")
	// ErrSourceUnavailable is returned when the backend for a URI is not configured.
	ErrSourceUnavailable = errors.New("source backend not configured")
)

// Sources loads transaction records from remote exports.
type Sources struct {
	Storage gcs.StorageService
	Records infraBQ.RecordRepository
}

// CheckURI reports whether uri names a source Load can read, without
// reading it.
func (s *Sources) CheckURI(uri string) error {
	switch {
	case gcs.IsGCSURI(uri):
		if _, _, err := gcs.ParseGCSURI(uri); err != nil {
			return fmt.Errorf("CheckURI: %w", err)
		}
		if s.Storage == nil {
			return fmt.Errorf("CheckURI: %s: %w", uri, ErrSourceUnavailable)
		}
	case infraBQ.IsTableURI(uri):
		if _, err := infraBQ.ParseTableRef(uri); err != nil {
			return fmt.Errorf("CheckURI: %w", err)
		}
		if s.Records == nil {
			return fmt.Errorf("CheckURI: %s: %w", uri, ErrSourceUnavailable)
		}
	default:
		return fmt.Errorf("CheckURI: %q: %w", uri, ErrUnsupportedSource)
	}
	return nil
}

// Load reads the records behind uri: a Koinly CSV export in Cloud Storage
// or a BigQuery table of exported rows.
func (s *Sources) Load(ctx context.Context, uri string) ([]domain.TransactionRecord, error) {
	if err := s.CheckURI(uri); err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}
	log := logger.FromContext(ctx)

	if gcs.IsGCSURI(uri) {
		data, err := s.Storage.FetchFromGCS(ctx, uri)
		if err != nil {
			return nil, fmt.Errorf("Load: fetch %s: %w", uri, err)
		}
		records, err := csvimport.Parse(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("Load: parse %s: %w", gcs.ExtractFilenameFromGCSURI(uri), err)
		}
		log.Debug().Str("source_uri", uri).Int("bytes", len(data)).Int("records", len(records)).Msg("Loaded CSV export")
		return records, nil
	}

	table, _ := infraBQ.ParseTableRef(uri)
	records, err := s.Records.ListRecords(ctx, table, infraBQ.RecordFilter{})
	if err != nil {
		return nil, fmt.Errorf("Load: query %s: %w", table, err)
	}
	log.Debug().Str("source_uri", uri).Int("records", len(records)).Msg("Loaded table rows")
	return records, nil
}
