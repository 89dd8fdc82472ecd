package csvimport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/dvloznov/walletflow/internal/domain"
	"github.com/dvloznov/walletflow/internal/pipeline"
)

// Koinly export column names.
const (
	ColumnDate         = "Date (UTC)"
	ColumnType         = "Type"
	ColumnFromAmount   = "From Amount"
	ColumnFromCurrency = "From Currency"
	ColumnToAmount     = "To Amount"
	ColumnToCurrency   = "To Currency"
	ColumnFromWallet   = "From Wallet (read-only)"
	ColumnToWallet     = "To Wallet (read-only)"
)

var (
	// ErrNotKoinlyCSV is returned when the header row does not look like a
	// Koinly transaction export.
	ErrNotKoinlyCSV = errors.New("not a Koinly transaction export")
	// ErrMissingColumn is returned when a required column is absent.
	ErrMissingColumn = errors.New("missing required column")
)

var requiredHeaders = []string{
	ColumnDate,
	ColumnType,
	ColumnFromAmount,
	ColumnFromCurrency,
	ColumnToAmount,
	ColumnToCurrency,
}

// Any one of these confirms the export comes from Koinly.
var optionalHeaders = []string{
	"Fee Amount",
	"Fee Currency",
	"Net Worth Amount",
	"Net Worth Currency",
	"Description",
}

// IsKoinlyCSV reports whether headers carry every required Koinly column and
// at least one of the optional ones.
func IsKoinlyCSV(headers []string) bool {
	present := headerSet(headers)
	for _, h := range requiredHeaders {
		if _, ok := present[h]; !ok {
			return false
		}
	}
	for _, h := range optionalHeaders {
		if _, ok := present[h]; ok {
			return true
		}
	}
	return false
}

// Columns holds the position of each used column; -1 means absent.
type Columns struct {
	Date         int
	Type         int
	FromAmount   int
	FromCurrency int
	ToAmount     int
	ToCurrency   int
	FromWallet   int
	ToWallet     int
}

// ResolveColumns maps header names to positions. Wallet columns are optional.
func ResolveColumns(headers []string) (Columns, error) {
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		h = normalizeHeader(h)
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}

	var missing []string
	lookup := func(name string, required bool) int {
		if i, ok := index[name]; ok {
			return i
		}
		if required {
			missing = append(missing, name)
		}
		return -1
	}

	cols := Columns{
		Date:         lookup(ColumnDate, true),
		Type:         lookup(ColumnType, true),
		FromAmount:   lookup(ColumnFromAmount, true),
		FromCurrency: lookup(ColumnFromCurrency, true),
		ToAmount:     lookup(ColumnToAmount, true),
		ToCurrency:   lookup(ColumnToCurrency, true),
		FromWallet:   lookup(ColumnFromWallet, false),
		ToWallet:     lookup(ColumnToWallet, false),
	}
	if len(missing) > 0 {
		return cols, fmt.Errorf("ResolveColumns: %w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return cols, nil
}

// minWidth is the number of fields a row needs to carry every required column.
func (c Columns) minWidth() int {
	width := 0
	for _, i := range []int{c.Date, c.Type, c.FromAmount, c.FromCurrency, c.ToAmount, c.ToCurrency} {
		if i+1 > width {
			width = i + 1
		}
	}
	return width
}

// Parse reads a Koinly CSV export. Blank rows and rows too short to carry the
// required columns are skipped. Unparseable amounts become 0, compound
// wallet and currency fields are kept verbatim, and Year is taken from the
// date when it parses.
func Parse(r io.Reader) ([]domain.TransactionRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("Parse: empty input: %w", ErrNotKoinlyCSV)
	}
	if err != nil {
		return nil, fmt.Errorf("Parse: failed to read header: %w", err)
	}
	for i := range headers {
		headers[i] = normalizeHeader(headers[i])
	}

	if !IsKoinlyCSV(headers) {
		return nil, fmt.Errorf("Parse: %w", ErrNotKoinlyCSV)
	}
	cols, err := ResolveColumns(headers)
	if err != nil {
		return nil, fmt.Errorf("Parse: %w", err)
	}
	width := cols.minWidth()

	var records []domain.TransactionRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("Parse: failed to read row: %w", err)
		}
		if isBlank(row) || len(row) < width {
			continue
		}
		records = append(records, cols.record(row))
	}
	return records, nil
}

func (c Columns) record(row []string) domain.TransactionRecord {
	rec := domain.TransactionRecord{
		Date:         field(row, c.Date),
		FromWallet:   field(row, c.FromWallet),
		ToWallet:     field(row, c.ToWallet),
		FromCurrency: field(row, c.FromCurrency),
		ToCurrency:   field(row, c.ToCurrency),
		FromAmount:   parseAmount(field(row, c.FromAmount)),
		ToAmount:     parseAmount(field(row, c.ToAmount)),
	}
	if t, ok := pipeline.ParseDate(rec.Date); ok {
		rec.Year = t.Year()
	}
	return rec
}

// FilterByCurrency keeps the records whose display currency is one of codes.
// The display currency is the from-currency code, or the to-currency code
// when the record has no from side. An empty selection keeps everything.
func FilterByCurrency(records []domain.TransactionRecord, codes []string) []domain.TransactionRecord {
	selected := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		if c = strings.ToUpper(strings.TrimSpace(c)); c != "" {
			selected[c] = struct{}{}
		}
	}
	if len(selected) == 0 {
		return append([]domain.TransactionRecord(nil), records...)
	}

	var kept []domain.TransactionRecord
	for _, r := range records {
		if _, ok := selected[strings.ToUpper(DisplayCurrency(r))]; ok {
			kept = append(kept, r)
		}
	}
	return kept
}

// Currencies returns the sorted distinct display currencies of records.
func Currencies(records []domain.TransactionRecord) []string {
	seen := make(map[string]struct{})
	var codes []string
	for _, r := range records {
		code := DisplayCurrency(r)
		if code == "" {
			continue
		}
		if _, ok := seen[code]; !ok {
			seen[code] = struct{}{}
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	return codes
}

// DisplayCurrency is the code a record is filed under in a currency filter.
func DisplayCurrency(r domain.TransactionRecord) string {
	if r.FromCurrency != "" {
		return pipeline.CurrencyCode(r.FromCurrency)
	}
	if r.ToCurrency != "" {
		return pipeline.CurrencyCode(r.ToCurrency)
	}
	return ""
}

// SplitCodes parses a comma separated currency list such as "BTC, eth".
func SplitCodes(s string) []string {
	var codes []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			codes = append(codes, strings.ToUpper(c))
		}
	}
	return codes
}

func headerSet(headers []string) map[string]struct{} {
	set := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		set[normalizeHeader(h)] = struct{}{}
	}
	return set
}

// normalizeHeader trims whitespace and a UTF-8 byte order mark.
func normalizeHeader(h string) string {
	return strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
}

func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func parseAmount(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
