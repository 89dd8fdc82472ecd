package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dvloznov/walletflow/internal/domain"
)

// Period is the granularity of the buckets that aggregation and netting are
// scoped to.
type Period string

const (
	// PeriodNone disables aggregation and netting; records are still listed
	// per day since no finer granularity exists in the data.
	PeriodNone Period = "none"
	// PeriodDay buckets by calendar day (YYYY-MM-DD).
	PeriodDay Period = "day"
	// PeriodMonth buckets by calendar month (YYYY-MM).
	PeriodMonth Period = "month"
	// PeriodYear buckets by calendar year (YYYY).
	PeriodYear Period = "year"
)

// DefaultPeriod is used when no period is requested.
const DefaultPeriod = PeriodYear

// Valid reports whether p is one of the known periods.
func (p Period) Valid() bool {
	switch p {
	case PeriodNone, PeriodDay, PeriodMonth, PeriodYear:
		return true
	}
	return false
}

// ParsePeriod parses a user-supplied period name, case-insensitively.
// The empty string yields DefaultPeriod.
func ParsePeriod(s string) (Period, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultPeriod, nil
	}
	p := Period(s)
	if !p.Valid() {
		return "", fmt.Errorf("ParsePeriod: unknown period %q (want none, day, month or year)", s)
	}
	return p, nil
}

// dateLayouts lists the date formats found in Koinly exports and API input.
// All of them are interpreted in UTC.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
}

// ParseDate parses a transaction date string. The second result is false
// when the string is empty or matches none of the known layouts.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// resolveDate picks the date a record is bucketed by: its own date, else
// January 1st of its year, else the reference time of the current run.
func resolveDate(r domain.TransactionRecord, ref time.Time) time.Time {
	if t, ok := ParseDate(r.Date); ok {
		return t
	}
	if r.Year > 0 && r.Year <= 9999 {
		return time.Date(r.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return ref.UTC()
}

// PeriodKey returns the bucket key of r. Keys are zero-padded so that
// lexicographic order is chronological order.
func PeriodKey(r domain.TransactionRecord, period Period, ref time.Time) string {
	date := resolveDate(r, ref)
	switch period {
	case PeriodYear:
		return date.Format("2006")
	case PeriodMonth:
		return date.Format("2006-01")
	default:
		// day, and none which lists records per day
		return date.Format("2006-01-02")
	}
}

// GroupByPeriod buckets records by period key. Each bucket keeps the input
// order of its records. Records without any usable date fall into the bucket
// of the current day.
func GroupByPeriod(records []domain.TransactionRecord, period Period) map[string][]domain.TransactionRecord {
	return groupByPeriodAt(records, period, time.Now())
}

func groupByPeriodAt(records []domain.TransactionRecord, period Period, ref time.Time) map[string][]domain.TransactionRecord {
	groups := make(map[string][]domain.TransactionRecord)
	for _, r := range records {
		key := PeriodKey(r, period, ref)
		groups[key] = append(groups[key], r)
	}
	return groups
}

// SortedPeriodKeys returns the keys of groups in ascending (chronological) order.
func SortedPeriodKeys(groups map[string][]domain.TransactionRecord) []string {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
