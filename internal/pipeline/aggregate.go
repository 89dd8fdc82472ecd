package pipeline

import (
	"time"

	"github.com/dvloznov/walletflow/internal/domain"
)

// Aggregate sums same-direction transactions within each period bucket.
// Records sharing a DirectionKey in a bucket collapse into one record that
// copies the first record's non-amount fields and carries the summed
// amounts; unparseable (NaN) amounts count as 0. Aggregation never crosses
// bucket boundaries and never merges A→B with B→A; that is Offset's job.
//
// PeriodNone skips aggregation: the records are returned unchanged.
func Aggregate(records []domain.TransactionRecord, period Period) []domain.TransactionRecord {
	return aggregateAt(records, period, time.Now())
}

func aggregateAt(records []domain.TransactionRecord, period Period, ref time.Time) []domain.TransactionRecord {
	if period == PeriodNone {
		return append([]domain.TransactionRecord(nil), records...)
	}

	groups := groupByPeriodAt(records, period, ref)
	result := make([]domain.TransactionRecord, 0, len(records))
	for _, key := range SortedPeriodKeys(groups) {
		result = append(result, aggregateBucket(groups[key])...)
	}
	return result
}

// aggregateBucket aggregates the records of a single period bucket.
// Direction groups are emitted in order of first appearance.
func aggregateBucket(bucket []domain.TransactionRecord) []domain.TransactionRecord {
	var order []DirectionKey
	groups := make(map[DirectionKey][]domain.TransactionRecord)
	for _, r := range bucket {
		key := DirectionKeyOf(r)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], r)
	}

	result := make([]domain.TransactionRecord, 0, len(order))
	for _, key := range order {
		group := groups[key]
		if len(group) == 1 {
			result = append(result, group[0])
			continue
		}

		var totalFrom, totalTo float64
		for _, r := range group {
			totalFrom += amountOrZero(r.FromAmount)
			totalTo += amountOrZero(r.ToAmount)
		}
		result = append(result, group[0].WithAmounts(totalFrom, totalTo))
	}
	return result
}
