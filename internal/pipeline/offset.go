package pipeline

import (
	"time"

	"github.com/dvloznov/walletflow/internal/domain"
)

// Offset nets reverse transactions against each other within each calendar
// year. See OffsetByPeriod.
func Offset(records []domain.TransactionRecord) []domain.TransactionRecord {
	return OffsetByPeriod(records, PeriodYear)
}

// OffsetByPeriod nets reverse transactions within each period bucket; records
// in different buckets never net against each other.
//
// Inside a bucket, records are grouped by TransactionKey. Within a group the
// first unconsumed record is paired greedily with the first later unconsumed
// record that is its exact directional inverse. The pair is replaced by a
// residual expressed in the direction of the larger leg, or dropped entirely
// when the residual is not strictly positive on both legs. Unmatched records
// pass through unchanged.
func OffsetByPeriod(records []domain.TransactionRecord, period Period) []domain.TransactionRecord {
	return offsetAt(records, period, time.Now())
}

func offsetAt(records []domain.TransactionRecord, period Period, ref time.Time) []domain.TransactionRecord {
	groups := groupByPeriodAt(records, period, ref)
	result := make([]domain.TransactionRecord, 0, len(records))
	for _, key := range SortedPeriodKeys(groups) {
		result = append(result, offsetBucket(groups[key])...)
	}
	return result
}

// offsetBucket nets the records of a single period bucket. Key groups are
// processed in order of first appearance.
func offsetBucket(bucket []domain.TransactionRecord) []domain.TransactionRecord {
	var order []TransactionKey
	groups := make(map[TransactionKey][]int)
	for i, r := range bucket {
		key := TransactionKeyOf(r)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}

	consumed := make([]bool, len(bucket))
	result := make([]domain.TransactionRecord, 0, len(bucket))

	for _, key := range order {
		idx := groups[key]
		if len(idx) == 1 {
			result = append(result, bucket[idx[0]])
			consumed[idx[0]] = true
			continue
		}

		for i, i1 := range idx {
			if consumed[i1] {
				continue
			}
			r1 := bucket[i1]

			matched := false
			for _, i2 := range idx[i+1:] {
				if consumed[i2] {
					continue
				}
				r2 := bucket[i2]
				if !IsReverse(r1, r2) {
					continue
				}

				if residual, ok := netPair(r1, r2); ok {
					result = append(result, residual)
				}
				consumed[i1] = true
				consumed[i2] = true
				matched = true
				break
			}

			if !matched {
				result = append(result, r1)
				consumed[i1] = true
			}
		}
	}
	return result
}

// netPair computes the residual of two reverse transactions. The residual
// takes r2's direction when r2 sent more than r1 received, r1's direction
// otherwise. ok is false when the pair cancels out.
func netPair(r1, r2 domain.TransactionRecord) (domain.TransactionRecord, bool) {
	var residual domain.TransactionRecord
	if r2.FromAmount > r1.ToAmount {
		residual = r2.WithAmounts(r2.FromAmount-r1.ToAmount, r2.ToAmount-r1.FromAmount)
	} else {
		residual = r1.WithAmounts(r1.FromAmount-r2.ToAmount, r1.ToAmount-r2.FromAmount)
	}

	// No tolerance: a float leftover such as 1e-17 still survives.
	if residual.FromAmount > 0 && residual.ToAmount > 0 {
		return residual, true
	}
	return domain.TransactionRecord{}, false
}
