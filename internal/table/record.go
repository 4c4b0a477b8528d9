package table

import "xpug.it/stationagg/internal/fixedpoint"

// Record holds the running statistics of one key. All values are scaled by ten.
type Record struct {
	Min, Max int64
	Sum      int64
	Count    uint64
}

func newRecord(v int64) Record {
	return Record{Min: v, Max: v, Sum: v, Count: 1}
}

// Add folds v into the record.
func (r *Record) Add(v int64) {
	if v < r.Min {
		r.Min = v
	}
	if v > r.Max {
		r.Max = v
	}
	r.Sum += v
	r.Count++
}

// Mean returns the exact mean, scaled by ten and rounded to an integer.
func (r Record) Mean(mode fixedpoint.RoundMode) int64 {
	return fixedpoint.Quo(r.Sum, r.Count, mode)
}
