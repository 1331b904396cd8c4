package metrics

import "sort"

// Count is one row of a flattened counter map.
type Count struct {
	Key   string
	Count int64
}

// SortedCounts converts a counter map into rows sorted by descending count,
// then by key for stability.
func SortedCounts(counts map[string]int64) []Count {
	if len(counts) == 0 {
		return nil
	}
	rows := make([]Count, 0, len(counts))
	for k, v := range counts {
		rows = append(rows, Count{Key: k, Count: v})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			return rows[i].Key < rows[j].Key
		}
		return rows[i].Count > rows[j].Count
	})
	return rows
}

// TopCounts returns at most n rows of SortedCounts.
func TopCounts(counts map[string]int64, n int) []Count {
	rows := SortedCounts(counts)
	if n >= 0 && len(rows) > n {
		rows = rows[:n]
	}
	return rows
}

// StatusCodeRows returns status code rows ordered by code, the way the live
// block lists them.
func StatusCodeRows(codes map[string]int64) []Count {
	rows := SortedCounts(codes)
	sort.SliceStable(rows, func(i, j int) bool {
		if len(rows[i].Key) != len(rows[j].Key) {
			return len(rows[i].Key) < len(rows[j].Key)
		}
		return rows[i].Key < rows[j].Key
	})
	return rows
}
