package metrics

import (
	"net/http"
	"sort"
)

// StatusBucket is the failure count for one resource and status.
type StatusBucket struct {
	Resource string
	Code     string
	Count    int
}

// FlattenStatusBuckets converts a resource->status map into rows sorted by
// descending count, then by resource and code.
func FlattenStatusBuckets(buckets map[string]map[string]int) []StatusBucket {
	if len(buckets) == 0 {
		return nil
	}
	var rows []StatusBucket
	for resource, codes := range buckets {
		for code, count := range codes {
			rows = append(rows, StatusBucket{Resource: resource, Code: code, Count: count})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		if rows[i].Resource != rows[j].Resource {
			return rows[i].Resource < rows[j].Resource
		}
		return rows[i].Code < rows[j].Code
	})
	return rows
}

func statusText(code int) string {
	if text := http.StatusText(code); text != "" {
		return text
	}
	return "Unknown status"
}
