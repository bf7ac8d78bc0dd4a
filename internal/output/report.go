package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/torosent/zohobooks/internal/metrics"
)

// PrintReport writes a human-readable summary of the API calls made.
func PrintReport(w io.Writer, stats metrics.Stats) {
	fmt.Fprintln(w, "\n--- Zoho Books API Requests ---")
	fmt.Fprintf(w, "Attempts:          %d\n", stats.Total)
	fmt.Fprintf(w, "Successful:        %d\n", stats.Successes)
	fmt.Fprintf(w, "Failed:            %d\n", stats.Failures)
	fmt.Fprintf(w, "Retried after 401: %d\n", stats.Retries)
	fmt.Fprintf(w, "Duration:          %s\n", stats.Duration)
	fmt.Fprintf(w, "Requests/sec:      %.2f\n", stats.RequestsPerSec)
	if stats.Total == 0 {
		return
	}

	fmt.Fprintln(w, "\nLatency:")
	fmt.Fprintf(w, "  Min:             %s\n", stats.MinLatency)
	fmt.Fprintf(w, "  Max:             %s\n", stats.MaxLatency)
	fmt.Fprintf(w, "  Mean:            %s\n", stats.MeanLatency)
	fmt.Fprintf(w, "  P50:             %s\n", stats.P50Latency)
	fmt.Fprintf(w, "  P90:             %s\n", stats.P90Latency)
	fmt.Fprintf(w, "  P99:             %s\n", stats.P99Latency)

	if len(stats.Resources) > 0 {
		fmt.Fprintln(w, "\nResources:")
		names := stats.ResourceNames()
		sort.SliceStable(names, func(i, j int) bool {
			return stats.Resources[names[i]].Total > stats.Resources[names[j]].Total
		})
		for _, name := range names {
			rs := stats.Resources[name]
			fmt.Fprintf(w, "  - %s: total=%d, failures=%d, mean=%.1fms, p99=%.1fms\n",
				name, rs.Total, rs.Failures, rs.MeanLatency, rs.P99LatencyMs)
		}
	}

	if rows := metrics.FlattenStatusBuckets(stats.StatusBuckets); len(rows) > 0 {
		fmt.Fprintln(w, "\nFailed Attempts by Status:")
		for _, row := range rows {
			fmt.Fprintf(w, "  %s %s: %d\n", row.Resource, row.Code, row.Count)
		}
	}

	if len(stats.Errors) > 0 {
		fmt.Fprintln(w, "\nErrors:")
		kinds := make([]string, 0, len(stats.Errors))
		for kind := range stats.Errors {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			fmt.Fprintf(w, "  %s: %d\n", kind, stats.Errors[kind])
		}
	}
}

// PrintJSONReport writes the statistics as indented JSON.
func PrintJSONReport(w io.Writer, stats metrics.Stats) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}
