// Package metrics aggregates the per-attempt observations of a Zoho Books
// client into latency percentiles and failure breakdowns.
//
// A [Collector] is installed with books.WithRecorder and read once the work
// is done:
//
//	collector := metrics.NewCollector()
//	client, _ := books.New(orgID, provider, books.WithRecorder(collector))
//	// ... calls ...
//	stats := collector.Stats(time.Since(start))
//
// Stats are broken down per resource ("invoices", "taxes", ...), by HTTP
// status for failed attempts and by error kind. Attempts that were retries
// after a 401 are counted separately.
//
// The Collector is safe for concurrent use.
package metrics
