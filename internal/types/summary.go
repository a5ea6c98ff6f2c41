package types

// SourceError is one per-source failure reported by the collector.
type SourceError struct {
	Source  string `json:"source"`
	Message string `json:"message"`
}

// IngestSummary is returned by one scrape-admit-relocate-insert run.
type IngestSummary struct {
	RunID              string        `json:"run_id"`
	Scraped            int           `json:"scraped"`
	Admitted           int           `json:"admitted"`
	SkippedURL         int           `json:"skipped_url"`
	SkippedDescription int           `json:"skipped_description"`
	SkippedInBatch     int           `json:"skipped_in_batch"`
	Relocated          int           `json:"relocated"`
	NewRecordIDs       []int64       `json:"new_record_ids"`
	SourceErrors       []SourceError `json:"source_errors,omitempty"`
	Errors             []string      `json:"errors,omitempty"`
}

// EnrichSummary is returned by one batch extraction and delivery run.
type EnrichSummary struct {
	RunID     string   `json:"run_id"`
	Requested int      `json:"requested"`
	Extracted int      `json:"extracted"`
	Updated   int      `json:"updated"`
	Delivery  Delivery `json:"delivery"`
	Errors    []string `json:"errors,omitempty"`
}

// Delivery is the outcome of one delivery gate pass.
type Delivery struct {
	Selected  int      `json:"selected"`
	Delivered int      `json:"delivered"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}
