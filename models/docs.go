package models

// DocEntry is one page of the cached documentation index.
type DocEntry struct {
	ID   int64  `json:"-" db:"id"`
	Name string `json:"name" db:"name"` // Unique
	Link string `json:"link" db:"link"`
}

// DocsSyncStatus describes the outcome of one documentation sync.
type DocsSyncStatus struct {
	URL            string `json:"url"`
	UsedETagHeader bool   `json:"used_etag_header"`
	ResponseStatus int    `json:"response_status"`
	CurrentETag    string `json:"current_etag"`
	ResponseETag   string `json:"response_etag"`
	DocsCount      int    `json:"docs_count"`
	Error          string `json:"error,omitempty"`
}
