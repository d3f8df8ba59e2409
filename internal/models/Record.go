package models

import "time"

// Record is one captured version of a document. ServiceID and DocumentType
// together identify its lineage.
type Record struct {
	ID           string    `json:"id"`
	ServiceID    string    `json:"service_id"`
	DocumentType string    `json:"document_type"`
	MimeType     string    `json:"mime_type"`
	FetchDate    time.Time `json:"fetch_date"`
	Content      []byte    `json:"content,omitempty"`
	// IsFirstRecord is computed on save when left nil.
	IsFirstRecord *bool  `json:"is_first_record,omitempty"`
	IsRefilter    bool   `json:"is_refilter,omitempty"`
	SnapshotID    string `json:"snapshot_id,omitempty"`
}

func (r Record) First() bool {
	return r.IsFirstRecord != nil && *r.IsFirstRecord
}

func (r Record) HasContent() bool {
	return r.Content != nil
}

// Text returns the content decoded as text.
func (r Record) Text() string {
	return string(r.Content)
}

// WithoutContent returns a copy carrying metadata only.
func (r Record) WithoutContent() Record {
	r.Content = nil
	return r
}

func Bool(v bool) *bool {
	return &v
}
