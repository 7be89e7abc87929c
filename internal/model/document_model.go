package model

import (
	"encoding/json"
	"strings"
	"time"
)

type Document struct {
	Id           int64     `json:"id"`
	Title        string    `json:"title"`
	Category     string    `json:"category"`
	ContentRef   string    `json:"contentRef,omitempty"`
	DownloadLink string    `json:"downloadLink"`
	CreatedAt    Timestamp `json:"createdAt"`
	LastAccessed Timestamp `json:"lastAccessed"`
}

type DocumentPage struct {
	Documents   []Document `json:"pdfs"`
	TotalPages  int        `json:"totalPages"`
	CurrentPage int        `json:"currentPage"`
}

// Recommendation is a dashboard suggestion; quiz results carry the lighter DocumentRecommendation.
type Recommendation struct {
	PdfId     int64     `json:"pdfId"`
	Title     string    `json:"title"`
	Reason    string    `json:"reason"`
	Category  string    `json:"category"`
	Timestamp Timestamp `json:"timestamp"`
}

// Timestamp accepts RFC3339 as well as zone-less "2006-01-02T15:04:05[.fff]" values,
// which is what the remote service emits for local date-times.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		// null or a non-string value leaves the zero time
		return nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return &time.ParseError{Layout: time.RFC3339, Value: raw, Message: ": unsupported timestamp format"}
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.Format(time.RFC3339))
}
