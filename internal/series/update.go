package series

import (
	"time"

	"agrimarket/internal/model"
)

// Update is the compact form of a refreshed series pushed to live
// subscribers: the newest record plus per-commodity stats.
type Update struct {
	Range       model.TimeRange `json:"range"`
	GeneratedAt time.Time       `json:"generated_at"`
	Records     int             `json:"records"`
	Latest      *Record         `json:"latest,omitempty"`
	Stats       []Stats         `json:"stats"`
}

// NewUpdate condenses s.
func NewUpdate(s *Series) Update {
	u := Update{
		Range:       s.Range,
		GeneratedAt: s.GeneratedAt,
		Records:     s.Len(),
		Stats:       SummarizeAll(s),
	}
	if n := s.Len(); n > 0 {
		last := s.Records[n-1]
		u.Latest = &last
	}
	return u
}
