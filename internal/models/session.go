package models

import "time"

// ReviewSession ties follow-up chat to a completed analysis.
type ReviewSession struct {
	ID             string             `json:"id"`
	Project        *ProjectDescriptor `json:"project"`
	Files          []*FileRecord      `json:"files"`
	Requirements   Requirements       `json:"requirements"`
	FinalFeedback  string             `json:"final_feedback"`
	History        []*ChatMessage     `json:"history"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
}

// FileByPath returns the collected file with the given relative path.
func (s *ReviewSession) FileByPath(path string) (*FileRecord, bool) {
	for _, f := range s.Files {
		if f != nil && f.Path == path {
			return f, true
		}
	}
	return nil, false
}
