package rag

import "github.com/google/uuid"

type RetrievalStatus string

const (
	// RetrievalNotAttempted marks a query that never reached the retriever,
	// e.g. a blank question with only an image attached.
	RetrievalNotAttempted RetrievalStatus = "not_attempted"
	RetrievalNoContext    RetrievalStatus = "no_context"
	RetrievalFound        RetrievalStatus = "found"
)

type RetrievalPath string

const (
	PathVector  RetrievalPath = "vector"
	PathLexical RetrievalPath = "lexical"
	PathNone    RetrievalPath = "none"
)

type Passage struct {
	BookID   uuid.UUID
	BookName string
	Page     int
	Text     string
	Score    float64
}

// RetrievalResult is ordered by descending score.
type RetrievalResult struct {
	Status   RetrievalStatus
	Path     RetrievalPath
	Passages []Passage
}

func NotAttempted() *RetrievalResult {
	return &RetrievalResult{Status: RetrievalNotAttempted, Path: PathNone}
}

func NoContext(path RetrievalPath) *RetrievalResult {
	return &RetrievalResult{Status: RetrievalNoContext, Path: path}
}

func (r *RetrievalResult) Found() bool {
	return r != nil && r.Status == RetrievalFound && len(r.Passages) > 0
}

// Primary is the top passage; it defines the answer's provenance.
func (r *RetrievalResult) Primary() (Passage, bool) {
	if !r.Found() {
		return Passage{}, false
	}
	return r.Passages[0], true
}

func (r *RetrievalResult) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Passages)
}
