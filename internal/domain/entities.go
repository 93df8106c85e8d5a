package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Field limits of a persisted log record, in characters.
const (
	MaxLogIDLen    = 10
	MaxQuestionLen = 500
	MaxAnswerLen   = 1000
)

type Document struct {
	ID      string
	Path    string
	Text    string
	ModTime time.Time
}

type Chunk struct {
	ID    string
	DocID string
	Path  string
	Seq   int
	Start int // rune offset into the document text
	End   int
	Text  string
}

type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// LogRecord is one answered question. ID is assigned by the store on append.
type LogRecord struct {
	ID       uint64    `json:"id"`
	LogID    string    `json:"logid"`
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	Date     time.Time `json:"date"`
}

type IndexStats struct {
	Documents int
	Chunks    int
	Dimension int
}

// NewLogRecord builds a record field by field, rejecting values the store
// could not hold instead of truncating them.
func NewLogRecord(logID, question, answer string, date time.Time) (LogRecord, error) {
	if err := ValidateQuestion(logID, question); err != nil {
		return LogRecord{}, err
	}
	if n := utf8.RuneCountInString(answer); n > MaxAnswerLen {
		return LogRecord{}, fmt.Errorf("%w: answer is %d characters, limit is %d", ErrValidation, n, MaxAnswerLen)
	}
	if date.IsZero() {
		return LogRecord{}, fmt.Errorf("%w: date is required", ErrValidation)
	}
	return LogRecord{
		LogID:    logID,
		Question: question,
		Answer:   answer,
		Date:     date.UTC(),
	}, nil
}

// ValidateQuestion checks the fields a caller supplies before the pipeline runs.
func ValidateQuestion(logID, question string) error {
	if strings.TrimSpace(logID) == "" {
		return fmt.Errorf("%w: logid is required", ErrValidation)
	}
	if n := utf8.RuneCountInString(logID); n > MaxLogIDLen {
		return fmt.Errorf("%w: logid is %d characters, limit is %d", ErrValidation, n, MaxLogIDLen)
	}
	if strings.TrimSpace(question) == "" {
		return fmt.Errorf("%w: question is required", ErrValidation)
	}
	if n := utf8.RuneCountInString(question); n > MaxQuestionLen {
		return fmt.Errorf("%w: question is %d characters, limit is %d", ErrValidation, n, MaxQuestionLen)
	}
	return nil
}
