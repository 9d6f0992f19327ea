package model

import "time"

// InterviewExport is the top-level JSON structure for session export.
type InterviewExport struct {
	ExportID    string          `json:"export_id"`
	GeneratedAt time.Time       `json:"generated_at"`
	NumSessions int             `json:"num_sessions"`
	Results     []SessionResult `json:"results"`
}

// SessionResult holds one session's data for export.
type SessionResult struct {
	SessionID       int64            `json:"session_id"`
	UserName        string           `json:"user_name"`
	UserEmail       string           `json:"user_email"`
	ExperienceLevel ExperienceLevel  `json:"experience_level"`
	SessionNumber   int              `json:"session_number"`
	Domain          string           `json:"domain"`
	SessionDate     time.Time        `json:"session_date"`
	QuestionsAsked  int              `json:"questions_asked"`
	AvgScore        float64          `json:"avg_score"`
	DurationSeconds int              `json:"session_duration"`
	Questions       []QuestionResult `json:"questions"`
}

// QuestionResult holds per-question data for export.
type QuestionResult struct {
	Text       string       `json:"text"`
	Type       QuestionType `json:"type"`
	Difficulty Difficulty   `json:"difficulty"`
	Keywords   []string     `json:"expected_keywords"`
	Answer     string       `json:"answer,omitempty"`
	AnsweredAt *time.Time   `json:"answered_at,omitempty"`
	Evaluation *Evaluation  `json:"evaluation,omitempty"`
}
