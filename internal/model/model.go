package model

import (
	"slices"
	"time"
)

// Limits shared by the session manager and the evaluator.
const (
	MaxQuestionsPerSession = 10
	DefaultQuestionsPerRun = 5
	DefaultMinAnswerLength = 10
)

// ExperienceLevel is a candidate's self-reported seniority.
type ExperienceLevel string

const (
	LevelBeginner     ExperienceLevel = "Beginner"
	LevelIntermediate ExperienceLevel = "Intermediate"
	LevelAdvanced     ExperienceLevel = "Advanced"
)

// ExperienceLevels lists the accepted experience levels in display order.
var ExperienceLevels = []ExperienceLevel{LevelBeginner, LevelIntermediate, LevelAdvanced}

// SupportedDomains lists the interview domains a profile may target.
var SupportedDomains = []string{
	"Software Engineering",
	"Data Science",
	"Product Management",
	"Marketing",
	"Finance",
	"Human Resources",
	"Sales",
	"Design",
}

// IsSupportedDomain reports whether d is one of SupportedDomains.
func IsSupportedDomain(d string) bool {
	return slices.Contains(SupportedDomains, d)
}

// IsValidExperienceLevel reports whether l is one of ExperienceLevels.
func IsValidExperienceLevel(l ExperienceLevel) bool {
	return slices.Contains(ExperienceLevels, l)
}

// User is a candidate profile.
type User struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Email           string          `json:"email"`
	Domain          string          `json:"domain"`
	ExperienceLevel ExperienceLevel `json:"experience_level"`
	CreatedAt       time.Time       `json:"created_at"`
}

// QuestionType classifies an interview question.
type QuestionType string

const (
	TypeTechnical   QuestionType = "technical"
	TypeBehavioral  QuestionType = "behavioral"
	TypeSituational QuestionType = "situational"
)

// QuestionTypes lists all question types in their canonical order.
var QuestionTypes = []QuestionType{TypeTechnical, TypeBehavioral, TypeSituational}

// IsValidQuestionType reports whether t is a known question type.
func IsValidQuestionType(t QuestionType) bool {
	return slices.Contains(QuestionTypes, t)
}

// Difficulty represents question difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Question is an interview question issued to a session.
// SampleAnswer and Criteria are optional; empty means absent.
type Question struct {
	ID           int64        `json:"id"`
	Text         string       `json:"question"`
	Type         QuestionType `json:"type"`
	Difficulty   Difficulty   `json:"difficulty"`
	Keywords     []string     `json:"expected_keywords"`
	Criteria     []string     `json:"evaluation_criteria,omitempty"`
	SampleAnswer string       `json:"sample_answer,omitempty"`
}

// QuestionRequest describes the questions a session needs from a question source.
type QuestionRequest struct {
	Domain          string
	ExperienceLevel ExperienceLevel
	JobContext      string
	Count           int
	Types           []QuestionType
	Progression     bool
}

// Answer is a candidate's free-text response to one question.
type Answer struct {
	QuestionID  int64     `json:"question_id"`
	Text        string    `json:"answer"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// PerformanceLevel is a discrete band derived from a score.
type PerformanceLevel string

const (
	PerformanceExcellent        PerformanceLevel = "Excellent"
	PerformanceGood             PerformanceLevel = "Good"
	PerformanceFair             PerformanceLevel = "Fair"
	PerformanceAverage          PerformanceLevel = "Average"
	PerformanceNeedsImprovement PerformanceLevel = "Needs Improvement"
)

// LevelFor maps an overall score to its performance level and color tag.
func LevelFor(score float64) (PerformanceLevel, string) {
	switch {
	case score >= 0.8:
		return PerformanceExcellent, "green"
	case score >= 0.6:
		return PerformanceGood, "blue"
	case score >= 0.4:
		return PerformanceFair, "orange"
	default:
		return PerformanceNeedsImprovement, "red"
	}
}

// CategoryFor maps a composite NLP score to its category.
func CategoryFor(score float64) PerformanceLevel {
	switch {
	case score >= 0.8:
		return PerformanceExcellent
	case score >= 0.6:
		return PerformanceGood
	case score >= 0.4:
		return PerformanceAverage
	default:
		return PerformanceNeedsImprovement
	}
}

// RougeScores holds the ROUGE-style overlap family.
type RougeScores struct {
	Rouge1 float64 `json:"rouge1"`
	Rouge2 float64 `json:"rouge2"`
	RougeL float64 `json:"rougeL"`
}

// F1Metrics holds the single-pair quality comparison.
type F1Metrics struct {
	Accuracy        float64 `json:"accuracy"`
	F1              float64 `json:"f1_score"`
	Correlation     float64 `json:"correlation"`
	MeanPrediction  float64 `json:"mean_prediction"`
	MeanGroundTruth float64 `json:"mean_ground_truth"`
}

// NLPMetrics is the lexical-overlap sub-score block of an evaluation.
type NLPMetrics struct {
	Rouge     RougeScores      `json:"rouge"`
	BLEU      float64          `json:"bleu"`
	F1        F1Metrics        `json:"f1"`
	Composite float64          `json:"composite_score"`
	Category  PerformanceLevel `json:"performance_category"`
}

// Evaluation is the immutable scoring result for one answer.
type Evaluation struct {
	QuestionID   int64            `json:"question_id,omitempty"`
	Semantic     float64          `json:"semantic_score"`
	Keyword      float64          `json:"keyword_score"`
	Structure    float64          `json:"structure_score"`
	Overall      float64          `json:"overall_score"`
	Level        PerformanceLevel `json:"performance_level"`
	Color        string           `json:"color"`
	Feedback     string           `json:"feedback"`
	Strengths    []string         `json:"strengths"`
	Improvements []string         `json:"improvements"`
	NLP          *NLPMetrics      `json:"nlp_metrics,omitempty"`
}

// SessionStatus is the lifecycle state of an interview session.
type SessionStatus string

const (
	StatusActive     SessionStatus = "active"
	StatusPaused     SessionStatus = "paused"
	StatusCompleted  SessionStatus = "completed"
	StatusEndedEarly SessionStatus = "ended_early"
	StatusCancelled  SessionStatus = "cancelled"
)

// Terminal reports whether no further transitions are possible from s.
func (s SessionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusEndedEarly || s == StatusCancelled
}

// Preferences configures question selection for a session.
type Preferences struct {
	NumQuestions          int            `json:"num_questions"`
	QuestionTypes         []QuestionType `json:"question_types"`
	DifficultyProgression bool           `json:"difficulty_progression"`
}

// DefaultPreferences returns the preferences used when the caller sends none.
func DefaultPreferences() Preferences {
	return Preferences{
		NumQuestions:          DefaultQuestionsPerRun,
		QuestionTypes:         slices.Clone(QuestionTypes),
		DifficultyProgression: true,
	}
}

// Session is one interview-practice run. Answers and Evaluations are
// index-aligned with Questions and always have length Cursor.
type Session struct {
	ID              int64           `json:"session_id"`
	UserID          int64           `json:"user_id"`
	UserName        string          `json:"user_name"`
	ExperienceLevel ExperienceLevel `json:"experience_level"`
	Domain          string          `json:"domain"`
	JobContext      string          `json:"job_context,omitempty"`
	Questions       []Question      `json:"questions"`
	Cursor          int             `json:"current_question_index"`
	Answers         []Answer        `json:"answers"`
	Evaluations     []Evaluation    `json:"evaluations"`
	Status          SessionStatus   `json:"status"`
	StartedAt       time.Time       `json:"start_time"`
	EndedAt         *time.Time      `json:"end_time,omitempty"`
	Preferences     Preferences     `json:"preferences"`
}

// Progress returns the answered fraction of the session.
func (s *Session) Progress() float64 {
	if len(s.Questions) == 0 {
		return 0
	}
	return float64(s.Cursor) / float64(len(s.Questions))
}

// CurrentQuestion returns the next unanswered question, if any.
func (s *Session) CurrentQuestion() (Question, bool) {
	if s.Cursor >= len(s.Questions) {
		return Question{}, false
	}
	return s.Questions[s.Cursor], true
}

// Clone returns a copy that shares no slices with s.
func (s *Session) Clone() *Session {
	c := *s
	c.Questions = slices.Clone(s.Questions)
	c.Answers = slices.Clone(s.Answers)
	c.Evaluations = slices.Clone(s.Evaluations)
	c.Preferences.QuestionTypes = slices.Clone(s.Preferences.QuestionTypes)
	if s.EndedAt != nil {
		t := *s.EndedAt
		c.EndedAt = &t
	}
	return &c
}

// Area names used for strongest/weakest reporting.
const (
	AreaContentRelevance       = "Content Relevance"
	AreaTechnicalKnowledge     = "Technical Knowledge"
	AreaCommunicationStructure = "Communication Structure"
	AreaNone                   = "None"
)

// Distribution counts evaluations per overall-score bucket.
type Distribution struct {
	Excellent        int `json:"excellent"`
	Good             int `json:"good"`
	Fair             int `json:"fair"`
	NeedsImprovement int `json:"needs_improvement"`
}

// SessionMetrics is a derived view over a session's evaluations.
type SessionMetrics struct {
	SessionAverage   float64      `json:"session_average"`
	SemanticAverage  float64      `json:"semantic_average"`
	KeywordAverage   float64      `json:"keyword_average"`
	StructureAverage float64      `json:"structure_average"`
	StrongestArea    string       `json:"strongest_area"`
	WeakestArea      string       `json:"weakest_area"`
	TotalQuestions   int          `json:"total_questions"`
	Distribution     Distribution `json:"performance_distribution"`
}

// SessionSummary is returned when the last question is answered.
type SessionSummary struct {
	TotalQuestions   int              `json:"total_questions"`
	AverageScore     float64          `json:"average_score"`
	DurationMinutes  float64          `json:"duration_minutes"`
	StrongestArea    string           `json:"strongest_area"`
	WeakestArea      string           `json:"weakest_area"`
	PerformanceLevel PerformanceLevel `json:"performance_level"`
	Metrics          SessionMetrics   `json:"detailed_metrics"`
	Feedback         string           `json:"comprehensive_feedback"`
	Recommendations  []string         `json:"recommendations"`
}

// PartialSummary is returned when a session ends before the last question.
type PartialSummary struct {
	QuestionsAnswered int     `json:"questions_answered"`
	TotalQuestions    int     `json:"total_questions"`
	AverageScore      float64 `json:"average_score"`
	Message           string  `json:"message"`
}

// SessionRecord is the durable row of a session.
type SessionRecord struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id"`
	SessionDate     time.Time `json:"session_date"`
	Domain          string    `json:"domain"`
	JobContext      string    `json:"job_context,omitempty"`
	QuestionsAsked  int       `json:"questions_asked"`
	AvgScore        float64   `json:"avg_score"`
	DurationSeconds int       `json:"session_duration"`
}

// AnswerRecord is a persisted answer with the scores stored next to it.
// Evaluation is nil for rows written without the full payload.
type AnswerRecord struct {
	ID         int64
	QuestionID int64
	Text       string
	Semantic   float64
	Keyword    float64
	Structure  float64
	Overall    float64
	Feedback   string
	AnsweredAt time.Time
	Evaluation *Evaluation
}

// SessionProgress is one row of a user's session history.
type SessionProgress struct {
	SessionID      int64     `json:"session_id"`
	SessionDate    time.Time `json:"session_date"`
	Domain         string    `json:"domain"`
	QuestionsAsked int       `json:"questions_asked"`
	AverageScore   *float64  `json:"session_avg_score"`
}

// UserAnalytics summarizes a user's practice history.
type UserAnalytics struct {
	TotalSessions    int               `json:"total_sessions"`
	AverageScore     float64           `json:"average_score"`
	ImprovementTrend string            `json:"improvement_trend"`
	RecentSessions   []SessionProgress `json:"recent_sessions"`
	ScoreHistory     []float64         `json:"score_history"`
}
