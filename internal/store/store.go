package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/pavelanni/interviewer/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT UNIQUE,
		domain TEXT NOT NULL,
		experience_level TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		session_date DATETIME NOT NULL,
		domain TEXT NOT NULL,
		job_context TEXT NOT NULL DEFAULT '',
		questions_asked INTEGER NOT NULL DEFAULT 0,
		avg_score REAL NOT NULL DEFAULT 0.0,
		session_duration INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id INTEGER NOT NULL,
		question_text TEXT NOT NULL,
		question_type TEXT NOT NULL,
		difficulty_level TEXT NOT NULL,
		expected_keywords TEXT NOT NULL DEFAULT '[]',
		evaluation_criteria TEXT NOT NULL DEFAULT '[]',
		sample_answer TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (session_id) REFERENCES sessions(id)
	);

	CREATE TABLE IF NOT EXISTS answers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		question_id INTEGER NOT NULL,
		user_answer TEXT NOT NULL,
		semantic_score REAL,
		keyword_score REAL,
		structure_score REAL,
		overall_score REAL,
		feedback TEXT,
		answered_at DATETIME NOT NULL,
		evaluation TEXT,
		FOREIGN KEY (question_id) REFERENCES questions(id)
	);

	CREATE INDEX IF NOT EXISTS idx_questions_session ON questions(session_id);
	CREATE INDEX IF NOT EXISTS idx_answers_question ON answers(question_id);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateSession stores a session row and one row per question in a single
// transaction. It returns the session ID and the questions with their IDs set.
func (s *Store) CreateSession(userID int64, domain, jobContext string, startedAt time.Time, questions []model.Question) (int64, []model.Question, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, nil, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO sessions (user_id, session_date, domain, job_context) VALUES (?, ?, ?, ?)`,
		userID, startedAt, domain, jobContext,
	)
	if err != nil {
		return 0, nil, fmt.Errorf("insert session: %w", err)
	}
	sessionID, err := res.LastInsertId()
	if err != nil {
		return 0, nil, err
	}

	stored := make([]model.Question, len(questions))
	for i, q := range questions {
		keywords, err := encodeList(q.Keywords)
		if err != nil {
			return 0, nil, err
		}
		criteria, err := encodeList(q.Criteria)
		if err != nil {
			return 0, nil, err
		}
		res, err := tx.Exec(
			`INSERT INTO questions (session_id, question_text, question_type, difficulty_level,
			 expected_keywords, evaluation_criteria, sample_answer)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			sessionID, q.Text, q.Type, q.Difficulty, keywords, criteria, q.SampleAnswer,
		)
		if err != nil {
			return 0, nil, fmt.Errorf("insert question: %w", err)
		}
		q.ID, err = res.LastInsertId()
		if err != nil {
			return 0, nil, err
		}
		stored[i] = q
	}

	if err := tx.Commit(); err != nil {
		return 0, nil, err
	}
	slog.Debug("created session", "id", sessionID, "user_id", userID, "questions", len(stored))
	return sessionID, stored, nil
}

// GetSession returns the session row. It returns sql.ErrNoRows when missing.
func (s *Store) GetSession(id int64) (*model.SessionRecord, error) {
	var r model.SessionRecord
	err := s.db.QueryRow(
		`SELECT id, user_id, session_date, domain, job_context, questions_asked, avg_score, session_duration
		 FROM sessions WHERE id = ?`, id,
	).Scan(&r.ID, &r.UserID, &r.SessionDate, &r.Domain, &r.JobContext, &r.QuestionsAsked, &r.AvgScore, &r.DurationSeconds)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListSessions returns all session rows, newest first.
func (s *Store) ListSessions() ([]model.SessionRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, session_date, domain, job_context, questions_asked, avg_score, session_duration
		 FROM sessions ORDER BY session_date DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.SessionRecord
	for rows.Next() {
		var r model.SessionRecord
		if err := rows.Scan(&r.ID, &r.UserID, &r.SessionDate, &r.Domain, &r.JobContext, &r.QuestionsAsked, &r.AvgScore, &r.DurationSeconds); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// FinishSession records the outcome of a completed or ended session.
func (s *Store) FinishSession(id int64, questionsAsked int, avgScore float64, duration time.Duration) error {
	res, err := s.db.Exec(
		`UPDATE sessions SET questions_asked = ?, avg_score = ?, session_duration = ? WHERE id = ?`,
		questionsAsked, avgScore, int(duration.Seconds()), id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// GetSessionQuestions returns a session's questions in creation order.
func (s *Store) GetSessionQuestions(sessionID int64) ([]model.Question, error) {
	rows, err := s.db.Query(
		`SELECT id, question_text, question_type, difficulty_level, expected_keywords, evaluation_criteria, sample_answer
		 FROM questions WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Question
	for rows.Next() {
		var (
			q                  model.Question
			keywords, criteria string
		)
		if err := rows.Scan(&q.ID, &q.Text, &q.Type, &q.Difficulty, &keywords, &criteria, &q.SampleAnswer); err != nil {
			return nil, err
		}
		if q.Keywords, err = decodeList(keywords); err != nil {
			return nil, fmt.Errorf("question %d keywords: %w", q.ID, err)
		}
		if q.Criteria, err = decodeList(criteria); err != nil {
			return nil, fmt.Errorf("question %d criteria: %w", q.ID, err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// SaveAnswer stores an answer with its evaluation. The four scores and
// feedback go to their own columns; the full evaluation is kept as JSON.
func (s *Store) SaveAnswer(a model.Answer, ev model.Evaluation) (int64, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return 0, fmt.Errorf("marshal evaluation: %w", err)
	}
	res, err := s.db.Exec(
		`INSERT INTO answers (question_id, user_answer, semantic_score, keyword_score, structure_score,
		 overall_score, feedback, answered_at, evaluation)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.QuestionID, a.Text, ev.Semantic, ev.Keyword, ev.Structure, ev.Overall, ev.Feedback, a.SubmittedAt, string(payload),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetSessionAnswers returns the answers of a session ordered by answer time.
func (s *Store) GetSessionAnswers(sessionID int64) ([]model.AnswerRecord, error) {
	rows, err := s.db.Query(
		`SELECT a.id, a.question_id, a.user_answer,
		        COALESCE(a.semantic_score, 0), COALESCE(a.keyword_score, 0),
		        COALESCE(a.structure_score, 0), COALESCE(a.overall_score, 0),
		        COALESCE(a.feedback, ''), a.answered_at, a.evaluation
		 FROM answers a JOIN questions q ON q.id = a.question_id
		 WHERE q.session_id = ?
		 ORDER BY a.answered_at, a.id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AnswerRecord
	for rows.Next() {
		var (
			r       model.AnswerRecord
			payload sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.QuestionID, &r.Text, &r.Semantic, &r.Keyword, &r.Structure,
			&r.Overall, &r.Feedback, &r.AnsweredAt, &payload); err != nil {
			return nil, err
		}
		if payload.Valid && payload.String != "" {
			var ev model.Evaluation
			if err := json.Unmarshal([]byte(payload.String), &ev); err != nil {
				slog.Warn("discarding unreadable evaluation payload", "answer_id", r.ID, "error", err)
			} else {
				r.Evaluation = &ev
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UserProgress returns a user's sessions in chronological order with the
// mean overall score of each session's answers (nil when unanswered).
func (s *Store) UserProgress(userID int64) ([]model.SessionProgress, error) {
	rows, err := s.db.Query(
		`SELECT s.id, s.session_date, s.domain, s.questions_asked, AVG(a.overall_score)
		 FROM sessions s
		 LEFT JOIN questions q ON s.id = q.session_id
		 LEFT JOIN answers a ON q.id = a.question_id
		 WHERE s.user_id = ?
		 GROUP BY s.id
		 ORDER BY s.session_date, s.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.SessionProgress
	for rows.Next() {
		var (
			p   model.SessionProgress
			avg sql.NullFloat64
		)
		if err := rows.Scan(&p.SessionID, &p.SessionDate, &p.Domain, &p.QuestionsAsked, &avg); err != nil {
			return nil, err
		}
		if avg.Valid {
			v := avg.Float64
			p.AverageScore = &v
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func encodeList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encode list: %w", err)
	}
	return string(b), nil
}

func decodeList(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var items []string
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items, nil
}
