// Package testutil provisions throwaway databases and fixtures for tests.
package testutil

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/chedi-ouerghi/bigscreen/app"
	"github.com/chedi-ouerghi/bigscreen/config"
	"github.com/chedi-ouerghi/bigscreen/database"
	"github.com/chedi-ouerghi/bigscreen/httpx"
	"github.com/chedi-ouerghi/bigscreen/model"
)

// OpenTestDB creates a fresh sqlite database with the full schema applied.
func OpenTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

// TestConfig is a working configuration for handler tests.
func TestConfig() config.Config {
	return config.Config{
		Addr:           "localhost:0",
		TokenSecret:    "test-secret",
		TokenTTL:       time.Hour,
		FrontendURL:    "http://localhost:8080",
		PieQuestions:   []int{6, 7, 10},
		RadarQuestions: []int{11, 12, 13, 14, 15},
		RateLimit:      100,
		RateWindow:     time.Minute,
	}
}

// NewApp assembles an App around the given database, with a mail recorder
// instead of a real sender.
func NewApp(t *testing.T, db *sql.DB) (app.App, *MailRecorder) {
	t.Helper()

	cfg := TestConfig()
	mailer := &MailRecorder{}
	return app.App{
		DB:     db,
		Config: cfg,
		Auth:   httpx.NewAuth(db, cfg.TokenSecret, cfg.TokenTTL),
		Mailer: mailer,
	}, mailer
}

// AdminToken provisions an admin account and returns a valid bearer token.
func AdminToken(t *testing.T, a app.App) string {
	t.Helper()

	ctx := context.Background()
	err := a.Auth.EnsureAdmin(ctx, "admin", "admin@example.com", "secret123")
	if err != nil {
		t.Fatalf("failed to create admin user: %v", err)
	}
	token, err := a.Auth.Login(ctx, "admin@example.com", "secret123")
	if err != nil {
		t.Fatalf("failed to login admin user: %v", err)
	}
	return token
}

// CreateSurvey inserts a survey and returns its id.
func CreateSurvey(t *testing.T, db *sql.DB, title string, active bool, maxResponses *int) int {
	t.Helper()

	var id int
	err := db.QueryRow(`
		INSERT INTO surveys (title, description, is_active, max_responses)
		VALUES (?, '', ?, ?)
		RETURNING id`,
		title, active, maxResponses,
	).Scan(&id)
	if err != nil {
		t.Fatalf("failed to create survey: %v", err)
	}
	return id
}

// CreateQuestion inserts a question and returns its id.
func CreateQuestion(t *testing.T, db *sql.DB, surveyID, number int, text, qType string, options []string, rules *model.ValidationRules) int {
	t.Helper()

	var opts, vr *string
	if options != nil {
		b, err := json.Marshal(options)
		if err != nil {
			t.Fatalf("failed to marshal options: %v", err)
		}
		s := string(b)
		opts = &s
	}
	if rules != nil {
		b, err := json.Marshal(rules)
		if err != nil {
			t.Fatalf("failed to marshal validation rules: %v", err)
		}
		s := string(b)
		vr = &s
	}

	var id int
	err := db.QueryRow(`
		INSERT INTO questions (survey_id, question_number, question_text, question_type, options, validation_rules, is_required)
		VALUES (?, ?, ?, ?, ?, ?, 1)
		RETURNING id`,
		surveyID, number, text, qType, opts, vr,
	).Scan(&id)
	if err != nil {
		t.Fatalf("failed to create question: %v", err)
	}
	return id
}

// CreateResponse inserts a completed response and returns its id.
func CreateResponse(t *testing.T, db *sql.DB, surveyID int, token, email string, completed bool) int {
	t.Helper()

	var completedAt *time.Time
	if completed {
		now := time.Now().UTC()
		completedAt = &now
	}

	var id int
	err := db.QueryRow(`
		INSERT INTO survey_responses (survey_id, response_token, email, is_completed, completed_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`,
		surveyID, token, email, completed, completedAt,
	).Scan(&id)
	if err != nil {
		t.Fatalf("failed to create response: %v", err)
	}
	return id
}

// CreateTextAnswer inserts a text answer.
func CreateTextAnswer(t *testing.T, db *sql.DB, responseID, questionID int, text string) {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO answers (response_id, question_id, answer_text)
		VALUES (?, ?, ?)`,
		responseID, questionID, text,
	)
	if err != nil {
		t.Fatalf("failed to create text answer: %v", err)
	}
}

// CreateNumericAnswer inserts a numeric answer.
func CreateNumericAnswer(t *testing.T, db *sql.DB, responseID, questionID, value int) {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO answers (response_id, question_id, answer_numeric)
		VALUES (?, ?, ?)`,
		responseID, questionID, value,
	)
	if err != nil {
		t.Fatalf("failed to create numeric answer: %v", err)
	}
}

// MailRecorder is a mail.Sender that records instead of sending. Set Err to
// simulate delivery failure.
type MailRecorder struct {
	mu   sync.Mutex
	Err  error
	sent []model.SurveyResponse
}

func (m *MailRecorder) SendConfirmation(resp model.SurveyResponse, resultURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.sent = append(m.sent, resp)
	return nil
}

func (m *MailRecorder) Sent() []model.SurveyResponse {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.SurveyResponse(nil), m.sent...)
}
