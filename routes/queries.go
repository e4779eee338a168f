package routes

import (
	"context"
	"database/sql"
	"encoding/json"
	"net"
	"net/http"

	"github.com/chedi-ouerghi/bigscreen/model"
)

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getSurvey(ctx context.Context, db querier, id int) (s model.Survey, err error) {
	err = db.QueryRowContext(ctx, `
		SELECT id, title, description, is_active, max_responses, created_at, updated_at
		FROM surveys
		WHERE id = ?`,
		id,
	).Scan(&s.ID, &s.Title, &s.Description, &s.IsActive, &s.MaxResponses, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// surveyQuestions returns a survey's questions ordered by question_number.
// The ordering is load-bearing: the public form renders in this sequence.
func surveyQuestions(ctx context.Context, db querier, surveyID int) ([]model.Question, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, survey_id, question_number, question_text, question_type,
			options, validation_rules, is_required, created_at, updated_at
		FROM questions
		WHERE survey_id = ?
		ORDER BY question_number ASC`,
		surveyID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := []model.Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func scanQuestion(rows *sql.Rows) (q model.Question, err error) {
	var opts, rules sql.NullString
	err = rows.Scan(
		&q.ID, &q.SurveyID, &q.QuestionNumber, &q.QuestionText, &q.QuestionType,
		&opts, &rules, &q.IsRequired, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return q, err
	}

	if opts.Valid && opts.String != "" {
		if err = json.Unmarshal([]byte(opts.String), &q.Options); err != nil {
			return q, err
		}
	}
	if rules.Valid && rules.String != "" {
		q.ValidationRules = &model.ValidationRules{}
		if err = json.Unmarshal([]byte(rules.String), q.ValidationRules); err != nil {
			return q, err
		}
	}
	return q, nil
}

// marshalOrNull serializes an optional structured column, keeping NULL for
// absent payloads instead of the string "null".
func marshalOrNull(v any) (*string, error) {
	if v == nil {
		return nil, nil
	}
	switch t := v.(type) {
	case []string:
		if t == nil {
			return nil, nil
		}
	case *model.ValidationRules:
		if t == nil {
			return nil, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
