package model

import (
	"encoding/json"
	"time"
)

// Question types as stored and served. The letters come from the original
// questionnaire schema and are part of the wire contract.
const (
	QuestionSingleChoice = "A"
	QuestionFreeText     = "B"
	QuestionNumericScale = "C"
)

func ValidQuestionType(t string) bool {
	return t == QuestionSingleChoice || t == QuestionFreeText || t == QuestionNumericScale
}

type Survey struct {
	ID           int       `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	IsActive     bool      `json:"is_active"`
	MaxResponses *int      `json:"max_responses"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ValidationRules is the optional per-question constraint set. Key names are
// kept as the front office has always serialized them.
type ValidationRules struct {
	Required  bool     `json:"required,omitempty"`
	Email     bool     `json:"email,omitempty"`
	MaxLength int      `json:"maxLength,omitempty"`
	MinValue  *float64 `json:"minValue,omitempty"`
	MaxValue  *float64 `json:"maxValue,omitempty"`
}

type Question struct {
	ID              int              `json:"id"`
	SurveyID        int              `json:"survey_id"`
	QuestionNumber  int              `json:"question_number"`
	QuestionText    string           `json:"question_text"`
	QuestionType    string           `json:"question_type"`
	Options         []string         `json:"options,omitempty"`
	ValidationRules *ValidationRules `json:"validation_rules,omitempty"`
	IsRequired      bool             `json:"is_required"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// Rules never returns nil, so callers can check flags without guarding.
func (q Question) Rules() ValidationRules {
	if q.ValidationRules == nil {
		return ValidationRules{}
	}
	return *q.ValidationRules
}

type SurveyResponse struct {
	ID            int        `json:"id"`
	SurveyID      int        `json:"survey_id"`
	ResponseToken string     `json:"response_token"`
	Email         string     `json:"email"`
	IPAddress     string     `json:"ip_address,omitempty"`
	UserAgent     string     `json:"user_agent,omitempty"`
	IsCompleted   bool       `json:"is_completed"`
	CompletedAt   *time.Time `json:"completed_at"`
	CreatedAt     time.Time  `json:"created_at"`
	Answers       []Answer   `json:"answers,omitempty"`
}

type Answer struct {
	ID            int             `json:"id"`
	ResponseID    int             `json:"response_id"`
	QuestionID    int             `json:"question_id"`
	AnswerText    *string         `json:"answer_text"`
	AnswerNumeric *int            `json:"answer_numeric"`
	AnswerJSON    json.RawMessage `json:"answer_json"`
	Question      *Question       `json:"question,omitempty"`
}

// AnswerPayload is one submitted answer as it travels over the wire. At most
// one of the three value fields may be set; SetCount is how the server checks.
type AnswerPayload struct {
	QuestionID    int             `json:"question_id"`
	AnswerText    *string         `json:"answer_text"`
	AnswerNumeric *int            `json:"answer_numeric"`
	AnswerJSON    json.RawMessage `json:"answer_json"`
}

func (p AnswerPayload) SetCount() (n int) {
	if p.AnswerText != nil {
		n++
	}
	if p.AnswerNumeric != nil {
		n++
	}
	if len(p.AnswerJSON) > 0 {
		n++
	}
	return n
}

// SubmitRequest is the body of POST /surveys/{id}/responses. An empty answer
// list is legal: requiredness of individual questions is the form's concern,
// not the assembly layer's.
type SubmitRequest struct {
	Email   string          `json:"email" validate:"required,email"`
	Answers []AnswerPayload `json:"answers"`
}

// TokenResult is the public view of a response served by GET /answers/{token}.
// It deliberately carries no ids, email or audit metadata.
type TokenResult struct {
	SurveyTitle string             `json:"survey_title"`
	CompletedAt *time.Time         `json:"completed_at"`
	Questions   []AnsweredQuestion `json:"questions"`
}

type AnsweredQuestion struct {
	QuestionText  string          `json:"question_text"`
	QuestionType  string          `json:"question_type"`
	AnswerText    *string         `json:"answer_text"`
	AnswerNumeric *int            `json:"answer_numeric"`
	AnswerJSON    json.RawMessage `json:"answer_json"`
}

type User struct {
	ID           int
	Name         string
	Email        string
	PasswordHash string
}
