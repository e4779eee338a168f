// Package formflow drives the public questionnaire one question at a time.
// It is the client-side companion of the submission API: it owns navigation,
// per-question validation and the final payload mapping, while the server
// remains the authority on what gets persisted.
package formflow

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/chedi-ouerghi/bigscreen/model"
)

type State int

const (
	Loading State = iota
	InProgress
	Submitting
	Completed
	Errored
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case InProgress:
		return "in-progress"
	case Submitting:
		return "submitting"
	case Completed:
		return "completed"
	case Errored:
		return "error"
	default:
		return "unknown"
	}
}

// Submitter sends the finished form. The HTTP client implements it; tests
// plug in fakes.
type Submitter interface {
	Submit(ctx context.Context, surveyID int, req model.SubmitRequest) (model.SurveyResponse, error)
}

var (
	ErrNoQuestions   = errors.New("survey has no questions")
	ErrNotInProgress = errors.New("form is not in progress")
	ErrNotErrored    = errors.New("nothing to retry")
	ErrEmailRequired = errors.New("a respondent email is required")
	ErrInvalidEmail  = errors.New("respondent email is not valid")
)

// ValidationError reports why the current answer blocks navigation.
type ValidationError struct {
	QuestionNumber int
	Message        string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("question %d: %s", e.QuestionNumber, e.Message)
}

var emailCheck = validator.New()

func validEmail(s string) bool {
	return emailCheck.Var(s, "email") == nil
}

// Flow is the multi-step form state machine. Captured answers survive
// navigation in both directions and submission failures.
type Flow struct {
	submitter Submitter

	survey    model.Survey
	questions []model.Question

	state    State
	current  int
	captured map[int]string // raw input keyed by question id
	email    string         // out-of-band email, used when no question collects it

	resp    model.SurveyResponse
	lastErr error
}

func New(submitter Submitter) *Flow {
	return &Flow{
		submitter: submitter,
		state:     Loading,
		captured:  map[int]string{},
	}
}

// Load hands the fetched survey to the flow and starts at the first
// question. Questions are expected in the order the API serves them.
func (f *Flow) Load(survey model.Survey, questions []model.Question) error {
	if len(questions) == 0 {
		f.state = Errored
		f.lastErr = ErrNoQuestions
		return ErrNoQuestions
	}

	f.survey = survey
	f.questions = questions
	f.state = InProgress
	f.current = 0
	f.lastErr = nil
	return nil
}

func (f *Flow) State() State { return f.state }

func (f *Flow) Survey() model.Survey { return f.survey }

func (f *Flow) Count() int { return len(f.questions) }

// Index is the current question position, meaningful while in progress.
func (f *Flow) Index() int { return f.current }

func (f *Flow) Question() model.Question {
	if f.state != InProgress {
		return model.Question{}
	}
	return f.questions[f.current]
}

// Capture records the raw input for the current question. Values captured
// earlier are kept, so going back and forth never loses an answer.
func (f *Flow) Capture(value string) {
	if f.state != InProgress {
		return
	}
	f.captured[f.questions[f.current].ID] = value
}

// Value returns what was captured for the current question, if anything.
func (f *Flow) Value() string {
	if f.state != InProgress {
		return ""
	}
	return f.captured[f.questions[f.current].ID]
}

// SetEmail records the out-of-band respondent email. Only consulted when no
// question declares itself the email source.
func (f *Flow) SetEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrEmailRequired
	}
	if !validEmail(email) {
		return ErrInvalidEmail
	}
	f.email = email
	return nil
}

// Prev steps back one question. At the first question it is a no-op.
func (f *Flow) Prev() {
	if f.state == InProgress && f.current > 0 {
		f.current--
	}
}

// Next validates the current answer and advances. On the last question it
// submits instead of stepping out of range. A validation failure leaves the
// flow exactly where it was.
func (f *Flow) Next(ctx context.Context) error {
	if f.state != InProgress {
		return ErrNotInProgress
	}

	q := f.questions[f.current]
	if err := validateAnswer(q, f.captured[q.ID]); err != nil {
		return err
	}

	if f.current < len(f.questions)-1 {
		f.current++
		return nil
	}
	return f.submit(ctx)
}

// Retry resubmits after a failed submission. All captured answers are still
// there; the respondent does not restart.
func (f *Flow) Retry(ctx context.Context) error {
	if f.state != Errored || f.lastErr == ErrNoQuestions {
		return ErrNotErrored
	}
	return f.submit(ctx)
}

// Token is the server-issued response token, set once completed.
func (f *Flow) Token() string { return f.resp.ResponseToken }

func (f *Flow) Response() model.SurveyResponse { return f.resp }

func (f *Flow) Err() error { return f.lastErr }

func (f *Flow) submit(ctx context.Context) error {
	email, err := f.respondentEmail()
	if err != nil {
		// missing/invalid email is client-fixable: stay on the form
		f.state = InProgress
		return err
	}

	req := model.SubmitRequest{
		Email:   email,
		Answers: f.payloads(),
	}

	f.state = Submitting
	resp, err := f.submitter.Submit(ctx, f.survey.ID, req)
	if err != nil {
		f.state = Errored
		f.lastErr = err
		return err
	}

	f.resp = resp
	f.state = Completed
	f.lastErr = nil
	return nil
}

// respondentEmail resolves the single authoritative email source: the
// question declaring the email rule if the survey has one, the explicitly
// provided email otherwise. Both paths validate before anything is sent.
func (f *Flow) respondentEmail() (string, error) {
	for _, q := range f.questions {
		if !q.Rules().Email {
			continue
		}
		v := strings.TrimSpace(f.captured[q.ID])
		if v == "" {
			return "", ErrEmailRequired
		}
		if !validEmail(v) {
			return "", ErrInvalidEmail
		}
		return v, nil
	}

	v := strings.TrimSpace(f.email)
	if v == "" {
		return "", ErrEmailRequired
	}
	if !validEmail(v) {
		return "", ErrInvalidEmail
	}
	return v, nil
}

// payloads maps each captured value into exactly one answer shape, picked by
// question type. Unanswered questions are omitted.
func (f *Flow) payloads() []model.AnswerPayload {
	answers := []model.AnswerPayload{}
	for _, q := range f.questions {
		raw := strings.TrimSpace(f.captured[q.ID])
		if raw == "" {
			continue
		}

		var v model.AnswerValue
		switch q.QuestionType {
		case model.QuestionNumericScale:
			n, err := strconv.ParseFloat(raw, 64)
			if err != nil || n != math.Trunc(n) {
				// validated on navigation; a stale bad value is dropped
				continue
			}
			v = model.NumericValue(int(n))
		default:
			v = model.TextValue(raw)
		}

		answers = append(answers, v.Payload(q.ID))
	}
	return answers
}

func validateAnswer(q model.Question, raw string) error {
	raw = strings.TrimSpace(raw)
	rules := q.Rules()

	if raw == "" {
		if q.IsRequired || rules.Required {
			return &ValidationError{q.QuestionNumber, "an answer is required"}
		}
		return nil
	}

	switch q.QuestionType {
	case model.QuestionSingleChoice:
		if len(q.Options) > 0 && !containsOption(q.Options, raw) {
			return &ValidationError{q.QuestionNumber, "must be one of the proposed options"}
		}

	case model.QuestionFreeText:
		if rules.Email && !validEmail(raw) {
			return &ValidationError{q.QuestionNumber, "must be a valid email address"}
		}
		if rules.MaxLength > 0 && len(raw) > rules.MaxLength {
			return &ValidationError{q.QuestionNumber,
				fmt.Sprintf("must not exceed %d characters", rules.MaxLength)}
		}

	case model.QuestionNumericScale:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return &ValidationError{q.QuestionNumber, "must be a number"}
		}
		// answer_numeric is an integer on the wire; a decimal must be
		// rejected here, never rounded on the respondent's behalf
		if n != math.Trunc(n) {
			return &ValidationError{q.QuestionNumber, "must be a whole number"}
		}
		if rules.MinValue != nil && n < *rules.MinValue {
			return &ValidationError{q.QuestionNumber,
				fmt.Sprintf("minimum value is %v", *rules.MinValue)}
		}
		if rules.MaxValue != nil && n > *rules.MaxValue {
			return &ValidationError{q.QuestionNumber,
				fmt.Sprintf("maximum value is %v", *rules.MaxValue)}
		}
	}

	return nil
}

func containsOption(options []string, value string) bool {
	for _, o := range options {
		if o == value {
			return true
		}
	}
	return false
}
