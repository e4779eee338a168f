package formflow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chedi-ouerghi/bigscreen/formflow"
	"github.com/chedi-ouerghi/bigscreen/model"
)

type fakeSubmitter struct {
	err      error
	calls    int
	surveyID int
	lastReq  model.SubmitRequest
	resp     model.SurveyResponse
}

func (f *fakeSubmitter) Submit(_ context.Context, surveyID int, req model.SubmitRequest) (model.SurveyResponse, error) {
	f.calls++
	f.surveyID = surveyID
	f.lastReq = req
	if f.err != nil {
		return model.SurveyResponse{}, f.err
	}
	return f.resp, nil
}

func fptr(v float64) *float64 { return &v }

func emailQuestion(id, number int) model.Question {
	return model.Question{
		ID:              id,
		QuestionNumber:  number,
		QuestionText:    "Votre adresse mail",
		QuestionType:    model.QuestionFreeText,
		ValidationRules: &model.ValidationRules{Required: true, Email: true},
		IsRequired:      true,
	}
}

func choiceQuestion(id, number int, options ...string) model.Question {
	return model.Question{
		ID:             id,
		QuestionNumber: number,
		QuestionText:   "Choix",
		QuestionType:   model.QuestionSingleChoice,
		Options:        options,
		IsRequired:     true,
	}
}

func scaleQuestion(id, number int, min, max float64) model.Question {
	return model.Question{
		ID:             id,
		QuestionNumber: number,
		QuestionText:   "Note",
		QuestionType:   model.QuestionNumericScale,
		ValidationRules: &model.ValidationRules{
			Required: true,
			MinValue: fptr(min),
			MaxValue: fptr(max),
		},
		IsRequired: true,
	}
}

func loaded(t *testing.T, sub formflow.Submitter, questions ...model.Question) *formflow.Flow {
	t.Helper()
	f := formflow.New(sub)
	err := f.Load(model.Survey{ID: 1, Title: "Enquête"}, questions)
	require.NoError(t, err)
	require.Equal(t, formflow.InProgress, f.State())
	return f
}

func TestLoadWithoutQuestions(t *testing.T) {
	f := formflow.New(&fakeSubmitter{})
	err := f.Load(model.Survey{ID: 1}, nil)
	require.ErrorIs(t, err, formflow.ErrNoQuestions)
	assert.Equal(t, formflow.Errored, f.State())

	// a survey with no questions is not retryable
	assert.ErrorIs(t, f.Retry(context.Background()), formflow.ErrNotErrored)
}

func TestPrevAtFirstQuestionStaysPut(t *testing.T) {
	f := loaded(t, &fakeSubmitter{},
		choiceQuestion(1, 1, "Oui", "Non"),
		choiceQuestion(2, 2, "Oui", "Non"),
	)

	f.Prev()
	assert.Equal(t, 0, f.Index())
	assert.Equal(t, 1, f.Question().ID)
}

func TestNextBlocksOnMissingRequiredAnswer(t *testing.T) {
	f := loaded(t, &fakeSubmitter{},
		choiceQuestion(1, 1, "Oui", "Non"),
		choiceQuestion(2, 2, "Oui", "Non"),
	)

	err := f.Next(context.Background())
	var verr *formflow.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 1, verr.QuestionNumber)
	assert.Equal(t, 0, f.Index(), "validation failure must not advance")
}

func TestAnswersSurviveNavigation(t *testing.T) {
	sub := &fakeSubmitter{resp: model.SurveyResponse{ID: 10, ResponseToken: "tok"}}
	f := loaded(t, sub,
		emailQuestion(1, 1),
		choiceQuestion(2, 2, "Oui", "Non"),
		scaleQuestion(3, 3, 0, 100),
	)
	ctx := context.Background()

	f.Capture("user@example.com")
	require.NoError(t, f.Next(ctx))
	f.Capture("Oui")
	require.NoError(t, f.Next(ctx))
	f.Capture("85")

	// walk all the way back and check nothing was lost
	f.Prev()
	f.Prev()
	assert.Equal(t, 0, f.Index())
	assert.Equal(t, "user@example.com", f.Value())
	require.NoError(t, f.Next(ctx))
	assert.Equal(t, "Oui", f.Value())
	require.NoError(t, f.Next(ctx))
	assert.Equal(t, "85", f.Value())

	require.NoError(t, f.Next(ctx))
	assert.Equal(t, formflow.Completed, f.State())
	assert.Equal(t, "tok", f.Token())

	require.Len(t, sub.lastReq.Answers, 3)
	assert.Equal(t, 1, sub.surveyID)
	assert.Equal(t, "user@example.com", sub.lastReq.Email)

	require.NotNil(t, sub.lastReq.Answers[1].AnswerText)
	assert.Equal(t, "Oui", *sub.lastReq.Answers[1].AnswerText)
	require.NotNil(t, sub.lastReq.Answers[2].AnswerNumeric)
	assert.Equal(t, 85, *sub.lastReq.Answers[2].AnswerNumeric)
}

func TestNumericScaleValidation(t *testing.T) {
	cases := []struct {
		name    string
		rules   model.ValidationRules
		input   string
		message string
	}{
		{"not a number", model.ValidationRules{}, "beaucoup", "must be a number"},
		{"below minimum", model.ValidationRules{MinValue: fptr(1)}, "0", "minimum value is 1"},
		{"above maximum", model.ValidationRules{MaxValue: fptr(5)}, "6", "maximum value is 5"},
		{"fraction", model.ValidationRules{}, "2.5", "must be a whole number"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := model.Question{
				ID:              1,
				QuestionNumber:  3,
				QuestionType:    model.QuestionNumericScale,
				ValidationRules: &tc.rules,
				IsRequired:      true,
			}
			f := loaded(t, &fakeSubmitter{resp: model.SurveyResponse{ResponseToken: "tok"}}, q)
			f.Capture(tc.input)

			err := f.Next(context.Background())
			var verr *formflow.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, 3, verr.QuestionNumber)
			assert.Contains(t, verr.Message, tc.message)
		})
	}
}

func TestNumericScaleAcceptsBoundaryValue(t *testing.T) {
	sub := &fakeSubmitter{resp: model.SurveyResponse{ResponseToken: "tok"}}
	f := loaded(t, sub, scaleQuestion(1, 1, 1, 5))

	f.Capture("5")
	require.NoError(t, f.SetEmail("user@example.com"))
	require.NoError(t, f.Next(context.Background()))

	assert.Equal(t, formflow.Completed, f.State())
	require.Len(t, sub.lastReq.Answers, 1)
	require.NotNil(t, sub.lastReq.Answers[0].AnswerNumeric)
	assert.Equal(t, 5, *sub.lastReq.Answers[0].AnswerNumeric)
}

func TestNumericScaleNeverRoundsADecimalAnswer(t *testing.T) {
	sub := &fakeSubmitter{resp: model.SurveyResponse{ResponseToken: "tok"}}
	f := loaded(t, sub, scaleQuestion(1, 1, 1, 5))
	ctx := context.Background()
	require.NoError(t, f.SetEmail("user@example.com"))

	// in range, but not a whole number: must be an error, not a silent 4
	f.Capture("4.5")
	err := f.Next(ctx)
	var verr *formflow.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Message, "whole number")
	assert.Equal(t, 0, sub.calls, "nothing may be submitted for a rejected answer")

	f.Capture("4")
	require.NoError(t, f.Next(ctx))
	require.Len(t, sub.lastReq.Answers, 1)
	require.NotNil(t, sub.lastReq.Answers[0].AnswerNumeric)
	assert.Equal(t, 4, *sub.lastReq.Answers[0].AnswerNumeric)
}

func TestSingleChoiceMustMatchAnOption(t *testing.T) {
	f := loaded(t, &fakeSubmitter{}, choiceQuestion(1, 2, "Oui", "Non"))

	f.Capture("Peut-être")
	err := f.Next(context.Background())
	var verr *formflow.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 2, verr.QuestionNumber)
}

func TestOptionalQuestionMayBeSkipped(t *testing.T) {
	sub := &fakeSubmitter{resp: model.SurveyResponse{ResponseToken: "tok"}}
	optional := model.Question{
		ID:             2,
		QuestionNumber: 2,
		QuestionType:   model.QuestionFreeText,
	}
	f := loaded(t, sub, emailQuestion(1, 1), optional)
	ctx := context.Background()

	f.Capture("user@example.com")
	require.NoError(t, f.Next(ctx))
	require.NoError(t, f.Next(ctx))

	assert.Equal(t, formflow.Completed, f.State())
	require.Len(t, sub.lastReq.Answers, 1, "skipped question must not produce a payload")
	assert.Equal(t, 1, sub.lastReq.Answers[0].QuestionID)
}

func TestEmailQuestionIsAuthoritative(t *testing.T) {
	sub := &fakeSubmitter{resp: model.SurveyResponse{ResponseToken: "tok"}}
	f := loaded(t, sub, emailQuestion(1, 1))

	require.NoError(t, f.SetEmail("other@example.com"))
	f.Capture("captured@example.com")
	require.NoError(t, f.Next(context.Background()))

	assert.Equal(t, "captured@example.com", sub.lastReq.Email)
}

func TestEmailCollectedOutOfBand(t *testing.T) {
	sub := &fakeSubmitter{resp: model.SurveyResponse{ResponseToken: "tok"}}
	f := loaded(t, sub, choiceQuestion(1, 1, "Oui", "Non"))
	ctx := context.Background()

	f.Capture("Oui")
	require.ErrorIs(t, f.Next(ctx), formflow.ErrEmailRequired)
	assert.Equal(t, formflow.InProgress, f.State(), "missing email keeps the form open")

	require.ErrorIs(t, f.SetEmail("not-an-email"), formflow.ErrInvalidEmail)
	require.NoError(t, f.SetEmail("user@example.com"))

	require.NoError(t, f.Next(ctx))
	assert.Equal(t, formflow.Completed, f.State())
	assert.Equal(t, "user@example.com", sub.lastReq.Email)
}

func TestSubmitFailureThenRetry(t *testing.T) {
	sub := &fakeSubmitter{err: errors.New("connection refused")}
	f := loaded(t, sub, emailQuestion(1, 1))
	ctx := context.Background()

	f.Capture("user@example.com")
	require.Error(t, f.Next(ctx))
	assert.Equal(t, formflow.Errored, f.State())
	assert.EqualError(t, f.Err(), "connection refused")

	// nothing was lost while errored
	sub.err = nil
	sub.resp = model.SurveyResponse{ID: 7, ResponseToken: "tok"}
	require.NoError(t, f.Retry(ctx))

	assert.Equal(t, formflow.Completed, f.State())
	assert.Equal(t, "tok", f.Token())
	assert.Equal(t, 2, sub.calls)
	require.Len(t, sub.lastReq.Answers, 1)
}

func TestRetryRequiresErroredState(t *testing.T) {
	f := loaded(t, &fakeSubmitter{}, choiceQuestion(1, 1, "Oui"))
	assert.ErrorIs(t, f.Retry(context.Background()), formflow.ErrNotErrored)
}

func TestNextAfterCompletion(t *testing.T) {
	sub := &fakeSubmitter{resp: model.SurveyResponse{ResponseToken: "tok"}}
	f := loaded(t, sub, emailQuestion(1, 1))
	ctx := context.Background()

	f.Capture("user@example.com")
	require.NoError(t, f.Next(ctx))
	require.Equal(t, formflow.Completed, f.State())

	assert.ErrorIs(t, f.Next(ctx), formflow.ErrNotInProgress)
	assert.Equal(t, 1, sub.calls, "a completed form must not submit twice")
}
