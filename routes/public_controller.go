package routes

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/chedi-ouerghi/bigscreen/app"
	"github.com/chedi-ouerghi/bigscreen/httpx"
	"github.com/chedi-ouerghi/bigscreen/log"
	"github.com/chedi-ouerghi/bigscreen/model"
	"github.com/chedi-ouerghi/bigscreen/token"
)

func PublicListSurveys(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := app.QueryContext(r.Context(), `
			SELECT id, title, description, is_active, max_responses, created_at, updated_at
			FROM surveys
			WHERE is_active = 1`)
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_active_surveys", err)
			return
		}
		defer rows.Close()

		surveys := []model.Survey{}
		for rows.Next() {
			s := model.Survey{}
			err = rows.Scan(&s.ID, &s.Title, &s.Description, &s.IsActive, &s.MaxResponses, &s.CreatedAt, &s.UpdatedAt)
			if err != nil {
				httpx.LogInternalError(w, r, "db.get_active_surveys.scan", err)
				return
			}
			surveys = append(surveys, s)
		}

		render.JSON(w, r, surveys)
	}
}

func PublicListQuestions(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		_, err = getSurvey(r.Context(), app.DB, surveyId)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, r, "get_survey", surveyId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_survey", err)
			return
		}

		questions, err := surveyQuestions(r.Context(), app.DB, surveyId)
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_questions", err)
			return
		}

		render.JSON(w, r, questions)
	}
}

func PublicSubmitResponse(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		var req model.SubmitRequest
		err = render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		// fail fast before touching storage
		if err := validate.Struct(req); err != nil {
			httpx.ValidationFailed(w, r, structErrors(err))
			return
		}

		survey, err := getSurvey(r.Context(), app.DB, surveyId)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, r, "get_survey", surveyId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_survey", err)
			return
		}

		questions, err := surveyQuestions(r.Context(), app.DB, surveyId)
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_questions", err)
			return
		}

		errs := fieldErrors{}
		validateAnswers(errs, questions, req.Answers)

		if survey.MaxResponses != nil {
			var count int
			err = app.QueryRowContext(r.Context(),
				`SELECT COUNT(*) FROM survey_responses WHERE survey_id = ?`, surveyId,
			).Scan(&count)
			if err != nil {
				httpx.LogInternalError(w, r, "db.count_responses", err)
				return
			}
			if count >= *survey.MaxResponses {
				errs.add("survey", "survey is no longer accepting responses")
			}
		}

		if !errs.empty() {
			httpx.ValidationFailed(w, r, errs)
			return
		}

		// response + answers are one unit of work: all or nothing
		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, r, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		now := time.Now().UTC()
		resp := model.SurveyResponse{
			SurveyID:      surveyId,
			ResponseToken: token.New(),
			Email:         req.Email,
			IPAddress:     clientIP(r),
			UserAgent:     r.UserAgent(),
			IsCompleted:   true,
			CompletedAt:   &now,
			CreatedAt:     now,
		}

		err = tx.QueryRowContext(r.Context(), `
			INSERT INTO survey_responses
				(survey_id, response_token, email, ip_address, user_agent, is_completed, completed_at, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, 1, ?, ?, ?)
			RETURNING id`,
			resp.SurveyID, resp.ResponseToken, resp.Email, resp.IPAddress, resp.UserAgent,
			now, now, now,
		).Scan(&resp.ID)
		if err != nil {
			httpx.LogInternalError(w, r, "db.insert_response", err)
			return
		}

		stmt, err := tx.PrepareContext(r.Context(), `
			INSERT INTO answers (response_id, question_id, answer_text, answer_numeric, answer_json)
			VALUES (?, ?, ?, ?, ?)
			RETURNING id`)
		if err != nil {
			httpx.LogInternalError(w, r, "db.insert_answers.prepare", err)
			return
		}
		defer stmt.Close()

		resp.Answers = []model.Answer{}
		for _, p := range req.Answers {
			a := model.Answer{
				ResponseID:    resp.ID,
				QuestionID:    p.QuestionID,
				AnswerText:    p.AnswerText,
				AnswerNumeric: p.AnswerNumeric,
				AnswerJSON:    p.AnswerJSON,
			}

			var rawJson *string
			if len(p.AnswerJSON) > 0 {
				s := string(p.AnswerJSON)
				rawJson = &s
			}
			err = stmt.QueryRowContext(r.Context(),
				resp.ID, p.QuestionID, p.AnswerText, p.AnswerNumeric, rawJson,
			).Scan(&a.ID)
			if err != nil {
				httpx.LogInternalError(w, r, "db.insert_answers.insert", err)
				return
			}

			resp.Answers = append(resp.Answers, a)
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, r, "db.insert_response.commit", err)
			return
		}

		// confirmation mail only after the data is durably committed; a
		// delivery failure never surfaces as a submission failure
		resultURL := strings.TrimRight(app.FrontendURL, "/") + "/result/" + resp.ResponseToken
		go func(resp model.SurveyResponse) {
			if err := app.Mailer.SendConfirmation(resp, resultURL); err != nil {
				log.Warnf("mail.send_confirmation: %s", err)
			}
		}(resp)

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, resp)
	}
}

// validateAnswers checks every submitted answer against the survey's own
// question set and each question's declared rules.
func validateAnswers(errs fieldErrors, questions []model.Question, answers []model.AnswerPayload) {
	byID := make(map[int]model.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	seen := make(map[int]bool, len(answers))
	for i, p := range answers {
		key := fmt.Sprintf("answers.%d", i)

		q, ok := byID[p.QuestionID]
		if !ok {
			errs.add(key+".question_id", "question does not belong to this survey")
			continue
		}
		if seen[q.ID] {
			errs.add(key+".question_id", fmt.Sprintf("question %d: duplicate answer", q.QuestionNumber))
			continue
		}
		seen[q.ID] = true

		if p.SetCount() > 1 {
			errs.add(key, "at most one of answer_text, answer_numeric, answer_json may be set")
			continue
		}
		if len(p.AnswerJSON) > 0 && !json.Valid(p.AnswerJSON) {
			errs.add(key+".answer_json", "must be well-formed JSON")
			continue
		}

		rules := q.Rules()
		if p.AnswerText != nil {
			if rules.MaxLength > 0 && len(*p.AnswerText) > rules.MaxLength {
				errs.add(key+".answer_text",
					fmt.Sprintf("question %d: must not exceed %d characters", q.QuestionNumber, rules.MaxLength))
			}
			if rules.Email && validate.Var(*p.AnswerText, "email") != nil {
				errs.add(key+".answer_text",
					fmt.Sprintf("question %d: must be a valid email address", q.QuestionNumber))
			}
		}
		if p.AnswerNumeric != nil {
			n := float64(*p.AnswerNumeric)
			if rules.MinValue != nil && n < *rules.MinValue {
				errs.add(key+".answer_numeric",
					fmt.Sprintf("question %d: minimum value is %v", q.QuestionNumber, *rules.MinValue))
			}
			if rules.MaxValue != nil && n > *rules.MaxValue {
				errs.add(key+".answer_numeric",
					fmt.Sprintf("question %d: maximum value is %v", q.QuestionNumber, *rules.MaxValue))
			}
		}
	}
}

func PublicResultByToken(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tok := chi.URLParam(r, "token")

		var respID int
		result := model.TokenResult{}
		err := app.QueryRowContext(r.Context(), `
			SELECT r.id, s.title, r.completed_at
			FROM survey_responses r
			INNER JOIN surveys s ON (s.id = r.survey_id)
			WHERE r.response_token = ?`,
			tok,
		).Scan(&respID, &result.SurveyTitle, &result.CompletedAt)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, r, "get_response_by_token", tok)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_response_by_token", err)
			return
		}

		rows, err := app.QueryContext(r.Context(), `
			SELECT q.question_text, q.question_type, a.answer_text, a.answer_numeric, a.answer_json
			FROM answers a
			INNER JOIN questions q ON (q.id = a.question_id)
			WHERE a.response_id = ?
			ORDER BY q.question_number ASC`,
			respID,
		)
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_response_answers", err)
			return
		}
		defer rows.Close()

		result.Questions = []model.AnsweredQuestion{}
		for rows.Next() {
			aq := model.AnsweredQuestion{}
			var rawJson sql.NullString
			err = rows.Scan(&aq.QuestionText, &aq.QuestionType, &aq.AnswerText, &aq.AnswerNumeric, &rawJson)
			if err != nil {
				httpx.LogInternalError(w, r, "db.get_response_answers.scan", err)
				return
			}
			if rawJson.Valid {
				aq.AnswerJSON = json.RawMessage(rawJson.String)
			}
			result.Questions = append(result.Questions, aq)
		}

		render.JSON(w, r, result)
	}
}
