package routes

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/chedi-ouerghi/bigscreen/app"
	"github.com/chedi-ouerghi/bigscreen/httpx"
	"github.com/chedi-ouerghi/bigscreen/log"
	"github.com/chedi-ouerghi/bigscreen/model"
	"github.com/chedi-ouerghi/bigscreen/stats"
)

type surveyRequest struct {
	Title        string `json:"title" validate:"required,max=255"`
	Description  string `json:"description"`
	IsActive     *bool  `json:"is_active"`
	MaxResponses *int   `json:"max_responses" validate:"omitempty,min=0"`
}

type questionRequest struct {
	QuestionNumber  int                    `json:"question_number" validate:"required,min=1"`
	QuestionText    string                 `json:"question_text" validate:"required"`
	QuestionType    string                 `json:"question_type" validate:"required,oneof=A B C"`
	Options         []string               `json:"options"`
	ValidationRules *model.ValidationRules `json:"validation_rules"`
	IsRequired      *bool                  `json:"is_required"`
}

func ListSurveys(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := app.QueryContext(r.Context(), `
			SELECT id, title, description, is_active, max_responses, created_at, updated_at
			FROM surveys`)
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_surveys", err)
			return
		}
		defer rows.Close()

		surveys := []model.Survey{}
		for rows.Next() {
			s := model.Survey{}
			err = rows.Scan(&s.ID, &s.Title, &s.Description, &s.IsActive, &s.MaxResponses, &s.CreatedAt, &s.UpdatedAt)
			if err != nil {
				httpx.LogInternalError(w, r, "db.get_surveys.scan", err)
				return
			}
			surveys = append(surveys, s)
		}

		render.JSON(w, r, surveys)
	}
}

func CreateSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req surveyRequest
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		if err := validate.Struct(req); err != nil {
			httpx.ValidationFailed(w, r, structErrors(err))
			return
		}

		isActive := true
		if req.IsActive != nil {
			isActive = *req.IsActive
		}

		now := time.Now().UTC()
		s := model.Survey{
			Title:        req.Title,
			Description:  req.Description,
			IsActive:     isActive,
			MaxResponses: req.MaxResponses,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		err = app.QueryRowContext(r.Context(), `
			INSERT INTO surveys (title, description, is_active, max_responses, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			RETURNING id`,
			s.Title, s.Description, s.IsActive, s.MaxResponses, now, now,
		).Scan(&s.ID)
		if err != nil {
			httpx.LogInternalError(w, r, "db.insert_survey", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, s)
	}
}

func GetSurveyById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		s, err := getSurvey(r.Context(), app.DB, surveyId)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, r, "get_survey", surveyId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_survey", err)
			return
		}

		render.JSON(w, r, s)
	}
}

func UpdateSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		var req surveyRequest
		err = render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		if err := validate.Struct(req); err != nil {
			httpx.ValidationFailed(w, r, structErrors(err))
			return
		}

		isActive := true
		if req.IsActive != nil {
			isActive = *req.IsActive
		}

		res, err := app.ExecContext(r.Context(), `
			UPDATE surveys
			SET title = ?, description = ?, is_active = ?, max_responses = ?, updated_at = ?
			WHERE id = ?`,
			req.Title, req.Description, isActive, req.MaxResponses, time.Now().UTC(), surveyId,
		)
		if err != nil {
			httpx.LogInternalError(w, r, "db.update_survey", err)
			return
		}
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, r, "db.update_survey.verify", err)
			return
		}
		if n < 1 {
			httpx.LogNotFound(w, r, "update_survey", surveyId)
			return
		}

		s, err := getSurvey(r.Context(), app.DB, surveyId)
		if err != nil {
			httpx.LogInternalError(w, r, "db.update_survey.reload", err)
			return
		}
		render.JSON(w, r, s)
	}
}

func DeleteSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		// questions and responses go with the survey (FK cascade)
		res, err := app.ExecContext(r.Context(), `DELETE FROM surveys WHERE id = ?`, surveyId)
		if err != nil {
			httpx.LogInternalError(w, r, "db.delete_survey", err)
			return
		}
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, r, "db.delete_survey.verify", err)
			return
		}
		if n < 1 {
			httpx.LogNotFound(w, r, "delete_survey", surveyId)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func AdminListQuestions(app app.App) http.HandlerFunc {
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

func CreateQuestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		var req questionRequest
		err = render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		if err := validate.Struct(req); err != nil {
			httpx.ValidationFailed(w, r, structErrors(err))
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

		var taken bool
		err = app.QueryRowContext(r.Context(), `
			SELECT EXISTS (SELECT 1 FROM questions WHERE survey_id = ? AND question_number = ?)`,
			surveyId, req.QuestionNumber,
		).Scan(&taken)
		if err != nil {
			httpx.LogInternalError(w, r, "db.check_question_number", err)
			return
		}
		if taken {
			httpx.ValidationFailed(w, r, fieldErrors{
				"question_number": {"already used by another question of this survey"},
			})
			return
		}

		opts, err := marshalOrNull(req.Options)
		if err != nil {
			httpx.LogInternalError(w, r, "db.insert_question.options", err)
			return
		}
		rules, err := marshalOrNull(req.ValidationRules)
		if err != nil {
			httpx.LogInternalError(w, r, "db.insert_question.rules", err)
			return
		}

		isRequired := true
		if req.IsRequired != nil {
			isRequired = *req.IsRequired
		}

		now := time.Now().UTC()
		q := model.Question{
			SurveyID:        surveyId,
			QuestionNumber:  req.QuestionNumber,
			QuestionText:    req.QuestionText,
			QuestionType:    req.QuestionType,
			Options:         req.Options,
			ValidationRules: req.ValidationRules,
			IsRequired:      isRequired,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		err = app.QueryRowContext(r.Context(), `
			INSERT INTO questions
				(survey_id, question_number, question_text, question_type, options, validation_rules, is_required, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id`,
			q.SurveyID, q.QuestionNumber, q.QuestionText, q.QuestionType, opts, rules, q.IsRequired, now, now,
		).Scan(&q.ID)
		if err != nil {
			httpx.LogInternalError(w, r, "db.insert_question", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, q)
	}
}

func UpdateQuestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questionId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		var req questionRequest
		err = render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		if err := validate.Struct(req); err != nil {
			httpx.ValidationFailed(w, r, structErrors(err))
			return
		}

		var surveyId int
		err = app.QueryRowContext(r.Context(),
			`SELECT survey_id FROM questions WHERE id = ?`, questionId,
		).Scan(&surveyId)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, r, "update_question", questionId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_question", err)
			return
		}

		var taken bool
		err = app.QueryRowContext(r.Context(), `
			SELECT EXISTS (
				SELECT 1 FROM questions
				WHERE survey_id = ? AND question_number = ? AND id <> ?
			)`,
			surveyId, req.QuestionNumber, questionId,
		).Scan(&taken)
		if err != nil {
			httpx.LogInternalError(w, r, "db.check_question_number", err)
			return
		}
		if taken {
			httpx.ValidationFailed(w, r, fieldErrors{
				"question_number": {"already used by another question of this survey"},
			})
			return
		}

		opts, err := marshalOrNull(req.Options)
		if err != nil {
			httpx.LogInternalError(w, r, "db.update_question.options", err)
			return
		}
		rules, err := marshalOrNull(req.ValidationRules)
		if err != nil {
			httpx.LogInternalError(w, r, "db.update_question.rules", err)
			return
		}

		isRequired := true
		if req.IsRequired != nil {
			isRequired = *req.IsRequired
		}

		now := time.Now().UTC()
		_, err = app.ExecContext(r.Context(), `
			UPDATE questions
			SET question_number = ?, question_text = ?, question_type = ?,
				options = ?, validation_rules = ?, is_required = ?, updated_at = ?
			WHERE id = ?`,
			req.QuestionNumber, req.QuestionText, req.QuestionType, opts, rules, isRequired, now, questionId,
		)
		if err != nil {
			httpx.LogInternalError(w, r, "db.update_question", err)
			return
		}

		q := model.Question{
			ID:              questionId,
			SurveyID:        surveyId,
			QuestionNumber:  req.QuestionNumber,
			QuestionText:    req.QuestionText,
			QuestionType:    req.QuestionType,
			Options:         req.Options,
			ValidationRules: req.ValidationRules,
			IsRequired:      isRequired,
			UpdatedAt:       now,
		}
		render.JSON(w, r, q)
	}
}

func DeleteQuestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questionId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		res, err := app.ExecContext(r.Context(), `DELETE FROM questions WHERE id = ?`, questionId)
		if err != nil {
			httpx.LogInternalError(w, r, "db.delete_question", err)
			return
		}
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, r, "db.delete_question.verify", err)
			return
		}
		if n < 1 {
			httpx.LogNotFound(w, r, "delete_question", questionId)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func ListAllQuestions(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := app.QueryContext(r.Context(), `
			SELECT id, survey_id, question_number, question_text, question_type,
				options, validation_rules, is_required, created_at, updated_at
			FROM questions
			ORDER BY id ASC`)
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_all_questions", err)
			return
		}
		defer rows.Close()

		questions := []model.Question{}
		for rows.Next() {
			q, err := scanQuestion(rows)
			if err != nil {
				httpx.LogInternalError(w, r, "db.get_all_questions.scan", err)
				return
			}
			questions = append(questions, q)
		}

		render.JSON(w, r, questions)
	}
}

// ListAllResponses serves every response with its nested answers and owning
// questions, newest first, for admin review.
func ListAllResponses(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := app.QueryContext(r.Context(), `
			SELECT id, survey_id, response_token, email, ip_address, user_agent,
				is_completed, completed_at, created_at
			FROM survey_responses
			ORDER BY created_at DESC, id DESC`)
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_responses", err)
			return
		}
		defer rows.Close()

		responses := []model.SurveyResponse{}
		index := map[int]int{}
		for rows.Next() {
			resp := model.SurveyResponse{Answers: []model.Answer{}}
			var ip, ua sql.NullString
			err = rows.Scan(
				&resp.ID, &resp.SurveyID, &resp.ResponseToken, &resp.Email, &ip, &ua,
				&resp.IsCompleted, &resp.CompletedAt, &resp.CreatedAt,
			)
			if err != nil {
				httpx.LogInternalError(w, r, "db.get_responses.scan", err)
				return
			}
			resp.IPAddress = ip.String
			resp.UserAgent = ua.String

			index[resp.ID] = len(responses)
			responses = append(responses, resp)
		}
		if err = rows.Err(); err != nil {
			httpx.LogInternalError(w, r, "db.get_responses.rows", err)
			return
		}

		answerRows, err := app.QueryContext(r.Context(), `
			SELECT a.id, a.response_id, a.question_id, a.answer_text, a.answer_numeric, a.answer_json,
				q.id, q.survey_id, q.question_number, q.question_text, q.question_type,
				q.options, q.validation_rules, q.is_required, q.created_at, q.updated_at
			FROM answers a
			INNER JOIN questions q ON (q.id = a.question_id)
			ORDER BY a.response_id, q.question_number`)
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_responses.answers", err)
			return
		}
		defer answerRows.Close()

		for answerRows.Next() {
			a := model.Answer{}
			q := model.Question{}
			var rawJson, opts, rules sql.NullString
			err = answerRows.Scan(
				&a.ID, &a.ResponseID, &a.QuestionID, &a.AnswerText, &a.AnswerNumeric, &rawJson,
				&q.ID, &q.SurveyID, &q.QuestionNumber, &q.QuestionText, &q.QuestionType,
				&opts, &rules, &q.IsRequired, &q.CreatedAt, &q.UpdatedAt,
			)
			if err != nil {
				httpx.LogInternalError(w, r, "db.get_responses.answers.scan", err)
				return
			}

			if rawJson.Valid {
				a.AnswerJSON = json.RawMessage(rawJson.String)
			}
			if opts.Valid && opts.String != "" {
				if err = json.Unmarshal([]byte(opts.String), &q.Options); err != nil {
					httpx.LogInternalError(w, r, "db.get_responses.answers.parse_options", err)
					return
				}
			}
			if rules.Valid && rules.String != "" {
				q.ValidationRules = &model.ValidationRules{}
				if err = json.Unmarshal([]byte(rules.String), q.ValidationRules); err != nil {
					httpx.LogInternalError(w, r, "db.get_responses.answers.parse_rules", err)
					return
				}
			}
			a.Question = &q

			if i, ok := index[a.ResponseID]; ok {
				responses[i].Answers = append(responses[i].Answers, a)
			}
		}
		if err = answerRows.Err(); err != nil {
			httpx.LogInternalError(w, r, "db.get_responses.answers.rows", err)
			return
		}

		render.JSON(w, r, responses)
	}
}

func Dashboard(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := stats.Collect(r.Context(), app.DB, stats.Config{
			PieQuestions:   app.PieQuestions,
			RadarQuestions: app.RadarQuestions,
		})
		if err != nil {
			httpx.LogInternalError(w, r, "db.dashboard", err)
			return
		}

		render.JSON(w, r, d)
	}
}
