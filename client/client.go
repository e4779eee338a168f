// Package client is a small HTTP client for the public survey API, used by
// the terminal front office.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/chedi-ouerghi/bigscreen/model"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError carries the server's error envelope for non-2xx responses.
type APIError struct {
	Status  int
	Message string
	Errors  map[string][]string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %d %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api: %d", e.Status)
}

func (c *Client) ActiveSurveys(ctx context.Context) ([]model.Survey, error) {
	var surveys []model.Survey
	err := c.do(ctx, http.MethodGet, "/surveys", nil, &surveys)
	return surveys, err
}

func (c *Client) Questions(ctx context.Context, surveyID int) ([]model.Question, error) {
	var questions []model.Question
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/surveys/%d/questions", surveyID), nil, &questions)
	return questions, err
}

// Submit implements formflow.Submitter.
func (c *Client) Submit(ctx context.Context, surveyID int, req model.SubmitRequest) (model.SurveyResponse, error) {
	var resp model.SurveyResponse
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/surveys/%d/responses", surveyID), req, &resp)
	return resp, err
}

func (c *Client) ResultByToken(ctx context.Context, token string) (model.TokenResult, error) {
	var result model.TokenResult
	err := c.do(ctx, http.MethodGet, "/answers/"+token, nil, &result)
	return result, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody *bytes.Buffer
	if body != nil {
		reqBody = &bytes.Buffer{}
		if err := json.NewEncoder(reqBody).Encode(body); err != nil {
			return err
		}
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		var envelope struct {
			Message string              `json:"message"`
			Errors  map[string][]string `json:"errors"`
		}
		if json.NewDecoder(resp.Body).Decode(&envelope) == nil {
			apiErr.Message = envelope.Message
			apiErr.Errors = envelope.Errors
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
