// Package stats computes the admin dashboard aggregates.
package stats

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	pkgerrors "github.com/pkg/errors"
)

// Config selects which question numbers feed the charts. The subsets are
// configuration: the dashboard charts a fixed set of questions, it does not
// try to chart every question generically.
type Config struct {
	PieQuestions   []int
	RadarQuestions []int
}

type Dashboard struct {
	Stats      Totals       `json:"stats"`
	PieCharts  []PieChart   `json:"pieCharts"`
	RadarChart []RadarEntry `json:"radarChart"`
}

type Totals struct {
	TotalResponses int     `json:"totalResponses"`
	TotalQuestions int     `json:"totalQuestions"`
	TotalSurveys   int     `json:"totalSurveys"`
	CompletionRate float64 `json:"completionRate"`

	// No duration is recorded per response, so this has always been served
	// as the literal "N/A". The dashboard consumer reads the key.
	AverageTime string `json:"averageTime"`
}

// PieChart is a value→count histogram over the text answers of one
// single-choice question.
type PieChart struct {
	Question  string         `json:"question"`
	Responses map[string]int `json:"responses"`
}

// RadarEntry is the mean of the numeric answers to one numeric-scale
// question, rounded to one decimal, zero when no answers exist.
type RadarEntry struct {
	Subject string  `json:"subject"`
	Average float64 `json:"A"`

	// Reserved prior-period series: always 0 for now, but part of the chart
	// consumer's contract.
	Baseline int `json:"B"`
	FullMark int `json:"fullMark"`
}

func Collect(ctx context.Context, db *sql.DB, cfg Config) (Dashboard, error) {
	d := Dashboard{
		Stats:      Totals{AverageTime: "N/A"},
		PieCharts:  []PieChart{},
		RadarChart: []RadarEntry{},
	}

	var completed int
	err := db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM survey_responses),
			(SELECT COUNT(*) FROM survey_responses WHERE is_completed = 1),
			(SELECT COUNT(*) FROM questions),
			(SELECT COUNT(*) FROM surveys)`,
	).Scan(&d.Stats.TotalResponses, &completed, &d.Stats.TotalQuestions, &d.Stats.TotalSurveys)
	if err != nil {
		return d, pkgerrors.Wrap(err, "stats.totals")
	}

	if d.Stats.TotalResponses > 0 {
		d.Stats.CompletionRate = round1(float64(completed) / float64(d.Stats.TotalResponses) * 100)
	}

	for _, qNum := range cfg.PieQuestions {
		chart, ok, err := pieChart(ctx, db, qNum)
		if err != nil {
			return d, err
		}
		if ok {
			d.PieCharts = append(d.PieCharts, chart)
		}
	}

	for _, qNum := range cfg.RadarQuestions {
		entry, ok, err := radarEntry(ctx, db, qNum)
		if err != nil {
			return d, err
		}
		if ok {
			d.RadarChart = append(d.RadarChart, entry)
		}
	}

	return d, nil
}

func pieChart(ctx context.Context, db *sql.DB, qNum int) (chart PieChart, ok bool, err error) {
	questionID, text, err := questionByNumber(ctx, db, qNum)
	if errors.Is(err, sql.ErrNoRows) {
		return chart, false, nil
	}
	if err != nil {
		return chart, false, pkgerrors.Wrapf(err, "stats.pie.q%d", qNum)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT answer_text, COUNT(*)
		FROM answers
		WHERE question_id = ?
			AND answer_text IS NOT NULL
		GROUP BY answer_text`,
		questionID,
	)
	if err != nil {
		return chart, false, pkgerrors.Wrapf(err, "stats.pie.q%d.answers", qNum)
	}
	defer rows.Close()

	chart = PieChart{
		Question:  fmt.Sprintf("Q%d: %s", qNum, text),
		Responses: map[string]int{},
	}
	for rows.Next() {
		var value string
		var count int
		if err := rows.Scan(&value, &count); err != nil {
			return chart, false, pkgerrors.Wrapf(err, "stats.pie.q%d.scan", qNum)
		}
		chart.Responses[value] = count
	}
	return chart, true, rows.Err()
}

func radarEntry(ctx context.Context, db *sql.DB, qNum int) (entry RadarEntry, ok bool, err error) {
	questionID, text, err := questionByNumber(ctx, db, qNum)
	if errors.Is(err, sql.ErrNoRows) {
		return entry, false, nil
	}
	if err != nil {
		return entry, false, pkgerrors.Wrapf(err, "stats.radar.q%d", qNum)
	}

	var avg sql.NullFloat64
	err = db.QueryRowContext(ctx, `
		SELECT AVG(answer_numeric)
		FROM answers
		WHERE question_id = ?
			AND answer_numeric IS NOT NULL`,
		questionID,
	).Scan(&avg)
	if err != nil {
		return entry, false, pkgerrors.Wrapf(err, "stats.radar.q%d.avg", qNum)
	}

	entry = RadarEntry{
		Subject:  fmt.Sprintf("Q%d: %s", qNum, text),
		FullMark: 100,
	}
	if avg.Valid {
		entry.Average = round1(avg.Float64)
	}
	return entry, true, nil
}

// questionByNumber resolves a chart question. question_number is only unique
// per survey; like the dashboard always did, the oldest match wins.
func questionByNumber(ctx context.Context, db *sql.DB, qNum int) (id int, text string, err error) {
	err = db.QueryRowContext(ctx, `
		SELECT id, question_text
		FROM questions
		WHERE question_number = ?
		ORDER BY id
		LIMIT 1`,
		qNum,
	).Scan(&id, &text)
	return id, text, err
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
