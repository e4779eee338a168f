package model

import "encoding/json"

// AnswerValue is a captured answer as a tagged union. Exactly one variant is
// set; the zero value means "no answer". It exists so that callers building
// payloads cannot produce the illegal "two of three fields set" shape.
type AnswerValue struct {
	kind    answerKind
	text    string
	numeric int
	raw     json.RawMessage
}

type answerKind int

const (
	answerNone answerKind = iota
	answerText
	answerNumeric
	answerJSON
)

func TextValue(s string) AnswerValue {
	return AnswerValue{kind: answerText, text: s}
}

func NumericValue(n int) AnswerValue {
	return AnswerValue{kind: answerNumeric, numeric: n}
}

func JSONValue(raw json.RawMessage) AnswerValue {
	return AnswerValue{kind: answerJSON, raw: raw}
}

func (v AnswerValue) IsZero() bool {
	return v.kind == answerNone
}

// Payload expands the union into the wire shape for the given question.
func (v AnswerValue) Payload(questionID int) AnswerPayload {
	p := AnswerPayload{QuestionID: questionID}
	switch v.kind {
	case answerText:
		t := v.text
		p.AnswerText = &t
	case answerNumeric:
		n := v.numeric
		p.AnswerNumeric = &n
	case answerJSON:
		p.AnswerJSON = v.raw
	}
	return p
}
