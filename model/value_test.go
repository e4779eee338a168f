package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswerValuePayloadSetsExactlyOneField(t *testing.T) {
	cases := []struct {
		name  string
		value AnswerValue
	}{
		{"text", TextValue("Oui")},
		{"numeric", NumericValue(7)},
		{"json", JSONValue(json.RawMessage(`["a","b"]`))},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := tc.value.Payload(42)
			assert.Equal(t, 42, p.QuestionID)
			assert.Equal(t, 1, p.SetCount())
		})
	}
}

func TestAnswerValueVariants(t *testing.T) {
	p := TextValue("hello").Payload(1)
	require.NotNil(t, p.AnswerText)
	assert.Equal(t, "hello", *p.AnswerText)
	assert.Nil(t, p.AnswerNumeric)
	assert.Empty(t, p.AnswerJSON)

	p = NumericValue(85).Payload(2)
	require.NotNil(t, p.AnswerNumeric)
	assert.Equal(t, 85, *p.AnswerNumeric)
	assert.Nil(t, p.AnswerText)

	p = JSONValue(json.RawMessage(`{"k":1}`)).Payload(3)
	assert.JSONEq(t, `{"k":1}`, string(p.AnswerJSON))
	assert.Nil(t, p.AnswerText)
	assert.Nil(t, p.AnswerNumeric)
}

func TestAnswerValueZero(t *testing.T) {
	var v AnswerValue
	assert.True(t, v.IsZero())
	assert.False(t, TextValue("x").IsZero())

	p := v.Payload(9)
	assert.Equal(t, 9, p.QuestionID)
	assert.Equal(t, 0, p.SetCount())
}

func TestSetCountRejectsNothing(t *testing.T) {
	// SetCount only reports; the wire type itself cannot forbid two fields
	text := "x"
	n := 1
	p := AnswerPayload{QuestionID: 1, AnswerText: &text, AnswerNumeric: &n}
	assert.Equal(t, 2, p.SetCount())
}
