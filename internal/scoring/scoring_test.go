package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/classquiz/internal/model"
)

func keyed(answers ...string) []model.Question {
	qs := make([]model.Question, len(answers))
	for i, a := range answers {
		qs[i] = model.Question{
			Prompt: "q",
			Options: []model.Option{
				{Key: "r1", Text: "one"},
				{Key: "r2", Text: "two"},
				{Key: "r3", Text: "three"},
				{Key: "r4", Text: "four"},
			},
			Answer: a,
		}
	}
	return qs
}

func TestScore(t *testing.T) {
	testCases := []struct {
		name        string
		questions   []model.Question
		responses   []string
		wantCorrect int
		wantPct     float64
		wantPerQ    []bool
	}{
		{
			name:        "three of four",
			questions:   keyed("r1", "r2", "r3", "r4"),
			responses:   []string{"r1", "r2", "x", "r4"},
			wantCorrect: 3,
			wantPct:     75.0,
			wantPerQ:    []bool{true, true, false, true},
		},
		{
			name:        "all correct",
			questions:   keyed("r2", "r2"),
			responses:   []string{"r2", "r2"},
			wantCorrect: 2,
			wantPct:     100.0,
			wantPerQ:    []bool{true, true},
		},
		{
			name:        "missing responses are incorrect",
			questions:   keyed("r1", "r2", "r3"),
			responses:   []string{"r1"},
			wantCorrect: 1,
			wantPct:     33.3,
			wantPerQ:    []bool{true, false, false},
		},
		{
			name:        "extra responses are ignored",
			questions:   keyed("r1"),
			responses:   []string{"r2", "r1", "r1"},
			wantCorrect: 0,
			wantPct:     0,
			wantPerQ:    []bool{false},
		},
		{
			name:        "rounds to one decimal",
			questions:   keyed("r1", "r1", "r1"),
			responses:   []string{"r1", "r1", "r4"},
			wantCorrect: 2,
			wantPct:     66.7,
			wantPerQ:    []bool{true, true, false},
		},
		{
			name:        "match is exact",
			questions:   keyed("r1"),
			responses:   []string{"R1"},
			wantCorrect: 0,
			wantPct:     0,
			wantPerQ:    []bool{false},
		},
		{
			name:        "no responses",
			questions:   keyed("r1", "r2"),
			responses:   nil,
			wantCorrect: 0,
			wantPct:     0,
			wantPerQ:    []bool{false, false},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Score(tc.questions, tc.responses)
			require.NoError(t, err)
			assert.Equal(t, tc.wantCorrect, res.Correct)
			assert.Equal(t, len(tc.questions), res.Total)
			assert.Equal(t, tc.wantPct, res.Percentage)
			assert.Equal(t, tc.wantPerQ, res.PerQuestion)
		})
	}
}

func TestScoreEmptyQuiz(t *testing.T) {
	_, err := Score(nil, []string{"r1"})
	assert.ErrorIs(t, err, model.ErrInvalidQuiz)
}

func TestScorePercentageProperty(t *testing.T) {
	for total := 1; total <= 12; total++ {
		answers := make([]string, total)
		for i := range answers {
			answers[i] = "r1"
		}
		questions := keyed(answers...)
		for correct := 0; correct <= total; correct++ {
			responses := make([]string, total)
			for i := range responses {
				if i < correct {
					responses[i] = "r1"
				} else {
					responses[i] = "r2"
				}
			}
			res, err := Score(questions, responses)
			require.NoError(t, err)
			assert.Equal(t, correct, res.Correct)
			assert.GreaterOrEqual(t, res.Percentage, 0.0)
			assert.LessOrEqual(t, res.Percentage, 100.0)
			assert.Equal(t, Round1(float64(correct)/float64(total)*100), res.Percentage)
		}
	}
}

func TestRound1(t *testing.T) {
	assert.Equal(t, 90.0, Round1(90))
	assert.Equal(t, 12.5, Round1(12.5))
	assert.Equal(t, 83.3, Round1(83.33333))
	assert.Equal(t, 16.7, Round1(16.66666))
}
