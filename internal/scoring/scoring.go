// Package scoring grades multiple choice submissions against a quiz's
// answer key.
package scoring

import (
	"math"

	"github.com/pavelanni/classquiz/internal/model"
)

// Result is the outcome of scoring one submission.
type Result struct {
	Correct     int
	Total       int
	Percentage  float64
	PerQuestion []bool
}

// Score compares responses to the answer key position by position. Missing
// responses and responses past the last question count as incorrect. The
// percentage is rounded to one decimal place.
func Score(questions []model.Question, responses []string) (Result, error) {
	total := len(questions)
	if total == 0 {
		return Result{}, model.ErrInvalidQuiz
	}

	res := Result{Total: total, PerQuestion: make([]bool, total)}
	for i, q := range questions {
		if i >= len(responses) {
			break
		}
		if responses[i] == q.Answer {
			res.PerQuestion[i] = true
			res.Correct++
		}
	}
	res.Percentage = Round1(float64(res.Correct) / float64(total) * 100)
	return res, nil
}

// Round1 rounds x to one decimal place, halves away from zero.
func Round1(x float64) float64 {
	return math.Round(x*10) / 10
}
