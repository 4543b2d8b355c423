// Package tokens estimates how much of a model's context a prompt uses.
package tokens

import (
	"math"
	"unicode/utf8"
)

const charsPerToken = 4

// Counter counts tokens in text.
type Counter interface {
	Count(text string) int
}

// EstimatingCounter approximates token count as ~4 characters per token.
type EstimatingCounter struct{}

func NewEstimatingCounter() *EstimatingCounter {
	return &EstimatingCounter{}
}

func (*EstimatingCounter) Count(text string) int {
	return Estimate(text)
}

// Estimate counts characters rather than bytes so non-ASCII output in a
// traceback does not inflate the figure.
func Estimate(text string) int {
	return int(math.Ceil(float64(utf8.RuneCountInString(text)) / float64(charsPerToken)))
}

// Exceeds reports whether text is estimated to need more than budget
// tokens. A budget of zero or less means no limit.
func Exceeds(c Counter, text string, budget int) bool {
	return budget > 0 && c.Count(text) > budget
}
