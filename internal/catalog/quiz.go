package catalog

import "math"

// Grade is the outcome of scoring one quiz attempt.
type Grade struct {
	Correct int  `json:"correct"`
	Total   int  `json:"total"`
	Score   int  `json:"score"` // 0-100
	Passed  bool `json:"passed"`
}

// Grade scores answers against the quiz. answers[i] is the chosen option for
// question i; missing or out-of-range answers count as wrong.
func (q Quiz) Grade(answers []int) Grade {
	g := Grade{Total: len(q.Questions)}
	for i, question := range q.Questions {
		if i < len(answers) && answers[i] == question.Correct {
			g.Correct++
		}
	}
	if g.Total > 0 {
		g.Score = int(math.Round(float64(g.Correct) / float64(g.Total) * 100))
	}
	g.Passed = g.Score >= q.PassingScore
	return g
}

// OptionIndex maps a letter option ("A".."D") to its index, or -1.
func OptionIndex(letter string) int {
	switch letter {
	case "A", "a":
		return 0
	case "B", "b":
		return 1
	case "C", "c":
		return 2
	case "D", "d":
		return 3
	}
	return -1
}
