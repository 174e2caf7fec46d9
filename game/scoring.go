/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

type Outcome string

const (
	OutcomeCorrect   Outcome = "correct"
	OutcomeIncorrect Outcome = "incorrect"
	OutcomePass      Outcome = "pass"
)

var deltas = map[Outcome]int{
	OutcomeCorrect:   10,
	OutcomeIncorrect: -5,
	OutcomePass:      0,
}

func Delta(o Outcome) int {
	return deltas[o]
}

func ApplyScore(current int, o Outcome) int {
	return current + Delta(o)
}

// ComputeScore folds outcomes into a score starting from zero.
func ComputeScore(outcomes ...Outcome) int {
	score := 0
	for _, o := range outcomes {
		score = ApplyScore(score, o)
	}
	return score
}
