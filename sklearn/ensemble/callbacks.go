package ensemble

import (
	"math"
)

// CallbackEnv is passed to every callback after a boosting round.
type CallbackEnv struct {
	Iteration    int
	TrainingLoss float64
	StopTraining bool
}

// Callback runs after each round. Returning an error aborts Fit; setting
// env.StopTraining ends boosting early and keeps the trees built so far.
type Callback func(env *CallbackEnv) error

// RecordLoss appends every round's training loss to history.
func RecordLoss(history *[]float64) Callback {
	return func(env *CallbackEnv) error {
		*history = append(*history, env.TrainingLoss)
		return nil
	}
}

// EarlyStopping stops when the training loss has not improved by more than
// minDelta for rounds consecutive rounds. The state resets on the first
// round, so one callback can serve several Fit calls.
func EarlyStopping(rounds int, minDelta float64) Callback {
	best := math.Inf(1)
	stale := 0
	return func(env *CallbackEnv) error {
		if env.Iteration == 0 {
			best = math.Inf(1)
			stale = 0
		}
		if env.TrainingLoss < best-minDelta {
			best = env.TrainingLoss
			stale = 0
			return nil
		}
		stale++
		if stale >= rounds {
			env.StopTraining = true
		}
		return nil
	}
}
