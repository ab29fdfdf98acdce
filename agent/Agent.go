// Package agent defines the contract between the server and a neural
// network agent
package agent

// TrainingScalars carries the per-step scalar columns of one training
// batch. All slices except DataSizes have length T*B and are laid out
// row major by (t, b): the entry for time t of batch sample b is at
// index t*B + b. DataSizes has length T and holds, for each time step,
// the number of non-padding samples in that column.
type TrainingScalars struct {
	Actions   []int64
	Rewards   []float64
	Policies  []float64
	Discounts []float64
	LossCoefs []float64
	DataSizes []int64
}

// Agent is a neural network serving batched inference and accepting
// batched training updates. The server owns a single Agent and invokes
// it from one goroutine only; implementations need not be safe for
// concurrent calls.
//
// Predict and Train are not required to be synchronous: an
// implementation may pipeline calls and fire the completion callback
// during a later invocation. Callbacks may run on any goroutine. Sync
// blocks until every callback from prior Predict and Train calls has
// fired.
//
// The type parameter B is the environment's packed observation batch.
type Agent[B any] interface {
	// Predict fills policies, a flat b x K block where row i is the
	// policy distribution for sample i of states, and calls done when
	// the result is consumable.
	Predict(states *B, policies []float64, done func()) error

	// Train performs one gradient update on a batch of trajectory
	// fragments and calls done with the resulting loss.
	Train(states *B, scalars *TrainingScalars, done func(Loss)) error

	// Sync blocks until all outstanding callbacks have fired
	Sync()

	// Save checkpoints the agent, tagged by trained step count
	Save(step int64) error

	// Load restores a checkpoint written by Save
	Load(step int64) error
}
