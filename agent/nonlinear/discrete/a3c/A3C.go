// Package a3c implements an actor-critic agent serving the batched
// predict/train contract. A single two-headed MLP predicts the policy
// logits and the state value; training performs one gradient step per
// batch on the actor-critic loss with one-step bootstrapped
// advantages, masked by the batch's loss coefficients.
package a3c

import (
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/floats"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/nusmiz/2048-impala/agent"
	"github.com/nusmiz/2048-impala/network"
	"github.com/nusmiz/2048-impala/utils/op"
	"github.com/nusmiz/2048-impala/utils/tensorutils"
)

// A3C is an Agent over packed observation batches of type B. The
// featurize function extracts the flat row-major (samples x features)
// input matrix from a packed batch.
//
// Gorgonia graphs are compiled for a fixed batch shape, so the agent
// keeps one compiled network per role (prediction, value forward pass,
// training) and rebuilds a role's network whenever its batch shape
// changes, carrying the weights over. All calls are synchronous:
// every callback fires before the invocation returns.
type A3C[B any] struct {
	cfg       Config
	featurize func(*B) []float64
	features  int
	actions   int

	// Master copy of the weights, in Learnables order. version counts
	// updates so stale compiled networks can refresh lazily.
	weights [][]float64
	version int

	predict *forwardPass
	value   *forwardPass
	train   *trainPass

	// Host-side scratch buffers, reused across Train calls
	values  []float64
	vtarget []float64
	advCoef []float64
	coefN   []float64
	onehot  []float64
}

var _ agent.Agent[struct{}] = (*A3C[struct{}])(nil)

// forwardPass is a compiled forward-only network
type forwardPass struct {
	net     *network.MLP
	vm      G.VM
	version int
}

// trainPass is a compiled training network with its loss graph and
// solver
type trainPass struct {
	net    *network.MLP
	vm     G.VM
	solver G.Solver

	onehot  *G.Node
	advCoef *G.Node
	vtarget *G.Node
	coefN   *G.Node

	piVal  G.Value
	vVal   G.Value
	entVal G.Value

	version int
}

// New returns a new A3C agent. The featurize function must return a
// flat matrix with features columns for any packed batch.
func New[B any](featurize func(*B) []float64, features, actions int,
	cfg Config) (*A3C[B], error) {

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if features <= 0 {
		return nil, fmt.Errorf("new: features must be > 0, got %d", features)
	}
	if actions <= 0 {
		return nil, fmt.Errorf("new: actions must be > 0, got %d", actions)
	}

	return &A3C[B]{
		cfg:       cfg,
		featurize: featurize,
		features:  features,
		actions:   actions,
	}, nil
}

// Predict fills policies with the softmax policy of every sample in
// states and fires done before returning
func (a *A3C[B]) Predict(states *B, policies []float64, done func()) error {
	input := a.featurize(states)
	n := len(input) / a.features
	if len(policies) != n*a.actions {
		return fmt.Errorf("predict: invalid policy buffer size"+
			"\n\twant(%v)\n\thave(%v)", n*a.actions, len(policies))
	}

	if err := a.ensureForward(&a.predict, n); err != nil {
		return err
	}
	if err := a.predict.net.SetInput(input); err != nil {
		return fmt.Errorf("predict: %v", err)
	}
	if err := a.predict.vm.RunAll(); err != nil {
		return fmt.Errorf("predict: could not run forward pass: %v", err)
	}
	out := a.predict.net.Output().Data().([]float64)

	k := a.actions
	for i := 0; i < n; i++ {
		softmax(out[i*(k+1):i*(k+1)+k], policies[i*k:(i+1)*k])
	}
	a.predict.vm.Reset()

	done()
	return nil
}

// Train performs one gradient step on the batch and fires done with
// the loss before returning
func (a *A3C[B]) Train(states *B, scalars *agent.TrainingScalars,
	done func(agent.Loss)) error {

	input := a.featurize(states)
	total := len(input) / a.features
	tMax := len(scalars.DataSizes)
	b := total / (tMax + 1)
	n := tMax * b
	k := a.actions

	var numData int64
	for _, d := range scalars.DataSizes {
		numData += d
	}
	if numData == 0 {
		// Nothing but padding; there is no gradient to take
		done(agent.A3CLoss{})
		return nil
	}

	// Forward pass over all (T+1)*B observations for the value
	// estimates
	if err := a.ensureForward(&a.value, total); err != nil {
		return err
	}
	if err := a.value.net.SetInput(input); err != nil {
		return fmt.Errorf("train: %v", err)
	}
	if err := a.value.vm.RunAll(); err != nil {
		return fmt.Errorf("train: could not run value forward pass: %v", err)
	}
	out := a.value.net.Output().Data().([]float64)
	a.values = resize(a.values, total)
	for i := 0; i < total; i++ {
		a.values[i] = out[i*(k+1)+k]
	}
	a.value.vm.Reset()

	// Bootstrapped targets and advantages. The observation following
	// step i = t*B + b is at index i + B in the time-major layout; the
	// discount column is already zero on terminal steps.
	norm := 1.0 / float64(numData)
	a.vtarget = resize(a.vtarget, n)
	a.advCoef = resize(a.advCoef, n)
	a.coefN = resize(a.coefN, n)
	a.onehot = resize(a.onehot, n*k)
	for i := 0; i < n; i++ {
		target := scalars.Rewards[i] + scalars.Discounts[i]*a.values[i+b]
		c := scalars.LossCoefs[i] * norm
		a.vtarget[i] = target
		a.advCoef[i] = (target - a.values[i]) * c
		a.coefN[i] = c
		for j := 0; j < k; j++ {
			a.onehot[i*k+j] = 0
		}
		a.onehot[i*k+int(scalars.Actions[i])] = 1
	}

	if err := a.ensureTrain(n); err != nil {
		return err
	}
	t := a.train
	if err := t.net.SetInput(input[:n*a.features]); err != nil {
		return fmt.Errorf("train: %v", err)
	}
	lets := []struct {
		node    *G.Node
		backing []float64
		shape   []int
	}{
		{t.onehot, a.onehot, []int{n, k}},
		{t.advCoef, a.advCoef, []int{n}},
		{t.vtarget, a.vtarget, []int{n}},
		{t.coefN, a.coefN, []int{n}},
	}
	for _, l := range lets {
		err := G.Let(l.node, tensor.New(
			tensor.WithBacking(l.backing),
			tensor.WithShape(l.shape...),
		))
		if err != nil {
			return fmt.Errorf("train: could not set %v: %v", l.node.Name(),
				err)
		}
	}

	if err := t.vm.RunAll(); err != nil {
		return fmt.Errorf("train: could not run training step: %v", err)
	}
	if err := t.solver.Step(t.net.Model()); err != nil {
		return fmt.Errorf("train: could not step solver: %v", err)
	}
	loss := agent.A3CLoss{
		V:       scalarValue(t.vVal),
		Pi:      scalarValue(t.piVal),
		Entropy: scalarValue(t.entVal),
	}
	t.vm.Reset()

	a.weights = t.net.WeightData()
	a.version++
	t.version = a.version

	done(loss)
	return nil
}

// Sync is a no-op: every callback fires before its invocation returns
func (a *A3C[B]) Sync() {}

// Save writes the current weights to a gob file in the model
// directory, tagged by step
func (a *A3C[B]) Save(step int64) error {
	if a.weights == nil {
		return fmt.Errorf("save: agent has no weights yet")
	}
	file, err := os.Create(a.modelFile(step))
	if err != nil {
		return fmt.Errorf("save: could not create model file: %v", err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(a.weights); err != nil {
		return fmt.Errorf("save: could not encode weights: %v", err)
	}
	return nil
}

// Load restores the weights written by Save for the given step
func (a *A3C[B]) Load(step int64) error {
	file, err := os.Open(a.modelFile(step))
	if err != nil {
		return fmt.Errorf("load: could not open model file: %v", err)
	}
	defer file.Close()

	var weights [][]float64
	if err := gob.NewDecoder(file).Decode(&weights); err != nil {
		return fmt.Errorf("load: could not decode weights: %v", err)
	}
	a.weights = weights
	a.version++
	if a.train != nil {
		if err := a.train.net.SetWeightData(a.weights); err != nil {
			return fmt.Errorf("load: %v", err)
		}
		a.train.version = a.version
	}
	return nil
}

func (a *A3C[B]) modelFile(step int64) string {
	return filepath.Join(a.cfg.ModelDir, fmt.Sprintf("a3c-%d.bin", step))
}

// ensureForward makes sure fp holds a compiled forward network for the
// given batch size with current weights
func (a *A3C[B]) ensureForward(fp **forwardPass, batch int) error {
	if *fp != nil && (*fp).net.BatchSize() == batch {
		if (*fp).version != a.version {
			if err := (*fp).net.SetWeightData(a.weights); err != nil {
				return err
			}
			(*fp).version = a.version
		}
		return nil
	}

	g := G.NewGraph()
	net, err := network.NewMLP(a.features, batch, a.actions+1, g,
		a.cfg.HiddenSizes, a.cfg.Activations, a.cfg.InitWFn)
	if err != nil {
		return err
	}
	if err := a.adoptWeights(net); err != nil {
		return err
	}
	*fp = &forwardPass{net: net, vm: G.NewTapeMachine(g), version: a.version}
	return nil
}

// ensureTrain makes sure the training network matches the given batch
// size with current weights
func (a *A3C[B]) ensureTrain(n int) error {
	if a.train != nil && a.train.net.BatchSize() == n {
		if a.train.version != a.version {
			if err := a.train.net.SetWeightData(a.weights); err != nil {
				return err
			}
			a.train.version = a.version
		}
		return nil
	}

	k := a.actions
	g := G.NewGraph()
	net, err := network.NewMLP(a.features, n, k+1, g, a.cfg.HiddenSizes,
		a.cfg.Activations, a.cfg.InitWFn)
	if err != nil {
		return err
	}
	if err := a.adoptWeights(net); err != nil {
		return err
	}

	pred := net.Prediction()
	logits := G.Must(G.Slice(pred, nil, tensorutils.NewSlice(0, k, 1)))
	value := G.Must(G.Slice(pred, nil, tensorutils.NewSlice(k, k+1, 1)))
	value = G.Must(G.Reshape(value, tensor.Shape{n}))

	onehot := G.NewMatrix(g, tensor.Float64, G.WithShape(n, k),
		G.WithName("chosenActions"), G.WithInit(G.Zeroes()))
	advCoef := G.NewVector(g, tensor.Float64, G.WithShape(n),
		G.WithName("advantage"), G.WithInit(G.Zeroes()))
	vtarget := G.NewVector(g, tensor.Float64, G.WithShape(n),
		G.WithName("valueTarget"), G.WithInit(G.Zeroes()))
	coefN := G.NewVector(g, tensor.Float64, G.WithShape(n),
		G.WithName("lossCoef"), G.WithInit(G.Zeroes()))

	// Policy loss: -sum over steps of logπ(a) * advantage, with the
	// advantage treated as a constant and pre-scaled by the step's
	// loss coefficient
	logp := op.LogSoftmax(logits, 1)
	chosenLogp := G.Must(G.Sum(G.Must(G.HadamardProd(onehot, logp)), 1))
	piLoss := G.Must(G.Neg(G.Must(G.Sum(
		G.Must(G.HadamardProd(chosenLogp, advCoef))))))

	// Value loss: coefficient-weighted squared error to the
	// bootstrapped target
	vDiff := G.Must(G.Sub(vtarget, value))
	vLoss := G.Must(G.Sum(
		G.Must(G.HadamardProd(G.Must(G.Square(vDiff)), coefN))))
	vCoef := G.NewScalar(g, tensor.Float64,
		G.WithValue(0.5*a.cfg.ValueCoef), G.WithName("valueCoef"))
	vLoss = G.Must(G.Mul(vLoss, vCoef))

	// Entropy bonus
	entropy := G.Must(G.Neg(G.Must(G.Sum(
		G.Must(G.HadamardProd(G.Must(G.Exp(logp)), logp)), 1))))
	entLoss := G.Must(G.Sum(G.Must(G.HadamardProd(entropy, coefN))))
	entCoef := G.NewScalar(g, tensor.Float64,
		G.WithValue(a.cfg.EntropyCoef), G.WithName("entropyCoef"))
	entLoss = G.Must(G.Neg(G.Must(G.Mul(entLoss, entCoef))))

	cost := G.Must(G.Add(G.Must(G.Add(piLoss, vLoss)), entLoss))

	t := &trainPass{
		net:     net,
		onehot:  onehot,
		advCoef: advCoef,
		vtarget: vtarget,
		coefN:   coefN,
		version: a.version,
	}
	G.Read(piLoss, &t.piVal)
	G.Read(vLoss, &t.vVal)
	G.Read(entLoss, &t.entVal)

	if _, err := G.Grad(cost, net.Learnables()...); err != nil {
		return fmt.Errorf("ensuretrain: could not compute gradient: %v", err)
	}
	t.vm = G.NewTapeMachine(g, G.BindDualValues(net.Learnables()...))
	t.solver = G.NewRMSPropSolver(
		G.WithLearnRate(a.cfg.LearningRate),
		G.WithRho(a.cfg.RMSDecay),
		G.WithEps(a.cfg.RMSEpsilon),
	)

	a.train = t
	return nil
}

// adoptWeights either seeds the master weights from a freshly built
// network or overwrites the network with the master weights
func (a *A3C[B]) adoptWeights(net *network.MLP) error {
	if a.weights == nil {
		a.weights = net.WeightData()
		return nil
	}
	return net.SetWeightData(a.weights)
}

// softmax writes the softmax of src into dst, shifted by the maximum
// for numerical stability
func softmax(src, dst []float64) {
	max := floats.Max(src)
	for i, v := range src {
		dst[i] = math.Exp(v - max)
	}
	sum := floats.Sum(dst)
	for i := range dst {
		dst[i] /= sum
	}
}

func scalarValue(v G.Value) float64 {
	switch data := v.Data().(type) {
	case float64:
		return data
	case []float64:
		return data[0]
	default:
		panic(fmt.Sprintf("scalarvalue: unexpected value type %T", data))
	}
}

func resize(s []float64, n int) []float64 {
	if cap(s) < n {
		return make([]float64, n)
	}
	return s[:n]
}
