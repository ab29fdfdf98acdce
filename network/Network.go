// Package network implements the feedforward networks used by neural
// agents
package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Activation is an activation function applied to a layer's output
type Activation func(x *G.Node) (*G.Node, error)

// ReLU returns the rectified linear activation
func ReLU() Activation {
	return G.Rectify
}

// TanH returns the hyperbolic tangent activation
func TanH() Activation {
	return G.Tanh
}

// Identity returns the identity activation
func Identity() Activation {
	return func(x *G.Node) (*G.Node, error) {
		return x, nil
	}
}

// fcLayer implements a fully connected layer of a feedforward neural
// network
type fcLayer struct {
	weights *G.Node
	bias    *G.Node
	act     Activation
}

// fwd adds the forward pass of the fcLayer to the computational graph
func (f *fcLayer) fwd(x *G.Node) (*G.Node, error) {
	x = G.Must(G.Mul(x, f.weights))
	// Broadcast the bias weights to all samples along the batch
	// dimension
	x = G.Must(G.BroadcastAdd(x, f.bias, nil, []byte{0}))
	if f.act == nil {
		return x, nil
	}
	return f.act(x)
}

// MLP is a multi-layered perceptron. The network input is a matrix of
// batchSize rows of features columns; the prediction is a matrix of
// batchSize rows of outputs columns.
type MLP struct {
	g          *G.ExprGraph
	layers     []fcLayer
	input      *G.Node
	prediction *G.Node
	learnables G.Nodes

	batchSize int
	features  int
	outputs   int
}

// NewMLP creates a new MLP on graph g with len(hiddenSizes)+1 layers:
// one per hidden size, with the matching activation, plus a final
// linear layer of size outputs. Every layer has a bias unit. The init
// parameter determines the weight initialization scheme.
func NewMLP(features, batchSize, outputs int, g *G.ExprGraph,
	hiddenSizes []int, activations []Activation,
	init G.InitWFn) (*MLP, error) {

	if len(hiddenSizes) != len(activations) {
		return nil, fmt.Errorf("newmlp: invalid number of activations"+
			"\n\twant(%d)\n\thave(%d)", len(hiddenSizes), len(activations))
	}

	input := G.NewMatrix(g, tensor.Float64,
		G.WithShape(batchSize, features),
		G.WithName("input"),
		G.WithInit(G.Zeroes()),
	)

	sizes := make([]int, len(hiddenSizes), len(hiddenSizes)+1)
	copy(sizes, hiddenSizes)
	sizes = append(sizes, outputs)
	acts := make([]Activation, len(activations), len(activations)+1)
	copy(acts, activations)
	acts = append(acts, Identity())

	m := &MLP{
		g:         g,
		input:     input,
		batchSize: batchSize,
		features:  features,
		outputs:   outputs,
	}

	in := features
	for i, out := range sizes {
		weights := G.NewMatrix(g, tensor.Float64,
			G.WithShape(in, out),
			G.WithName(fmt.Sprintf("L%dW", i)),
			G.WithInit(init),
		)
		bias := G.NewMatrix(g, tensor.Float64,
			G.WithShape(1, out),
			G.WithName(fmt.Sprintf("L%dB", i)),
			G.WithInit(G.Zeroes()),
		)
		m.layers = append(m.layers, fcLayer{weights, bias, acts[i]})
		m.learnables = append(m.learnables, weights, bias)
		in = out
	}

	x := input
	var err error
	for i := range m.layers {
		if x, err = m.layers[i].fwd(x); err != nil {
			return nil, fmt.Errorf("newmlp: could not compute forward "+
				"pass: %v", err)
		}
	}
	m.prediction = x

	return m, nil
}

// Graph returns the computational graph the MLP was built on
func (m *MLP) Graph() *G.ExprGraph {
	return m.g
}

// Prediction returns the output node of the network
func (m *MLP) Prediction() *G.Node {
	return m.prediction
}

// Output returns the value of the output node after a forward pass
func (m *MLP) Output() G.Value {
	return m.prediction.Value()
}

// BatchSize returns the batch size of inputs to the network
func (m *MLP) BatchSize() int {
	return m.batchSize
}

// Features returns the number of features in a single input row
func (m *MLP) Features() int {
	return m.features
}

// Outputs returns the number of outputs per input row
func (m *MLP) Outputs() int {
	return m.outputs
}

// Learnables returns the learnable nodes of the network
func (m *MLP) Learnables() G.Nodes {
	return m.learnables
}

// Model returns the learnables with their gradients for a solver step
func (m *MLP) Model() []G.ValueGrad {
	return G.NodesToValueGrads(m.learnables)
}

// SetInput sets the value of the input node before running the forward
// pass
func (m *MLP) SetInput(input []float64) error {
	if len(input) != m.features*m.batchSize {
		return fmt.Errorf("setinput: invalid number of inputs\n\twant(%v)"+
			"\n\thave(%v)", m.features*m.batchSize, len(input))
	}
	inputTensor := tensor.New(
		tensor.WithBacking(input),
		tensor.WithShape(m.batchSize, m.features),
	)
	return G.Let(m.input, inputTensor)
}

// WeightData returns a copy of every learnable's data, in Learnables
// order
func (m *MLP) WeightData() [][]float64 {
	data := make([][]float64, len(m.learnables))
	for i, node := range m.learnables {
		src := node.Value().Data().([]float64)
		data[i] = make([]float64, len(src))
		copy(data[i], src)
	}
	return data
}

// SetWeightData sets every learnable from data produced by WeightData
// on a network of the same architecture
func (m *MLP) SetWeightData(data [][]float64) error {
	if len(data) != len(m.learnables) {
		return fmt.Errorf("setweightdata: invalid number of weight "+
			"tensors\n\twant(%v)\n\thave(%v)", len(m.learnables), len(data))
	}
	for i, node := range m.learnables {
		backing := make([]float64, len(data[i]))
		copy(backing, data[i])
		t := tensor.New(
			tensor.WithBacking(backing),
			tensor.WithShape(node.Shape()...),
		)
		if err := G.Let(node, t); err != nil {
			return fmt.Errorf("setweightdata: could not set learnable "+
				"%v: %v", node.Name(), err)
		}
	}
	return nil
}
