// Package op implements computational-graph operations that Gorgonia
// does not provide directly
package op

import (
	G "gorgonia.org/gorgonia"
)

// LogSumExp calculates the log of the summation of exponentials of
// all logits along the given axis, shifted by the row maximum for
// numerical stability.
//
// Use this in place of Gorgonia's LogSumExp, which has the final sum
// and log interchanged, which is incorrect.
func LogSumExp(logits *G.Node, along int) *G.Node {
	max := G.Must(G.Max(logits, along))

	exponent := G.Must(G.BroadcastSub(logits, max, nil, []byte{1}))
	exponent = G.Must(G.Exp(exponent))

	sum := G.Must(G.Sum(exponent, along))
	log := G.Must(G.Log(sum))

	return G.Must(G.Add(max, log))
}

// LogSoftmax returns the log of the softmax of logits along the given
// axis, computed as logits - LogSumExp(logits)
func LogSoftmax(logits *G.Node, along int) *G.Node {
	lse := LogSumExp(logits, along)
	return G.Must(G.BroadcastSub(logits, lse, nil, []byte{byte(along)}))
}
