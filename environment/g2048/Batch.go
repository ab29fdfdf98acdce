package g2048

import (
	"gorgonia.org/tensor"

	"github.com/nusmiz/2048-impala/action"
)

// Feature sizes of one observation in each batch tensor
const (
	// RawFeatures is one-hot tile exponents over all 8 board
	// symmetries: 8 views x (MaxNumber+1) exponent planes x 16 cells
	RawFeatures = 8 * (MaxNumber + 1) * BoardSize * BoardSize

	// ConvFeatures is the windowed exponent encoding: 8 views x
	// (MaxNumber-ConvKernelSize+1) windows x (ConvKernelSize+3)
	// channels x 16 cells
	ConvFeatures = 8 * (MaxNumber - ConvKernelSize + 1) *
		(ConvKernelSize + 3) * BoardSize * BoardSize
)

// ObsBatch is the packed observation batch: a raw one-hot tensor of
// shape (n, 8, MaxNumber+1, 16), a conv-feature tensor of shape
// (n, 8, MaxNumber-ConvKernelSize+1, ConvKernelSize+3, 16), and an
// invalid-action mask of shape (n, 4) holding 1 where a move would
// leave the board unchanged. Backing storage is retained across
// MakeBatch calls.
type ObsBatch struct {
	Raw         *tensor.Dense
	Conv        *tensor.Dense
	InvalidMask *tensor.Dense

	rawBacking  []float64
	convBacking []float64
	maskBacking []float64
}

// Batcher packs boards into an ObsBatch
type Batcher struct{}

// MakeBatch fills batch with the features of the given boards,
// reusing the batch's backing storage
func (Batcher) MakeBatch(observations []*Board, batch *ObsBatch) {
	n := len(observations)
	batch.rawBacking = resizeFloats(batch.rawBacking, n*RawFeatures)
	batch.convBacking = resizeFloats(batch.convBacking, n*ConvFeatures)
	batch.maskBacking = resizeFloats(batch.maskBacking, n*NumActions)

	for i, obs := range observations {
		writeRaw(obs, batch.rawBacking[i*RawFeatures:(i+1)*RawFeatures])
		writeConv(obs, batch.convBacking[i*ConvFeatures:(i+1)*ConvFeatures])
		writeInvalidMask(obs,
			batch.maskBacking[i*NumActions:(i+1)*NumActions])
	}

	cells := BoardSize * BoardSize
	batch.Raw = tensor.New(
		tensor.WithShape(n, 8, MaxNumber+1, cells),
		tensor.WithBacking(batch.rawBacking))
	batch.Conv = tensor.New(
		tensor.WithShape(n, 8, MaxNumber-ConvKernelSize+1, ConvKernelSize+3,
			cells),
		tensor.WithBacking(batch.convBacking))
	batch.InvalidMask = tensor.New(
		tensor.WithShape(n, NumActions),
		tensor.WithBacking(batch.maskBacking))
}

// RawData returns the flat raw-feature backing of the batch, one
// RawFeatures-length row per observation. This is the input consumed
// by the neural agent.
func (b *ObsBatch) RawData() []float64 {
	return b.rawBacking
}

// Len returns the number of observations packed into the batch
func (b *ObsBatch) Len() int {
	if b.Raw == nil {
		return 0
	}
	return b.Raw.Shape()[0]
}

func resizeFloats(s []float64, n int) []float64 {
	if cap(s) < n {
		return make([]float64, n)
	}
	return s[:n]
}

// writeRaw one-hot encodes the tile exponent of every cell under every
// view. dst is laid out [view][exponent][cell].
func writeRaw(b *Board, dst []float64) {
	cells := BoardSize * BoardSize
	for view := 0; view < 8; view++ {
		for y := 0; y < BoardSize; y++ {
			for x := 0; x < BoardSize; x++ {
				number := int(b.at(view, x, y))
				cell := y*BoardSize + x
				base := view*(MaxNumber+1)*cells + cell
				for n := 0; n <= MaxNumber; n++ {
					if n == number {
						dst[base+n*cells] = 1
					} else {
						dst[base+n*cells] = 0
					}
				}
			}
		}
	}
}

// writeConv encodes, for every view and every exponent window
// [n+1, n+ConvKernelSize], the window one-hot plus three summary
// channels: cell empty, non-zero exponent below the window, exponent
// above the window. dst is laid out [view][window][channel][cell].
func writeConv(b *Board, dst []float64) {
	cells := BoardSize * BoardSize
	windows := MaxNumber - ConvKernelSize + 1
	channels := ConvKernelSize + 3
	for view := 0; view < 8; view++ {
		for n := 0; n < windows; n++ {
			for y := 0; y < BoardSize; y++ {
				for x := 0; x < BoardSize; x++ {
					number := int(b.at(view, x, y))
					cell := y*BoardSize + x
					base := view*windows*channels*cells +
						n*channels*cells + cell
					for n2 := 0; n2 < ConvKernelSize; n2++ {
						if n+1+n2 == number {
							dst[base+n2*cells] = 1
						} else {
							dst[base+n2*cells] = 0
						}
					}
					set := func(channel int, cond bool) {
						if cond {
							dst[base+channel*cells] = 1
						} else {
							dst[base+channel*cells] = 0
						}
					}
					set(ConvKernelSize+0, number == 0)
					set(ConvKernelSize+1, number < n+1 && number != 0)
					set(ConvKernelSize+2, number >= n+1+ConvKernelSize)
				}
			}
		}
	}
}

// writeInvalidMask marks each direction whose slide would leave the
// board unchanged
func writeInvalidMask(b *Board, dst []float64) {
	for id := 0; id < NumActions; id++ {
		temp := *b
		slide(&temp, viewOf(action.FourDirections(id)))
		if temp == *b {
			dst[id] = 1
		} else {
			dst[id] = 0
		}
	}
}
