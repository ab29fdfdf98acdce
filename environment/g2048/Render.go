package g2048

import (
	"fmt"
	"log"

	"github.com/fogleman/gg"
	"gonum.org/v1/gonum/spatial/r1"

	"github.com/nusmiz/2048-impala/utils/floatutils"
)

// Cell geometry of the rendered board
const (
	renderCellSize = 64
	renderPadding  = 8
	renderSize     = BoardSize*renderCellSize + (BoardSize+1)*renderPadding
)

// Render draws the current board to the environment's render path as
// a PNG. Render is a no-op when no render path was configured.
func (g *G2048) Render() {
	if g.renderPath == "" {
		return
	}

	dc := gg.NewContext(renderSize, renderSize)
	dc.SetRGB(0.73, 0.68, 0.63)
	dc.Clear()

	for y := 0; y < BoardSize; y++ {
		for x := 0; x < BoardSize; x++ {
			px := float64(renderPadding + x*(renderCellSize+renderPadding))
			py := float64(renderPadding + y*(renderCellSize+renderPadding))

			n := g.state[y][x]
			dc.SetRGB(tileColor(n))
			dc.DrawRoundedRectangle(px, py, renderCellSize, renderCellSize, 4)
			dc.Fill()

			if n != 0 {
				if n <= 2 {
					dc.SetRGB(0.47, 0.43, 0.40)
				} else {
					dc.SetRGB(0.98, 0.96, 0.95)
				}
				dc.DrawStringAnchored(fmt.Sprintf("%d", 1<<n),
					px+renderCellSize/2, py+renderCellSize/2, 0.5, 0.5)
			}
		}
	}

	if err := dc.SavePNG(g.renderPath); err != nil {
		log.Printf("render: could not save board image: %v", err)
	}
}

// tileColor shades tiles from light to dark as the exponent grows
func tileColor(n uint8) (float64, float64, float64) {
	if n == 0 {
		return 0.80, 0.76, 0.71
	}
	unit := r1.Interval{Min: 0, Max: 1}
	t := float64(n) / float64(MaxNumber)
	return floatutils.ClipInterval(0.93-0.50*t, unit),
		floatutils.ClipInterval(0.89-0.55*t, unit),
		floatutils.ClipInterval(0.85-0.75*t, unit)
}
