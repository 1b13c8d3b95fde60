// Package layout positions item cards in a wrapping, left-to-right flow.
package layout

// Size is the preferred size of one card.
type Size struct {
	W int `json:"w"`
	H int `json:"h"`
}

// Point is the top-left corner assigned to a card.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Card dimensions and spacing used by the marketplace grid.
const (
	CardWidth  = 220
	CardHeight = 260
	CardGap    = 10
)

// Flow places items left to right, wrapping to a new row when the next item
// would pass the container's right edge. A row always takes at least one
// item, so an item wider than the container sits alone on its row. Rows
// advance by the tallest item on the row plus vgap. It returns one position
// per item and the total height used.
func Flow(containerWidth, hgap, vgap int, sizes []Size) ([]Point, int) {
	points := make([]Point, len(sizes))
	x, y, lineHeight, onLine := 0, 0, 0, 0

	for i, s := range sizes {
		if x+s.W > containerWidth && onLine > 0 {
			x = 0
			y += lineHeight + vgap
			lineHeight = 0
			onLine = 0
		}

		points[i] = Point{X: x, Y: y}
		x += s.W + hgap
		onLine++
		if s.H > lineHeight {
			lineHeight = s.H
		}
	}

	return points, y + lineHeight
}

// Cards lays out n fixed-size item cards in a container of the given width.
func Cards(containerWidth, n int) ([]Point, int) {
	sizes := make([]Size, n)
	for i := range sizes {
		sizes[i] = Size{W: CardWidth, H: CardHeight}
	}
	return Flow(containerWidth, CardGap, CardGap, sizes)
}
