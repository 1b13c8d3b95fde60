package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlowWrapsThirdItem(t *testing.T) {
	sizes := []Size{{100, 50}, {100, 50}, {100, 50}}

	points, height := Flow(250, 10, 10, sizes)

	assert.Equal(t, []Point{{0, 0}, {110, 0}, {0, 60}}, points)
	assert.Equal(t, 110, height)
}

func TestFlowLineHeightIsTallestOnRow(t *testing.T) {
	sizes := []Size{{50, 20}, {50, 80}, {50, 30}, {50, 10}}

	points, height := Flow(120, 5, 7, sizes)

	// Two per row: 50+5+50 = 105 fits, a third would end at 160.
	assert.Equal(t, []Point{{0, 0}, {55, 0}, {0, 87}, {55, 87}}, points)
	assert.Equal(t, 87+30, height)
}

func TestFlowOversizedItemKeepsItsOwnRow(t *testing.T) {
	sizes := []Size{{300, 40}, {300, 40}}

	points, height := Flow(200, 10, 10, sizes)

	assert.Equal(t, []Point{{0, 0}, {0, 50}}, points)
	assert.Equal(t, 90, height)
}

func TestFlowExactFit(t *testing.T) {
	points, _ := Flow(210, 10, 10, []Size{{100, 10}, {100, 10}})

	assert.Equal(t, Point{110, 0}, points[1], "an item ending exactly at the edge stays on the row")
}

func TestFlowEmpty(t *testing.T) {
	points, height := Flow(500, 10, 10, nil)

	assert.Empty(t, points)
	assert.Zero(t, height)
}

func TestFlowZeroHeightItemsStillWrap(t *testing.T) {
	points, height := Flow(100, 0, 5, []Size{{60, 0}, {60, 0}})

	assert.Equal(t, []Point{{0, 0}, {0, 5}}, points)
	assert.Equal(t, 5, height)
}

func TestCards(t *testing.T) {
	points, height := Cards(700, 4)

	// 220+10+220+10+220 = 680 fits three cards.
	assert.Len(t, points, 4)
	assert.Equal(t, Point{460, 0}, points[2])
	assert.Equal(t, Point{0, CardHeight + CardGap}, points[3])
	assert.Equal(t, 2*CardHeight+CardGap, height)
}
