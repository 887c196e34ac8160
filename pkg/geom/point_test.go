package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLine_Dist(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		line     Line
		p        Point
		expected float64
	}{
		{name: "horizontal", line: Line{A: Point{0, 0}, B: Point{10, 0}}, p: Point{5, 3}, expected: 3},
		{name: "beyond_segment", line: Line{A: Point{0, 0}, B: Point{1, 0}}, p: Point{5, -2}, expected: 2},
		{name: "diagonal", line: Line{A: Point{0, 0}, B: Point{1, 1}}, p: Point{1, 0}, expected: 0.7071067811865475},
		{name: "on_line", line: Line{A: Point{2, 100}, B: Point{12, 0}}, p: Point{7, 50}, expected: 0},
		{name: "degenerate", line: Line{A: Point{1, 1}, B: Point{1, 1}}, p: Point{4, 5}, expected: 5},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, test.expected, test.line.Dist(test.p), 1e-12,
				"the distance to the line got: %v, expected: %v", test.line.Dist(test.p), test.expected)
		})
	}
}
