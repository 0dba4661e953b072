package seats

import "strconv"

// Grid is a rectangular seat layout: rows are lettered from A, columns numbered from 1.
type Grid struct {
	Rows    int
	Columns int
}

// DefaultGrid is rows A-J by columns 1-10.
var DefaultGrid = Grid{Rows: 10, Columns: 10}

func (g Grid) Size() int {
	return g.Rows * g.Columns
}

func (g Grid) Labels() []string {
	labels := make([]string, 0, g.Size())
	for r := 0; r < g.rows(); r++ {
		for c := 1; c <= g.Columns; c++ {
			labels = append(labels, rowLabel(r)+strconv.Itoa(c))
		}
	}
	return labels
}

// Contains reports whether seat is a label of this grid.
func (g Grid) Contains(seat string) bool {
	row, col, ok := splitSeat(seat)
	if !ok || len(row) != 1 {
		return false
	}
	r := int(row[0] - 'A')
	return r >= 0 && r < g.rows() && col >= 1 && col <= g.Columns && seat == row+strconv.Itoa(col)
}

// rows caps the layout at 26 single-letter rows.
func (g Grid) rows() int {
	if g.Rows > 26 {
		return 26
	}
	return g.Rows
}

func rowLabel(r int) string {
	return string(rune('A' + r))
}
