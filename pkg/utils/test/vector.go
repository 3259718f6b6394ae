// Package testutils provides shared fakes and helpers for retina tests.
package testutils

// TokenRows builds an S×D token matrix filled with a constant value.
func TokenRows(s, d int, value float32) [][]float32 {
	rows := make([][]float32, s)
	for i := range rows {
		row := make([]float32, d)
		for j := range row {
			row[j] = value
		}
		rows[i] = row
	}

	return rows
}

// Basis returns a D-wide unit vector along the given axis.
func Basis(d, axis int) []float32 {
	v := make([]float32, d)
	v[axis] = 1
	return v
}
