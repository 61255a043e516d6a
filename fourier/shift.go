package fourier

// Shift moves the zero-frequency element of an unshifted transform to index
// (rows/2, cols/2) for both even and odd sizes.
func Shift[T any](a [][]T) [][]T {
	rows, cols := dims(a)
	return roll(a, rows/2, cols/2)
}

// IShift undoes Shift.
func IShift[T any](a [][]T) [][]T {
	rows, cols := dims(a)
	return roll(a, rows-rows/2, cols-cols/2)
}

// roll circularly shifts a so that out[(i+di)%rows][(j+dj)%cols] = a[i][j].
func roll[T any](a [][]T, di, dj int) [][]T {
	rows, cols := dims(a)
	out := make([][]T, rows)
	for i := range out {
		out[i] = make([]T, cols)
	}
	for i := 0; i < rows; i++ {
		ii := (i + di) % rows
		for j := 0; j < cols; j++ {
			out[ii][(j+dj)%cols] = a[i][j]
		}
	}
	return out
}
