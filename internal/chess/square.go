package chess

// ParseSquare decodes an algebraic square such as "e2" into grid coordinates.
// Row 0 is rank 8 and column 0 is file a. ok is false for anything that is not
// exactly a file letter a-h followed by a rank digit 1-8.
func ParseSquare(s string) (row, col int, ok bool) {
	if len(s) != 2 {
		return 0, 0, false
	}
	col = int(s[0]) - 'a'
	rank := int(s[1]) - '0'
	row = 8 - rank
	if col < 0 || col > 7 || rank < 1 || rank > 8 {
		return 0, 0, false
	}
	return row, col, true
}

// SquareName encodes grid coordinates back into algebraic notation.
// Out-of-range coordinates yield "".
func SquareName(row, col int) string {
	if !inBounds(row, col) {
		return ""
	}
	return string([]byte{byte('a' + col), byte('0' + 8 - row)})
}

func inBounds(row, col int) bool {
	return row >= 0 && row < 8 && col >= 0 && col < 8
}
