package tictactoe

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Codec keys persisted models: a board is nine characters over "XO." in
// row-major order, a cell is "row,col".
type Codec struct{}

func (Codec) EncodeState(b Board) string {
	var sb strings.Builder
	sb.Grow(Size * Size)
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			sb.WriteByte(markRune(b[r][c]))
		}
	}
	return sb.String()
}

func (Codec) DecodeState(key string) (Board, error) {
	var b Board
	if len(key) != Size*Size {
		return b, errors.Errorf("board key %q: want %d cells", key, Size*Size)
	}
	for i := 0; i < len(key); i++ {
		var v int8
		switch key[i] {
		case 'X':
			v = X
		case 'O':
			v = O
		case '.':
			v = Empty
		default:
			return b, errors.Errorf("board key %q: unknown mark %q", key, key[i])
		}
		b[i/Size][i%Size] = v
	}
	return b, nil
}

func (Codec) EncodeAction(c Cell) string {
	return strconv.Itoa(c.Row) + "," + strconv.Itoa(c.Col)
}

func (Codec) DecodeAction(key string) (Cell, error) {
	rowText, colText, ok := strings.Cut(key, ",")
	if !ok {
		return Cell{}, errors.Errorf("cell key %q: want row,col", key)
	}
	row, err := strconv.Atoi(rowText)
	if err != nil {
		return Cell{}, errors.Wrapf(err, "cell key %q", key)
	}
	col, err := strconv.Atoi(colText)
	if err != nil {
		return Cell{}, errors.Wrapf(err, "cell key %q", key)
	}
	c := Cell{Row: row, Col: col}
	if !c.onBoard() {
		return Cell{}, errors.Errorf("cell key %q: off the board", key)
	}
	return c, nil
}
