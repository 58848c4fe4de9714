package piecestore

import "fmt"

// PieceOutOfBoundsError reports an access to a piece index >= piece count.
type PieceOutOfBoundsError struct {
	Index, NumPieces int
}

func (e PieceOutOfBoundsError) Error() string {
	return fmt.Sprintf("piece index %d out of bounds: num pieces = %d", e.Index, e.NumPieces)
}

// IsPieceOutOfBoundsError returns true if err is a PieceOutOfBoundsError.
func IsPieceOutOfBoundsError(err error) bool {
	_, ok := err.(PieceOutOfBoundsError)
	return ok
}

// BlockOutOfBoundsError reports a block request extending past its piece's
// length.
type BlockOutOfBoundsError struct {
	PieceIndex         int
	Offset, Length, PieceLength int64
}

func (e BlockOutOfBoundsError) Error() string {
	return fmt.Sprintf("block [%d, %d) out of bounds for piece %d (length %d)",
		e.Offset, e.Offset+e.Length, e.PieceIndex, e.PieceLength)
}

// IsBlockOutOfBoundsError returns true if err is a BlockOutOfBoundsError.
func IsBlockOutOfBoundsError(err error) bool {
	_, ok := err.(BlockOutOfBoundsError)
	return ok
}
