// Package peerwire implements the BEP-3 peer wire protocol handshake and
// message framing, extended with the BEP-6 Fast extension message types.
package peerwire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MessageType identifies the kind of a peer wire message. KeepAlive has no
// on-wire type byte; it is represented here as the sentinel value below.
type MessageType uint8

// Message type ids, per BEP-3 and the BEP-6 Fast extension.
const (
	Choke         MessageType = 0
	Unchoke       MessageType = 1
	Interested    MessageType = 2
	NotInterested MessageType = 3
	Have          MessageType = 4
	Bitfield      MessageType = 5
	Request       MessageType = 6
	Piece         MessageType = 7
	Cancel        MessageType = 8
	Port          MessageType = 9

	SuggestPiece  MessageType = 13
	HaveAll       MessageType = 14
	HaveNone      MessageType = 15
	RejectRequest MessageType = 16
	AllowedFast   MessageType = 17

	// KeepAlive is not a real on-wire type byte (a KeepAlive frame has
	// length 0 and no payload at all); it is synthesized by ReadMessage so
	// callers can dispatch on Message.Type uniformly.
	KeepAlive MessageType = 0xff
)

func (t MessageType) String() string {
	switch t {
	case Choke:
		return "choke"
	case Unchoke:
		return "unchoke"
	case Interested:
		return "interested"
	case NotInterested:
		return "not_interested"
	case Have:
		return "have"
	case Bitfield:
		return "bitfield"
	case Request:
		return "request"
	case Piece:
		return "piece"
	case Cancel:
		return "cancel"
	case Port:
		return "port"
	case SuggestPiece:
		return "suggest_piece"
	case HaveAll:
		return "have_all"
	case HaveNone:
		return "have_none"
	case RejectRequest:
		return "reject_request"
	case AllowedFast:
		return "allowed_fast"
	case KeepAlive:
		return "keep_alive"
	default:
		return fmt.Sprintf("message_type(%d)", uint8(t))
	}
}

// BlockIndex identifies a Request/Cancel/RejectRequest payload's target
// sub-range of a piece.
type BlockIndex struct {
	PieceIndex uint32
	Begin      uint32
	Length     uint32
}

// Message is a single decoded peer wire frame. Only the fields relevant to
// Type are populated; see the New* constructors.
type Message struct {
	Type MessageType

	// Have, SuggestPiece, AllowedFast.
	Index uint32

	// Bitfield.
	Bits []byte

	// Request, Cancel, RejectRequest.
	Block BlockIndex

	// Piece.
	PieceIndex uint32
	Begin      uint32
	Data       []byte

	// Port.
	Port uint16
}

// NewKeepAlive constructs a KeepAlive message.
func NewKeepAlive() Message { return Message{Type: KeepAlive} }

// NewChoke constructs a Choke message.
func NewChoke() Message { return Message{Type: Choke} }

// NewUnchoke constructs an Unchoke message.
func NewUnchoke() Message { return Message{Type: Unchoke} }

// NewInterested constructs an Interested message.
func NewInterested() Message { return Message{Type: Interested} }

// NewNotInterested constructs a NotInterested message.
func NewNotInterested() Message { return Message{Type: NotInterested} }

// NewHave constructs a Have message for the given piece index.
func NewHave(index uint32) Message { return Message{Type: Have, Index: index} }

// NewBitfield constructs a Bitfield message carrying the given packed bits.
func NewBitfield(bits []byte) Message { return Message{Type: Bitfield, Bits: bits} }

// NewRequest constructs a Request message for the given block.
func NewRequest(b BlockIndex) Message { return Message{Type: Request, Block: b} }

// NewCancel constructs a Cancel message for the given block.
func NewCancel(b BlockIndex) Message { return Message{Type: Cancel, Block: b} }

// NewPiece constructs a Piece message carrying block data.
func NewPiece(pieceIndex, begin uint32, data []byte) Message {
	return Message{Type: Piece, PieceIndex: pieceIndex, Begin: begin, Data: data}
}

// NewPort constructs a Port message (DHT listen port).
func NewPort(port uint16) Message { return Message{Type: Port, Port: port} }

// NewHaveAll constructs a HaveAll message (Fast extension).
func NewHaveAll() Message { return Message{Type: HaveAll} }

// NewHaveNone constructs a HaveNone message (Fast extension).
func NewHaveNone() Message { return Message{Type: HaveNone} }

// NewSuggestPiece constructs a SuggestPiece message (Fast extension).
func NewSuggestPiece(index uint32) Message { return Message{Type: SuggestPiece, Index: index} }

// NewRejectRequest constructs a RejectRequest message (Fast extension).
func NewRejectRequest(b BlockIndex) Message { return Message{Type: RejectRequest, Block: b} }

// NewAllowedFast constructs an AllowedFast message (Fast extension).
func NewAllowedFast(index uint32) Message { return Message{Type: AllowedFast, Index: index} }

// Encode serializes m into its wire representation: a 4-byte big-endian
// length prefix followed by a type byte and type-specific payload. KeepAlive
// encodes as a bare zero length prefix.
func (m Message) Encode() []byte {
	if m.Type == KeepAlive {
		return []byte{0, 0, 0, 0}
	}

	var payload []byte
	switch m.Type {
	case Choke, Unchoke, Interested, NotInterested, HaveAll, HaveNone:
		// No payload.
	case Have, SuggestPiece, AllowedFast:
		payload = make([]byte, 4)
		binary.BigEndian.PutUint32(payload, m.Index)
	case Bitfield:
		payload = m.Bits
	case Request, Cancel, RejectRequest:
		payload = make([]byte, 12)
		binary.BigEndian.PutUint32(payload[0:4], m.Block.PieceIndex)
		binary.BigEndian.PutUint32(payload[4:8], m.Block.Begin)
		binary.BigEndian.PutUint32(payload[8:12], m.Block.Length)
	case Piece:
		payload = make([]byte, 8+len(m.Data))
		binary.BigEndian.PutUint32(payload[0:4], m.PieceIndex)
		binary.BigEndian.PutUint32(payload[4:8], m.Begin)
		copy(payload[8:], m.Data)
	case Port:
		payload = make([]byte, 2)
		binary.BigEndian.PutUint16(payload, m.Port)
	}

	buf := make([]byte, 4+1+len(payload))
	binary.BigEndian.PutUint32(buf[0:4], uint32(1+len(payload)))
	buf[4] = byte(m.Type)
	copy(buf[5:], payload)
	return buf
}

// WriteMessage encodes and writes m to w.
func WriteMessage(w io.Writer, m Message) error {
	_, err := w.Write(m.Encode())
	return err
}

// ReadMessage reads and decodes a single frame from r.
func ReadMessage(r io.Reader) (Message, error) {
	var lengthBuf [4]byte
	if _, err := io.ReadFull(r, lengthBuf[:]); err != nil {
		return Message{}, err
	}
	length := binary.BigEndian.Uint32(lengthBuf[:])
	if length == 0 {
		return Message{Type: KeepAlive}, nil
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return Message{}, err
	}

	typ := MessageType(body[0])
	payload := body[1:]

	switch typ {
	case Choke, Unchoke, Interested, NotInterested, HaveAll, HaveNone:
		return Message{Type: typ}, nil
	case Have, SuggestPiece, AllowedFast:
		if len(payload) != 4 {
			return Message{}, fmt.Errorf("peerwire: %s payload must be 4 bytes, got %d", typ, len(payload))
		}
		return Message{Type: typ, Index: binary.BigEndian.Uint32(payload)}, nil
	case Bitfield:
		return Message{Type: typ, Bits: payload}, nil
	case Request, Cancel, RejectRequest:
		if len(payload) != 12 {
			return Message{}, fmt.Errorf("peerwire: %s payload must be 12 bytes, got %d", typ, len(payload))
		}
		return Message{Type: typ, Block: BlockIndex{
			PieceIndex: binary.BigEndian.Uint32(payload[0:4]),
			Begin:      binary.BigEndian.Uint32(payload[4:8]),
			Length:     binary.BigEndian.Uint32(payload[8:12]),
		}}, nil
	case Piece:
		if len(payload) < 8 {
			return Message{}, fmt.Errorf("peerwire: piece payload too short: %d bytes", len(payload))
		}
		return Message{
			Type:       typ,
			PieceIndex: binary.BigEndian.Uint32(payload[0:4]),
			Begin:      binary.BigEndian.Uint32(payload[4:8]),
			Data:       payload[8:],
		}, nil
	case Port:
		if len(payload) != 2 {
			return Message{}, fmt.Errorf("peerwire: port payload must be 2 bytes, got %d", len(payload))
		}
		return Message{Type: typ, Port: binary.BigEndian.Uint16(payload)}, nil
	default:
		return Message{}, fmt.Errorf("peerwire: unknown message type %d", uint8(typ))
	}
}
