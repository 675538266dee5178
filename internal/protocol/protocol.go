package protocol

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// Protocol constants for the service wire format
const (
	// Version is the only protocol version this codec speaks.
	Version = 0b0001

	// HeaderWordBytes is the size of one header word; the mandatory header
	// is exactly one word, extension words follow it.
	HeaderWordBytes = 4

	// LengthPrefixBytes is the size of the big-endian payload length field.
	LengthPrefixBytes = 4
)

// MessageType identifies the kind of frame (high nibble of header byte 1).
type MessageType uint8

const (
	MessageTypeFullClientRequest  MessageType = 0b0001
	MessageTypeAudioOnlyRequest   MessageType = 0b0010
	MessageTypeFullServerResponse MessageType = 0b1001
	MessageTypeServerAck          MessageType = 0b1011
	MessageTypeServerError        MessageType = 0b1111
)

// SequenceFlag carries message-type-specific flags (low nibble of header
// byte 1). Only audio-only requests use it.
type SequenceFlag uint8

const (
	NoSequence SequenceFlag = 0b0000
	// LastAudioPacket marks the final audio chunk of a session.
	LastAudioPacket SequenceFlag = 0b0010
)

// Serialization identifies the payload serialization method (high nibble of
// header byte 2).
type Serialization uint8

const (
	SerializationNone   Serialization = 0b0000
	SerializationJSON   Serialization = 0b0001
	SerializationThrift Serialization = 0b0011
	SerializationCustom Serialization = 0b1111
)

// Compression identifies the payload compression method (low nibble of
// header byte 2).
type Compression uint8

const (
	CompressionNone   Compression = 0b0000
	CompressionGzip   Compression = 0b0001
	CompressionCustom Compression = 0b1111
)

// Header is the unpacked form of the mandatory 4-byte header word.
// Layout: [Version:4|Size:4][Type:4|Flags:4][Serialization:4|Compression:4][Reserved:8]
type Header struct {
	Version       uint8        // protocol version, always 1
	Size          uint8        // header size in 4-byte words, including this one
	Type          MessageType
	Flags         SequenceFlag
	Serialization Serialization
	Compression   Compression
}

// NewRequestHeader builds the header used for all client frames: version 1,
// no extension words, JSON serialization, gzip compression.
func NewRequestHeader(msgType MessageType, flags SequenceFlag) Header {
	return Header{
		Version:       Version,
		Size:          1,
		Type:          msgType,
		Flags:         flags,
		Serialization: SerializationJSON,
		Compression:   CompressionGzip,
	}
}

// Pack encodes the header into its 4-byte wire form.
func (h Header) Pack() [HeaderWordBytes]byte {
	return [HeaderWordBytes]byte{
		h.Version<<4 | h.Size&0x0f,
		uint8(h.Type)<<4 | uint8(h.Flags)&0x0f,
		uint8(h.Serialization)<<4 | uint8(h.Compression)&0x0f,
		0x00, // reserved
	}
}

// ParseHeader unpacks the mandatory header word from the start of a frame.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderWordBytes {
		return Header{}, fmt.Errorf("frame too short for header: expected %d bytes, got %d",
			HeaderWordBytes, len(data))
	}

	return Header{
		Version:       data[0] >> 4,
		Size:          data[0] & 0x0f,
		Type:          MessageType(data[1] >> 4),
		Flags:         SequenceFlag(data[1] & 0x0f),
		Serialization: Serialization(data[2] >> 4),
		Compression:   Compression(data[2] & 0x0f),
	}, nil
}

// EncodeRequest builds a complete client frame: packed header, 4-byte
// big-endian length of the gzip-compressed payload, then the compressed
// payload itself. It is used for both the JSON configuration frame and each
// raw audio chunk.
func EncodeRequest(msgType MessageType, flags SequenceFlag, payload []byte) ([]byte, error) {
	compressed, err := compressGzip(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to compress payload: %w", err)
	}

	header := NewRequestHeader(msgType, flags).Pack()

	frame := make([]byte, 0, len(header)+LengthPrefixBytes+len(compressed))
	frame = append(frame, header[:]...)
	frame = binary.BigEndian.AppendUint32(frame, uint32(len(compressed)))
	frame = append(frame, compressed...)

	return frame, nil
}

// PayloadKind discriminates the decoded payload union.
type PayloadKind int

const (
	PayloadNone PayloadKind = iota
	PayloadJSON
	PayloadText
)

// Payload is the decoded payload of a server frame. Exactly one of JSON and
// Text is populated, selected by Kind; PayloadNone means the frame carried
// no payload or declared no serialization.
type Payload struct {
	Kind PayloadKind
	JSON json.RawMessage // decompressed JSON document
	Text string          // decompressed raw text for non-JSON serializations
}

// Response is the result of parsing one received frame. Sequence is only
// meaningful for ack frames and ErrorCode only for error frames. PayloadSize
// is the size field declared on the wire (the pre-decompression byte count);
// it is surfaced as-is for diagnostics and is not recomputed.
type Response struct {
	Type        MessageType
	Sequence    int32
	HasSequence bool
	ErrorCode   uint32
	PayloadSize int32
	Payload     Payload
}

// ParseResponse decodes a raw frame received from the service. Header
// extension words are skipped without interpretation. The frame body is laid
// out per message type; client request types share the full-response layout
// so that encoded request frames round-trip through this parser.
func ParseResponse(data []byte) (*Response, error) {
	header, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}

	if header.Size < 1 {
		return nil, fmt.Errorf("invalid header size: %d words", header.Size)
	}

	headerLen := int(header.Size) * HeaderWordBytes
	if len(data) < headerLen {
		return nil, fmt.Errorf("frame too short for %d header words: expected %d bytes, got %d",
			header.Size, headerLen, len(data))
	}

	body := data[headerLen:]
	resp := &Response{Type: header.Type}

	var (
		raw        []byte
		hasPayload bool
	)

	switch header.Type {
	case MessageTypeFullServerResponse, MessageTypeFullClientRequest, MessageTypeAudioOnlyRequest:
		if len(body) < LengthPrefixBytes {
			return nil, fmt.Errorf("%s body too short: expected at least %d bytes, got %d",
				header.Type, LengthPrefixBytes, len(body))
		}
		resp.PayloadSize = int32(binary.BigEndian.Uint32(body[:4]))
		raw = body[4:]
		hasPayload = true

	case MessageTypeServerAck:
		if len(body) < 4 {
			return nil, fmt.Errorf("ack body too short: expected at least 4 bytes, got %d", len(body))
		}
		resp.Sequence = int32(binary.BigEndian.Uint32(body[:4]))
		resp.HasSequence = true
		if len(body) >= 8 {
			resp.PayloadSize = int32(binary.BigEndian.Uint32(body[4:8]))
			raw = body[8:]
			hasPayload = true
		}

	case MessageTypeServerError:
		if len(body) < 4 {
			return nil, fmt.Errorf("error body too short: expected at least 4 bytes, got %d", len(body))
		}
		resp.ErrorCode = binary.BigEndian.Uint32(body[:4])
		if len(body) >= 8 {
			resp.PayloadSize = int32(binary.BigEndian.Uint32(body[4:8]))
			raw = body[8:]
			hasPayload = true
		}

	default:
		// Unknown message types carry no extractable payload.
	}

	if !hasPayload {
		return resp, nil
	}

	if header.Compression == CompressionGzip {
		raw, err = decompressGzip(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress payload: %w", err)
		}
	}
	// Other compression values pass the bytes through untouched.

	switch header.Serialization {
	case SerializationJSON:
		if !json.Valid(raw) {
			return nil, fmt.Errorf("payload is not valid JSON (%d bytes)", len(raw))
		}
		resp.Payload = Payload{Kind: PayloadJSON, JSON: json.RawMessage(raw)}
	case SerializationNone:
		// No serialization declared: leave the payload unset.
	default:
		resp.Payload = Payload{Kind: PayloadText, Text: string(raw)}
	}

	return resp, nil
}

// compressGzip gzips data at the default compression level.
func compressGzip(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decompressGzip inflates a gzip stream into memory.
func decompressGzip(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// String returns a human-readable name for the message type.
func (t MessageType) String() string {
	switch t {
	case MessageTypeFullClientRequest:
		return "FullClientRequest"
	case MessageTypeAudioOnlyRequest:
		return "AudioOnlyRequest"
	case MessageTypeFullServerResponse:
		return "FullServerResponse"
	case MessageTypeServerAck:
		return "ServerAck"
	case MessageTypeServerError:
		return "ServerError"
	default:
		return fmt.Sprintf("Unknown(0x%x)", uint8(t))
	}
}
