// Package protocol implements the binary frame format spoken by the remote
// speech-recognition service. It packs and parses the nibble-packed 4-byte
// header, builds gzip-compressed length-prefixed request frames, and decodes
// the heterogeneous server response frames (full response, ack, error).
package protocol
