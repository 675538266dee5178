package audio

import "fmt"

// Chunk is one bounded slice of the container byte stream. Last is set on
// exactly one chunk per traversal, the final one.
type Chunk struct {
	Data []byte
	Last bool
}

// Splitter walks a byte buffer once, yielding consecutive chunks of exactly
// the configured size except the last, which holds the remainder (possibly
// empty). Chunks reference positions in the underlying buffer; a Splitter is
// not restartable.
type Splitter struct {
	data   []byte
	size   int
	offset int
	done   bool
}

// NewSplitter creates a Splitter over data. size must be positive.
func NewSplitter(data []byte, size int) (*Splitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	return &Splitter{data: data, size: size}, nil
}

// Next returns the next chunk and whether one was produced. After the final
// chunk has been returned, Next reports false.
func (s *Splitter) Next() (Chunk, bool) {
	if s.done {
		return Chunk{}, false
	}

	if s.offset+s.size < len(s.data) {
		chunk := Chunk{Data: s.data[s.offset : s.offset+s.size]}
		s.offset += s.size
		return chunk, true
	}

	s.done = true
	return Chunk{Data: s.data[s.offset:], Last: true}, true
}
