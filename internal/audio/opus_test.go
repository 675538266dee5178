package audio

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

// fakeCodec decodes packets by interpreting each byte as one sample, and
// fails on any packet whose first byte is 0xFF.
type fakeCodec struct {
	calls int
}

func (f *fakeCodec) Decode(packet []byte, frameSize int) ([]int16, error) {
	f.calls++
	if len(packet) > 0 && packet[0] == 0xFF {
		return nil, errors.New("corrupt packet")
	}
	pcm := make([]int16, len(packet))
	for i, b := range packet {
		pcm[i] = int16(b)
	}
	return pcm, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDecodePacketsSkipsCorrupt(t *testing.T) {
	codec := &fakeCodec{}
	dec := NewDecoderWithCodec(codec, discardLogger())

	packets := [][]byte{
		{1, 2, 3},
		{0xFF, 9, 9}, // fails to decode
		{4, 5},
	}

	frames, dropped := dec.DecodePackets(packets)

	if codec.calls != 3 {
		t.Errorf("expected 3 decode attempts, got %d", codec.calls)
	}
	if dropped != 1 {
		t.Errorf("expected 1 dropped packet, got %d", dropped)
	}
	if len(frames) != 2 {
		t.Fatalf("expected 2 surviving frames, got %d", len(frames))
	}
	if frames[0][0] != 1 || frames[1][0] != 4 {
		t.Error("surviving frames are out of order")
	}
}

func TestDecodePacketsAllFail(t *testing.T) {
	dec := NewDecoderWithCodec(&fakeCodec{}, discardLogger())

	frames, dropped := dec.DecodePackets([][]byte{{0xFF}, {0xFF}})

	if dropped != 2 {
		t.Errorf("expected 2 dropped packets, got %d", dropped)
	}
	if len(frames) != 0 {
		t.Errorf("expected no frames, got %d", len(frames))
	}

	// All-failed input still yields a usable header-only container.
	container := BuildContainer(frames)
	if len(container) != wavHeaderBytes {
		t.Errorf("expected header-only container, got %d bytes", len(container))
	}
}

func TestBuildContainerConcatenatesInOrder(t *testing.T) {
	frames := [][]int16{{10, 20}, {30}, {40, 50, 60}}

	container := BuildContainer(frames)

	samples, rate, err := DecodeWAV(container)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}
	if rate != SampleRate {
		t.Errorf("expected sample rate %d, got %d", SampleRate, rate)
	}

	expected := []int16{10, 20, 30, 40, 50, 60}
	if len(samples) != len(expected) {
		t.Fatalf("expected %d samples, got %d", len(expected), len(samples))
	}
	for i := range expected {
		if samples[i] != expected[i] {
			t.Errorf("sample %d: expected %d, got %d", i, expected[i], samples[i])
		}
	}
}

func TestContainerSegmentsCoverFixedDuration(t *testing.T) {
	// One minute of audio split into 15-second segments.
	frames := [][]int16{make([]int16, SampleRate*60)}
	container := BuildContainer(frames)

	info, err := Info(container)
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}

	segment := SegmentSize(info.SampleRate, info.Channels, BytesPerSample, 15*time.Second)
	s, err := NewSplitter(container, segment)
	if err != nil {
		t.Fatalf("NewSplitter failed: %v", err)
	}

	count := 0
	for {
		if _, ok := s.Next(); !ok {
			break
		}
		count++
	}

	// 60 s of data plus the 44-byte header lands in 5 chunks.
	if count != 5 {
		t.Errorf("expected 5 segments, got %d", count)
	}
}
