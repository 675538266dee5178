package audio

import (
	"fmt"
	"log/slog"
	"time"

	"layeh.com/gopus"
)

// Fixed audio format of the recognition contract. The remote service expects
// mono 16-bit PCM at 16 kHz; Opus packets arrive as 60 ms frames.
const (
	SampleRate     = 16000
	Channels       = 1
	BitsPerSample  = 16
	BytesPerSample = BitsPerSample / 8

	// FrameSize is the number of samples per Opus packet: 60 ms at 16 kHz.
	FrameSize = 960
)

// PacketDecoder is the decode-only codec capability the pipeline depends on.
// Decode returns the PCM-16 samples of a single compressed packet.
type PacketDecoder interface {
	Decode(packet []byte, frameSize int) ([]int16, error)
}

// gopusDecoder adapts a gopus Opus decoder to PacketDecoder. Decoder state
// carries across consecutive packets of one stream, so a fresh instance is
// needed per session.
type gopusDecoder struct {
	dec *gopus.Decoder
}

func (g *gopusDecoder) Decode(packet []byte, frameSize int) ([]int16, error) {
	return g.dec.Decode(packet, frameSize, false)
}

// Decoder decodes an ordered sequence of compressed voice packets into PCM
// sample frames. It is not safe for concurrent use.
type Decoder struct {
	codec  PacketDecoder
	logger *slog.Logger
}

// NewDecoder creates a Decoder backed by an Opus codec configured for the
// fixed 16 kHz mono format.
func NewDecoder(logger *slog.Logger) (*Decoder, error) {
	dec, err := gopus.NewDecoder(SampleRate, Channels)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus decoder: %w", err)
	}
	return NewDecoderWithCodec(&gopusDecoder{dec: dec}, logger), nil
}

// NewDecoderWithCodec creates a Decoder using the given codec implementation.
func NewDecoderWithCodec(codec PacketDecoder, logger *slog.Logger) *Decoder {
	return &Decoder{codec: codec, logger: logger}
}

// DecodePackets decodes each packet in order and returns the resulting sample
// frames plus the number of packets that failed to decode. A corrupt packet
// is logged and skipped; the surviving frames keep their original order.
func (d *Decoder) DecodePackets(packets [][]byte) ([][]int16, int) {
	frames := make([][]int16, 0, len(packets))
	dropped := 0

	for i, packet := range packets {
		pcm, err := d.codec.Decode(packet, FrameSize)
		if err != nil {
			dropped++
			d.logger.Warn("Opus packet failed to decode, skipping",
				slog.Int("packet_index", i),
				slog.Int("packet_bytes", len(packet)),
				slog.String("error", err.Error()),
			)
			continue
		}
		frames = append(frames, pcm)
	}

	return frames, dropped
}

// BuildContainer concatenates decoded sample frames in order and wraps them
// in a WAV container describing the fixed mono/16-bit/16 kHz format. An
// empty frame list produces a header-only container.
func BuildContainer(frames [][]int16) []byte {
	total := 0
	for _, f := range frames {
		total += len(f)
	}

	samples := make([]int16, 0, total)
	for _, f := range frames {
		samples = append(samples, f...)
	}

	return EncodeWAV(samples, SampleRate)
}

// SegmentSize returns the number of container bytes covering the given
// duration of audio.
func SegmentSize(sampleRate, channels, bytesPerSample int, window time.Duration) int {
	bytesPerSecond := sampleRate * channels * bytesPerSample
	return int(float64(bytesPerSecond) * window.Seconds())
}
