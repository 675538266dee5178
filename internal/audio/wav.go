package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// wavHeaderBytes is the size of the canonical 44-byte PCM WAV header.
const wavHeaderBytes = 44

// WAVHeader is the canonical PCM WAV file header.
type WAVHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // file size - 8
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32 // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16 // NumChannels * BitsPerSample / 8
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // data bytes
}

// EncodeWAV wraps mono PCM-16 samples in a WAV container. An empty sample
// slice yields a valid header-only file.
func EncodeWAV(samples []int16, sampleRate int) []byte {
	dataSize := uint32(len(samples) * BytesPerSample)

	header := WAVHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     uint32(wavHeaderBytes-8) + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   Channels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * Channels * BytesPerSample),
		BlockAlign:    Channels * BytesPerSample,
		BitsPerSample: BitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderBytes+len(samples)*BytesPerSample))
	binary.Write(buf, binary.LittleEndian, header)
	binary.Write(buf, binary.LittleEndian, samples)

	return buf.Bytes()
}

// WAVInfo describes the format of a WAV container.
type WAVInfo struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
	DataBytes     int
	NumSamples    int
}

// Info reads and validates the header of a WAV container.
func Info(data []byte) (*WAVInfo, error) {
	if len(data) < wavHeaderBytes {
		return nil, fmt.Errorf("WAV data too short: need at least %d bytes, got %d",
			wavHeaderBytes, len(data))
	}

	var header WAVHeader
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read WAV header: %w", err)
	}

	if string(header.ChunkID[:]) != "RIFF" || string(header.Format[:]) != "WAVE" {
		return nil, fmt.Errorf("not a WAV file")
	}
	if string(header.Subchunk1ID[:]) != "fmt " || string(header.Subchunk2ID[:]) != "data" {
		return nil, fmt.Errorf("malformed WAV chunks")
	}
	if header.AudioFormat != 1 {
		return nil, fmt.Errorf("unsupported WAV audio format: %d (only PCM)", header.AudioFormat)
	}
	if header.BitsPerSample != BitsPerSample {
		return nil, fmt.Errorf("unsupported bit depth: %d", header.BitsPerSample)
	}

	return &WAVInfo{
		SampleRate:    int(header.SampleRate),
		Channels:      int(header.NumChannels),
		BitsPerSample: int(header.BitsPerSample),
		DataBytes:     int(header.Subchunk2Size),
		NumSamples:    int(header.Subchunk2Size) / BytesPerSample,
	}, nil
}

// Duration returns the playback length of a WAV container in seconds.
func Duration(data []byte) (float64, error) {
	info, err := Info(data)
	if err != nil {
		return 0, err
	}
	if info.SampleRate == 0 {
		return 0, fmt.Errorf("invalid sample rate: 0")
	}
	return float64(info.NumSamples) / float64(info.SampleRate*info.Channels), nil
}

// DecodeWAV extracts the PCM-16 samples from a mono WAV container.
func DecodeWAV(data []byte) ([]int16, int, error) {
	info, err := Info(data)
	if err != nil {
		return nil, 0, err
	}
	if info.Channels != Channels {
		return nil, 0, fmt.Errorf("unsupported channel count: %d (only mono)", info.Channels)
	}

	if len(data) < wavHeaderBytes+info.DataBytes {
		return nil, 0, fmt.Errorf("WAV data truncated: header declares %d data bytes, %d present",
			info.DataBytes, len(data)-wavHeaderBytes)
	}

	samples := make([]int16, info.NumSamples)
	if err := binary.Read(bytes.NewReader(data[wavHeaderBytes:]), binary.LittleEndian, samples); err != nil {
		return nil, 0, fmt.Errorf("failed to read WAV samples: %w", err)
	}

	return samples, info.SampleRate, nil
}
