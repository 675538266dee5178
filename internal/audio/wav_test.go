package audio

import (
	"testing"
)

func TestEncodeWAVRoundTrip(t *testing.T) {
	samples := make([]int16, SampleRate) // one second of audio
	for i := range samples {
		samples[i] = int16(i % 1000)
	}

	data := EncodeWAV(samples, SampleRate)

	if len(data) != wavHeaderBytes+len(samples)*BytesPerSample {
		t.Fatalf("unexpected container size: %d", len(data))
	}

	decoded, rate, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}
	if rate != SampleRate {
		t.Errorf("expected sample rate %d, got %d", SampleRate, rate)
	}
	if len(decoded) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(decoded))
	}
	for i := range samples {
		if decoded[i] != samples[i] {
			t.Fatalf("sample %d: expected %d, got %d", i, samples[i], decoded[i])
		}
	}
}

func TestEncodeWAVEmpty(t *testing.T) {
	data := EncodeWAV(nil, SampleRate)

	if len(data) != wavHeaderBytes {
		t.Fatalf("expected header-only container of %d bytes, got %d", wavHeaderBytes, len(data))
	}

	info, err := Info(data)
	if err != nil {
		t.Fatalf("Info failed on header-only container: %v", err)
	}
	if info.DataBytes != 0 || info.NumSamples != 0 {
		t.Errorf("expected empty data section, got %+v", info)
	}
}

func TestInfo(t *testing.T) {
	data := EncodeWAV(make([]int16, 3200), SampleRate)

	info, err := Info(data)
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}

	if info.SampleRate != SampleRate {
		t.Errorf("sample rate: expected %d, got %d", SampleRate, info.SampleRate)
	}
	if info.Channels != Channels {
		t.Errorf("channels: expected %d, got %d", Channels, info.Channels)
	}
	if info.BitsPerSample != BitsPerSample {
		t.Errorf("bit depth: expected %d, got %d", BitsPerSample, info.BitsPerSample)
	}
	if info.NumSamples != 3200 {
		t.Errorf("samples: expected 3200, got %d", info.NumSamples)
	}
}

func TestInfoRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "too short", data: []byte("RIFF")},
		{name: "not riff", data: make([]byte, wavHeaderBytes)},
		{
			name: "wrong format tag",
			data: func() []byte {
				d := EncodeWAV(make([]int16, 10), SampleRate)
				copy(d[8:12], "OGGS")
				return d
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Info(tt.data); err == nil {
				t.Error("expected error, got none")
			}
		})
	}
}

func TestDuration(t *testing.T) {
	data := EncodeWAV(make([]int16, SampleRate*2), SampleRate)

	d, err := Duration(data)
	if err != nil {
		t.Fatalf("Duration failed: %v", err)
	}
	if d != 2.0 {
		t.Errorf("expected 2 seconds, got %f", d)
	}
}
