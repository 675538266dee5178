// Package audio turns compressed voice packets into the linear byte stream
// the recognition protocol expects. It decodes Opus packets to PCM-16,
// wraps the samples in a WAV container, and splits the container into
// ordered fixed-size chunks for streaming.
package audio
