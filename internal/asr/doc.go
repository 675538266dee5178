// Package asr drives recognition sessions against the remote speech service.
// One Recognize call owns one websocket connection for its whole lifetime:
// it sends the JSON configuration frame, streams the audio container in
// fixed-duration chunks, and interprets the single consolidated result frame.
package asr
