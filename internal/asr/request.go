package asr

import (
	"github.com/google/uuid"

	"github.com/whoyao/xiaozhi-esp32-server/internal/audio"
)

// sessionRequest is the JSON configuration document sent as the first frame
// of every session.
type sessionRequest struct {
	App     appInfo     `json:"app"`
	User    userInfo    `json:"user"`
	Request requestInfo `json:"request"`
	Audio   audioInfo   `json:"audio"`
}

type appInfo struct {
	AppID   string `json:"appid"`
	Cluster string `json:"cluster"`
	Token   string `json:"token"`
}

type userInfo struct {
	UID string `json:"uid"`
}

type requestInfo struct {
	ReqID          string `json:"reqid"`
	ShowUtterances bool   `json:"show_utterances"`
	Sequence       int    `json:"sequence"`
}

type audioInfo struct {
	Format   string `json:"format"`
	Rate     int    `json:"rate"`
	Language string `json:"language"`
	Bits     int    `json:"bits"`
	Channel  int    `json:"channel"`
	Codec    string `json:"codec"`
}

// newSessionRequest builds the configuration document for one session with
// fresh random identifiers and the fixed audio-format declaration.
func newSessionRequest(cfg Config, reqID string) sessionRequest {
	return sessionRequest{
		App: appInfo{
			AppID:   cfg.AppID,
			Cluster: cfg.Cluster,
			Token:   cfg.AccessToken,
		},
		User: userInfo{
			UID: uuid.NewString(),
		},
		Request: requestInfo{
			ReqID:          reqID,
			ShowUtterances: false,
			Sequence:       1,
		},
		Audio: audioInfo{
			Format:   "wav",
			Rate:     audio.SampleRate,
			Language: cfg.Language,
			Bits:     audio.BitsPerSample,
			Channel:  audio.Channels,
			Codec:    "raw",
		},
	}
}

// serverResponse is the JSON document carried by the service's response
// frames.
type serverResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	ReqID   string      `json:"reqid"`
	Result  []utterance `json:"result"`
}

// utterance is one recognized result alternative.
type utterance struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}
