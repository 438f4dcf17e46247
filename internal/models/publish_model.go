package models

import "time"

// ErrorKind classifies a failed platform attempt.
type ErrorKind string

const (
	KindNotConnected   ErrorKind = "not_connected"
	KindPrecondition   ErrorKind = "precondition"
	KindRemoteRejected ErrorKind = "remote_rejected"
	KindTransport      ErrorKind = "transport"
	KindInternal       ErrorKind = "internal"
)

const (
	ErrMsgNotConnected        = "not connected"
	ErrMsgRequiresMedia       = "requires media"
	ErrMsgUnsupportedPlatform = "unsupported platform"
)

type PublishResult struct {
	Platform string    `json:"platform"`
	Success  bool      `json:"success"`
	PostID   string    `json:"postId,omitempty"`
	Error    string    `json:"error,omitempty"`
	Kind     ErrorKind `json:"kind,omitempty"`
}

func Published(platform, remoteID string) PublishResult {
	return PublishResult{Platform: platform, Success: true, PostID: remoteID}
}

func Failed(platform string, kind ErrorKind, msg string) PublishResult {
	return PublishResult{Platform: platform, Error: msg, Kind: kind}
}

type PostRunResult struct {
	PostID  string          `json:"postId"`
	Owner   string          `json:"owner"`
	Results []PublishResult `json:"results"`
	Error   string          `json:"error,omitempty"`
}

type RunReport struct {
	Success                    bool            `json:"success"`
	ExecutedAt                 time.Time       `json:"executedAt"`
	TotalScheduledPostsChecked int             `json:"totalScheduledPostsChecked"`
	Processed                  int             `json:"processed"`
	Skipped                    bool            `json:"skipped,omitempty"`
	Results                    []PostRunResult `json:"results"`
}
