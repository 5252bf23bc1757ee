package exception

import "errors"

// Feed errors
var (
	ErrFeedConnectionClose = errors.New("feed: connection closed")
	ErrFeedMalformedTick   = errors.New("feed: malformed tick")
	ErrFeedEmptyURL        = errors.New("feed: empty url")
)
