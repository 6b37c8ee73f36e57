package usage

import "errors"

var (
	// ErrInvalidAction is returned for actions other than resolve and download
	ErrInvalidAction = errors.New("invalid usage action")

	// ErrMissingSession is returned when no session id is given
	ErrMissingSession = errors.New("session id is required")

	// ErrNilRepository is returned when NewService is called without a repository
	ErrNilRepository = errors.New("usage repository is required")
)
