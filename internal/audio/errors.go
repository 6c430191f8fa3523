package audio

import "errors"

var ErrStopped = errors.New("recording stopped")
