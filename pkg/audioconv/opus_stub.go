//go:build !opus

package audioconv

import (
	"errors"
	"io"
)

var ErrOpusNotBuilt = errors.New("opus support not compiled in (build with -tags opus)")

func decodeOpus(io.ReadSeeker) ([]float32, error) {
	return nil, ErrOpusNotBuilt
}
