package httpclient

import (
	"io"

	agonerrors "github.com/doAIs/AgonX/internal/errors"
)

// ReadAllWithLimit drains r, failing with ResponseTooLargeError once the
// body exceeds limit bytes. A limit of zero or less reads unbounded.
func ReadAllWithLimit(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, &agonerrors.ResponseTooLargeError{Limit: limit}
	}
	return data, nil
}
