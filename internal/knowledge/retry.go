package knowledge

import (
	"context"

	agonerrors "github.com/doAIs/AgonX/internal/errors"
	"github.com/doAIs/AgonX/internal/logging"
)

// RetryingSearcher replays transient search failures with backoff before
// giving up. Retrieval queries are read-only so a replay is safe;
// deliberate rejections (validation, auth) pass through on the first
// attempt.
type RetryingSearcher struct {
	base   Searcher
	config agonerrors.RetryConfig
	logger logging.Logger
}

// NewRetryingSearcher wraps base with the given retry policy.
func NewRetryingSearcher(base Searcher, config agonerrors.RetryConfig, logger logging.Logger) *RetryingSearcher {
	return &RetryingSearcher{base: base, config: config, logger: logging.OrNop(logger)}
}

var _ Searcher = (*RetryingSearcher)(nil)

func (s *RetryingSearcher) Search(ctx context.Context, req SearchRequest) ([]RetrievalResult, error) {
	return agonerrors.RetryWithResult(ctx, s.config, func(ctx context.Context) ([]RetrievalResult, error) {
		return s.base.Search(ctx, req)
	}, s.logger)
}
