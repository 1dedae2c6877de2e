// ABOUTME: Helpers that turn upstream errors into failed step outcomes.
// ABOUTME: Context deadline and cancellation errors keep their own failure kinds.
package steps

import (
	"context"
	"errors"

	"github.com/saicharanallam/sigmachain/pipeline"
)

// upstreamFailure reports err under the given message prefix, e.g.
// "Error enhancing prompt".
func upstreamFailure(prefix string, err error) *pipeline.Outcome {
	kind := pipeline.KindUpstream
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = pipeline.KindTimeout
	case errors.Is(err, context.Canceled):
		kind = pipeline.KindCancelled
	}
	return pipeline.Failf(kind, "%s: %v", prefix, err)
}
