// Package query answers free-text questions about a tensor record by
// dispatching to the analytics kernels.
package query

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/KaramelBytes/tensorloom-cli/internal/ai"
	"github.com/KaramelBytes/tensorloom-cli/internal/analysis"
	"github.com/KaramelBytes/tensorloom-cli/internal/intent"
	"github.com/KaramelBytes/tensorloom-cli/internal/logging"
	"github.com/KaramelBytes/tensorloom-cli/internal/tensor"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrEmptyQuery is returned for a blank question.
var ErrEmptyQuery = errors.New("query is empty")

// Options tunes the kernels run on behalf of a question.
type Options struct {
	// AnomalyThreshold defaults to analysis.QueryAnomalyThreshold.
	AnomalyThreshold float64
	// ClusterK is used when the question names no count; default 3.
	ClusterK       int
	ClusterMaxIter int
	// Horizon is used when the question names no "next N"; default analysis.DefaultHorizon.
	Horizon int
	Rand    *rand.Rand
	// Narrator rewrites the computed explanation; nil skips narration.
	Narrator ai.Narrator
	Logger   *zap.Logger
	// Now stamps results; nil uses time.Now.
	Now func() time.Time
}

// Dispatcher classifies questions and formats kernel output as answers.
type Dispatcher struct {
	opt Options
	log *zap.Logger
}

// New returns a Dispatcher with defaults filled in.
func New(opt Options) *Dispatcher {
	if opt.AnomalyThreshold <= 0 {
		opt.AnomalyThreshold = analysis.QueryAnomalyThreshold
	}
	if opt.ClusterK <= 0 {
		opt.ClusterK = 3
	}
	if opt.ClusterMaxIter <= 0 {
		opt.ClusterMaxIter = analysis.DefaultClusterIterations
	}
	if opt.Horizon <= 0 {
		opt.Horizon = analysis.DefaultHorizon
	}
	if opt.Rand == nil {
		opt.Rand = analysis.NewRand(0)
	}
	if opt.Now == nil {
		opt.Now = time.Now
	}
	return &Dispatcher{opt: opt, log: logging.OrNop(opt.Logger)}
}

// Dispatch answers q against rec. history holds earlier results, oldest
// first; a general question naming a field after a field-specific answer is
// treated as a follow-up with the previous intent.
func (d *Dispatcher) Dispatch(ctx context.Context, rec *tensor.Record, q string, history []Result) (*Result, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, ErrEmptyQuery
	}
	in := intent.Classify(q)
	field, named := intent.MentionedField(q, rec.Fields)
	if in == intent.General && named {
		if prev, ok := lastFocused(history); ok {
			in = prev.Intent
			d.log.Debug("follow-up question", logging.Agent(logging.Query),
				zap.String("previous", prev.ID), zap.String("intent", string(in)))
		}
	}
	d.log.Debug("query classified", logging.Agent(logging.Query),
		zap.String("intent", string(in)), zap.String("field", field))

	if len(rec.Tensor) == 0 || len(rec.Fields) == 0 {
		return nil, fmt.Errorf("%s: no numeric data: %w", in, analysis.ErrEmptyMatrix)
	}

	var (
		ans answer
		err error
	)
	switch in {
	case intent.Predict:
		ans, err = d.predict(rec, q, field)
	case intent.Cluster:
		ans, err = d.cluster(rec, q)
	case intent.Anomaly:
		ans, err = d.anomaly(rec, field)
	case intent.Correlation:
		ans, err = d.correlation(rec, field)
	case intent.Summary:
		ans = d.summary(rec)
	default:
		ans, err = d.general(rec)
	}
	if err != nil {
		d.log.Warn("kernel failed", logging.Agent(logging.ErrorHandling), zap.String("intent", string(in)), zap.Error(err))
		return nil, fmt.Errorf("%s: %w", in, err)
	}
	d.log.Debug("kernel finished", logging.Agent(logging.Analytics), zap.String("intent", string(in)))

	res := &Result{
		ID:         uuid.NewString(),
		Query:      q,
		Intent:     in,
		Field:      ans.field,
		Result:     ans.text,
		Timestamp:  d.opt.Now().UTC().Truncate(time.Second),
		VisualData: ans.visual,
	}
	if d.opt.Narrator != nil {
		narr, err := d.opt.Narrator.Narrate(ctx, ai.NarrationRequest{Query: q, Intent: string(in), Facts: ans.text})
		if err != nil {
			d.log.Warn("narration failed; using computed explanation", logging.Agent(logging.ErrorHandling), zap.Error(err))
		} else {
			res.Narrative = narr
			d.log.Debug("narrated", logging.Agent(logging.Narration), zap.Int("chars", len(narr)))
		}
	}
	return res, nil
}

// lastFocused returns the previous result when it focused on a single field.
func lastFocused(history []Result) (Result, bool) {
	if len(history) == 0 {
		return Result{}, false
	}
	prev := history[len(history)-1]
	return prev, prev.Field != ""
}
