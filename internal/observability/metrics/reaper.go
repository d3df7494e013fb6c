package metrics

import (
	"time"

	obserrors "github.com/fixzone/fixzone-portal/internal/observability/errors"
	"github.com/fixzone/fixzone-portal/internal/observability/statsd"
)

// PruneMetric captures one audit trail cleanup pass.
type PruneMetric struct {
	Deleted  int64
	Duration time.Duration
	Err      error
	// Now stamps the last-success gauge; zero means time.Now.
	Now time.Time
}

// EmitAuditPrune emits reaper metrics for one cleanup pass.
func EmitAuditPrune(sink statsd.Sink, in PruneMetric) {
	if sink == nil {
		return
	}

	result := ResultSuccess
	switch {
	case in.Err != nil:
		result = ResultError
	case in.Deleted == 0:
		result = ResultNoop
	}
	tags := map[string]string{"result": result}
	if in.Err != nil {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("reaper.cleanup", 1, tags)
	if in.Duration > 0 {
		sink.Timing("reaper.cleanup_duration", in.Duration, CloneTags(tags))
	}
	if in.Err != nil {
		return
	}
	if in.Deleted > 0 {
		sink.Count("reaper.events_deleted", in.Deleted, nil)
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	sink.Gauge("reaper.last_success_epoch", float64(now.Unix()), nil)
}
