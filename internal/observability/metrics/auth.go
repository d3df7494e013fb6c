package metrics

import (
	"time"

	obserrors "github.com/fixzone/fixzone-portal/internal/observability/errors"
	"github.com/fixzone/fixzone-portal/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// Auth operations.
const (
	OpLogin   = "login"
	OpRestore = "restore"
	OpLogout  = "logout"
	OpProfile = "profile"
)

// AuthMetric captures one session store operation for metric emission.
type AuthMetric struct {
	Operation string
	Duration  time.Duration
	Err       error
}

// EmitAuthOperation emits standardised auth operation metrics.
func EmitAuthOperation(sink statsd.Sink, in AuthMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"operation": in.Operation,
		"result":    ResultSuccess,
	}
	if in.Err != nil {
		tags["result"] = ResultError
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("auth.operation", 1, tags)
	if in.Duration > 0 {
		sink.Timing("auth.duration", in.Duration, CloneTags(tags))
	}
}

// GuardMetric captures one Route Guard decision.
type GuardMetric struct {
	Area     string
	Decision string
	Audience string
}

// EmitGuardDecision counts guard outcomes per area.
func EmitGuardDecision(sink statsd.Sink, in GuardMetric) {
	if sink == nil {
		return
	}
	tags := map[string]string{"area": in.Area, "decision": in.Decision}
	if in.Audience != "" {
		tags["audience"] = in.Audience
	}
	sink.Count("guard.decision", 1, tags)
}

// CloneTags creates a shallow copy of a tag map, filtering out empty keys.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		if k != "" {
			out[k] = v
		}
	}
	return out
}

// AudienceNone tags a visitor with no confirmed or cached session.
const AudienceNone = "none"

// EmitAudienceChange counts a visitor moving between audiences, including
// signing in (from none) and signing out (to none).
func EmitAudienceChange(sink statsd.Sink, from, to string) {
	if sink == nil {
		return
	}
	sink.Count("session.audience_change", 1, map[string]string{"from": from, "to": to})
}
