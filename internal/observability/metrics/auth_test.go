package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/fixzone/fixzone-portal/internal/domain/auth"
	"github.com/fixzone/fixzone-portal/internal/observability/statsd"
)

func TestEmitAuthOperation(t *testing.T) {
	var sink statsd.Memory

	EmitAuthOperation(&sink, AuthMetric{Operation: OpLogin, Duration: 20 * time.Millisecond})
	EmitAuthOperation(&sink, AuthMetric{Operation: OpRestore, Err: domainauth.NewError(domainauth.KindTimeout, "")})

	ops := sink.Named("auth.operation")
	require.Len(t, ops, 2)
	assert.Equal(t, map[string]string{"operation": "login", "result": "success"}, ops[0].Tags)
	assert.Equal(t, "error", ops[1].Tags["result"])
	assert.Equal(t, "auth_timeout", ops[1].Tags["error_class"])

	assert.Len(t, sink.Named("auth.duration"), 1, "zero durations are not timed")

	EmitAuthOperation(nil, AuthMetric{Operation: OpLogout})
}

func TestEmitGuardDecision(t *testing.T) {
	var sink statsd.Memory
	EmitGuardDecision(&sink, GuardMetric{Area: "customer", Decision: "render", Audience: "staff"})
	EmitGuardDecision(&sink, GuardMetric{Area: "staff", Decision: "redirect_login"})

	got := sink.Named("guard.decision")
	require.Len(t, got, 2)
	assert.Equal(t, "staff", got[0].Tags["audience"])
	_, has := got[1].Tags["audience"]
	assert.False(t, has)
}

func TestCloneTags(t *testing.T) {
	assert.Nil(t, CloneTags(nil))
	src := map[string]string{"a": "1", "": "x"}
	out := CloneTags(src)
	out["a"] = "2"
	assert.Equal(t, "1", src["a"])
	assert.NotContains(t, out, "")
}

func TestEmitAudienceChange(t *testing.T) {
	var sink statsd.Memory
	EmitAudienceChange(&sink, AudienceNone, "customer")
	EmitAudienceChange(nil, "customer", AudienceNone)

	got := sink.Named("session.audience_change")
	require.Len(t, got, 1)
	assert.Equal(t, map[string]string{"from": "none", "to": "customer"}, got[0].Tags)
}
