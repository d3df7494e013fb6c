package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixzone/fixzone-portal/internal/observability/statsd"
)

func TestEmitAuditPrune(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("deleted rows", func(t *testing.T) {
		var sink statsd.Memory
		EmitAuditPrune(&sink, PruneMetric{Deleted: 7, Duration: time.Second, Now: now})

		runs := sink.Named("reaper.cleanup")
		require.Len(t, runs, 1)
		assert.Equal(t, ResultSuccess, runs[0].Tags["result"])
		deleted := sink.Named("reaper.events_deleted")
		require.Len(t, deleted, 1)
		assert.InDelta(t, 7, deleted[0].Value, 0)
		gauge := sink.Named("reaper.last_success_epoch")
		require.Len(t, gauge, 1)
		assert.InDelta(t, float64(now.Unix()), gauge[0].Value, 0)
	})

	t.Run("nothing to delete", func(t *testing.T) {
		var sink statsd.Memory
		EmitAuditPrune(&sink, PruneMetric{Now: now})
		assert.Equal(t, ResultNoop, sink.Named("reaper.cleanup")[0].Tags["result"])
		assert.Empty(t, sink.Named("reaper.events_deleted"))
	})

	t.Run("failure skips success gauge", func(t *testing.T) {
		var sink statsd.Memory
		EmitAuditPrune(&sink, PruneMetric{Err: errors.New("boom")})
		assert.Equal(t, ResultError, sink.Named("reaper.cleanup")[0].Tags["result"])
		assert.Empty(t, sink.Named("reaper.last_success_epoch"))
	})

	EmitAuditPrune(nil, PruneMetric{})
}
