package metrics

import (
	"time"

	obserrors "github.com/rejoiceinstitute/rejoice-web/internal/observability/errors"
	"github.com/rejoiceinstitute/rejoice-web/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// AuthMetric describes one account operation (register, login, logout, profile).
type AuthMetric struct {
	Op       string
	Role     string
	Duration time.Duration
	Err      error
}

// EmitAuthOperation emits a counter and, when timed, a timing for an account operation.
func EmitAuthOperation(sink statsd.Sink, in AuthMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"op":     in.Op,
		"result": ResultSuccess,
	}
	if in.Role != "" {
		tags["role"] = in.Role
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

// EmitStateChange counts provider notifications handled by a session store.
func EmitStateChange(sink statsd.Sink, signedIn bool, profileLoaded bool) {
	if sink == nil {
		return
	}
	state := "signed_out"
	if signedIn {
		state = "signed_in"
	}
	tags := map[string]string{"state": state}
	if signedIn && !profileLoaded {
		tags["profile"] = "missing"
	}
	sink.Count("auth.state_change", 1, tags)
}

// EmitActiveSessions reports how many client session stores are live.
func EmitActiveSessions(sink statsd.Sink, n int) {
	if sink == nil {
		return
	}
	sink.Gauge("auth.sessions.active", float64(n), nil)
}

// CacheStats is one reporting interval of an in-process session cache.
// Hits, Misses and Evictions are deltas since the previous report.
type CacheStats struct {
	Hits, Misses, Evictions uint64
	Size, Capacity          int
}

// EmitCacheStats reports session cache traffic and occupancy.
func EmitCacheStats(sink statsd.Sink, backend string, st CacheStats) {
	if sink == nil {
		return
	}
	tags := map[string]string{"backend": backend}
	sink.Count("auth.cache.hits", int64(st.Hits), tags)
	sink.Count("auth.cache.misses", int64(st.Misses), CloneTags(tags))
	sink.Count("auth.cache.evictions", int64(st.Evictions), CloneTags(tags))
	sink.Gauge("auth.cache.size", float64(st.Size), CloneTags(tags))
	if st.Capacity > 0 {
		sink.Gauge("auth.cache.utilization", float64(st.Size)/float64(st.Capacity), CloneTags(tags))
	}
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
