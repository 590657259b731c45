package progress

import (
	"time"

	progressDomain "linggo_sync/internal/domain/progress"
)

// CanAdvance reports whether submitted may replace stored as the freshness
// marker: it must move strictly forward and must not lie in the future.
func CanAdvance(stored, submitted progressDomain.Marker, now time.Time, skew time.Duration) bool {
	if submitted.Updated <= stored.Updated {
		return false
	}
	if submitted.HasTimeStamp() && submitted.TimeStamp <= stored.TimeStamp {
		return false
	}
	return !InFuture(submitted, now, skew)
}

// InFuture reports whether any part of the marker is later than the server
// clock plus the tolerated skew.
func InFuture(m progressDomain.Marker, now time.Time, skew time.Duration) bool {
	limit := now.Add(skew).UnixMilli()
	if m.Updated > limit {
		return true
	}
	return m.HasTimeStamp() && m.TimeStamp > limit
}
