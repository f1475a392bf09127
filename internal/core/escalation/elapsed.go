package escalation

import "time"

// Elapsed returns the response time of a record.
// Unresolved: now - detectedAt. Resolved: resolvedAt - detectedAt, regardless of now.
// Never negative.
func Elapsed(r *Record, now time.Time) time.Duration {
	end := now
	if r.ResolvedAt != nil {
		end = *r.ResolvedAt
	}
	d := end.Sub(r.DetectedAt)
	if d < 0 {
		return 0
	}
	return d
}
