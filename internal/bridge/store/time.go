package store

import "time"

// nowFn is a seam for deterministic testing of retry-timestamp updates.
var nowFn = time.Now

func msToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
