package service

import (
	"time"

	config "github.com/maheshrc27/contentpilot/configs"
)

// PlatformTimes returns now plus each platform's fixed delay. Manual
// platforms map to nil.
func PlatformTimes(platforms config.Platforms, now time.Time) map[string]*time.Time {
	times := make(map[string]*time.Time, len(platforms))
	for name, pf := range platforms {
		if pf.Manual || pf.DelayMinutes == nil {
			times[name] = nil
			continue
		}
		t := now.UTC().Add(time.Duration(*pf.DelayMinutes) * time.Minute)
		times[name] = &t
	}
	return times
}
