package util

import "time"

func NowMillis() int64 {
	return time.Now().UnixNano() / 1000000
}

func MinutesToDuration(minutes int) time.Duration {
	return time.Duration(minutes) * time.Minute
}
