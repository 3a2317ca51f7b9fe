package domain

import "time"

// Stats is a point-in-time copy of the relay counters.
type Stats struct {
	Received     int
	Duplicates   int
	Forwarded    int
	Errors       int
	Filtered     int
	Promotional  int
	TotalDelay   time.Duration
	CharsRemoved int
	CacheSize    int
	StartedAt    time.Time
}

// AverageDelay is the mean forward delay of relayed messages.
func (s Stats) AverageDelay() time.Duration {
	if s.Forwarded == 0 {
		return 0
	}

	return s.TotalDelay / time.Duration(s.Forwarded)
}

// DuplicateRatio is the share of received messages found to be duplicates.
func (s Stats) DuplicateRatio() float64 {
	if s.Received == 0 {
		return 0
	}

	return float64(s.Duplicates) / float64(s.Received)
}

// FilteringEfficiency is the share of received messages that were not duplicates.
func (s Stats) FilteringEfficiency() float64 {
	if s.Received == 0 {
		return 0
	}

	return 1 - s.DuplicateRatio()
}

// AverageCharsRemoved is the mean number of ad characters stripped per relayed message.
func (s Stats) AverageCharsRemoved() float64 {
	if s.Forwarded == 0 {
		return 0
	}

	return float64(s.CharsRemoved) / float64(s.Forwarded)
}
