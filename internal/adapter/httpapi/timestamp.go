package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"qalog/internal/domain"
)

// Timezone-less layouts are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// Epoch values above this are taken as milliseconds.
const epochMillisThreshold = 2e10

// timestamp accepts RFC 3339, naive ISO 8601 with a T or space separator,
// and numeric Unix epochs.
type timestamp struct {
	time.Time
}

func (t *timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] != '"' {
		var epoch float64
		if err := json.Unmarshal(data, &epoch); err != nil {
			return fmt.Errorf("date: %w", err)
		}
		t.Time = fromEpoch(epoch)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date: %w", err)
	}
	if s == "" {
		return nil
	}
	parsed, err := parseTimestamp(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("date: unrecognized timestamp %q: %w", s, domain.ErrValidation)
}

func fromEpoch(epoch float64) time.Time {
	if math.Abs(epoch) > epochMillisThreshold {
		epoch /= 1000
	}
	sec, frac := math.Modf(epoch)
	return time.Unix(int64(sec), int64(math.Round(frac*1e9))).UTC()
}
