package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pershin-daniil/facultymeet/pkg/models"
)

func at(hour, minute int) time.Time {
	return time.Date(2024, 1, 1, hour, minute, 0, 0, time.UTC)
}

func meetingAt(start time.Time, duration int) models.Meeting {
	return models.Meeting{ID: start.Format(time.RFC3339), DateTime: start, Duration: duration, Status: models.StatusActive}
}

func TestEffectiveEnd(t *testing.T) {
	start := at(10, 0)
	require.Equal(t, at(11, 0), EffectiveEnd(meetingAt(start, 0)))
	require.Equal(t, at(11, 0), EffectiveEnd(meetingAt(start, -15)))
	require.Equal(t, at(10, 30), EffectiveEnd(meetingAt(start, 30)))

	ended := meetingAt(start, 30)
	end := at(12, 15)
	ended.EndTime = &end
	require.Equal(t, end, EffectiveEnd(ended))
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b models.Meeting
		want bool
	}{
		{"same slot", meetingAt(at(10, 0), 60), meetingAt(at(10, 0), 60), true},
		{"partial", meetingAt(at(10, 0), 60), meetingAt(at(10, 30), 60), true},
		{"contained", meetingAt(at(10, 0), 120), meetingAt(at(10, 30), 15), true},
		{"touching", meetingAt(at(10, 0), 60), meetingAt(at(11, 0), 60), false},
		{"disjoint", meetingAt(at(10, 0), 30), meetingAt(at(14, 0), 30), false},
		{"default duration", meetingAt(at(10, 0), 0), meetingAt(at(10, 59), 10), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Overlaps(tt.a, tt.b))
			require.Equal(t, tt.want, Overlaps(tt.b, tt.a))
		})
	}
}

func TestOverlapsUsesExplicitEnd(t *testing.T) {
	a := meetingAt(at(10, 0), 60)
	end := at(10, 20)
	a.EndTime = &end
	require.False(t, Overlaps(a, meetingAt(at(10, 30), 60)))
	require.True(t, Overlaps(a, a))
}

func TestWorkingDaysBetween(t *testing.T) {
	friday := time.Date(2024, 3, 1, 17, 0, 0, 0, time.UTC)
	monday := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

	require.Equal(t, 2, WorkingDaysBetween(friday, monday))
	require.Equal(t, 1, WorkingDaysBetween(friday, friday))
	require.Equal(t, 0, WorkingDaysBetween(monday, friday))
	require.Equal(t, 0, WorkingDaysBetween(friday.AddDate(0, 0, 1), friday.AddDate(0, 0, 2)))
	require.Equal(t, 6, WorkingDaysBetween(friday, monday.AddDate(0, 0, 4)))
}

func TestCanStillEdit(t *testing.T) {
	ended := time.Date(2024, 3, 1, 17, 0, 0, 0, time.UTC) // Friday
	require.True(t, CanStillEdit(ended, time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)))
	require.False(t, CanStillEdit(ended, time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC)))
}
