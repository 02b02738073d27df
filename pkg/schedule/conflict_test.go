package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pershin-daniil/facultymeet/pkg/models"
)

func customMeeting(id, host string, start time.Time, attendees ...string) models.Meeting {
	return models.Meeting{
		ID:                 id,
		Title:              id,
		DateTime:           start,
		Duration:           60,
		Attendees:          models.AudienceCustom,
		CustomAttendeeUIDs: attendees,
		ScheduledBy:        host,
		Status:             models.StatusActive,
	}
}

func TestResolveNoConflict(t *testing.T) {
	caller := models.Participant{UID: "dean", Designation: "DEAN"}
	candidate := customMeeting("new", "dean", at(14, 0), "x")
	active := []models.Meeting{
		customMeeting("other-time", "hod", at(10, 0), "dean"),
		customMeeting("not-involved", "hod", at(14, 0), "y"),
	}
	r := Resolve(candidate, caller, active, map[string]string{"hod": "HOD"})
	require.True(t, r.Clear())
	require.False(t, r.CanOverride())
}

func TestResolvePartitions(t *testing.T) {
	caller := models.Participant{UID: "hod", Designation: "HOD"}
	candidate := customMeeting("new", "hod", at(10, 0), "x")
	active := []models.Meeting{
		customMeeting("lower", "asst", at(10, 30), "hod"),
		customMeeting("equal", "hod2", at(9, 30), "hod"),
		customMeeting("higher", "dean", at(10, 15), "hod"),
		customMeeting("own", "hod", at(10, 45), "z"),
		customMeeting("unknown-host", "ghost", at(10, 0), "hod"),
	}
	hosts := map[string]string{"asst": "Assistant Professor", "hod2": "HOD", "dean": "DEAN"}

	r := Resolve(candidate, caller, active, hosts)
	require.Len(t, r.Conflicts, 5)
	require.Len(t, r.Overrideable, 1)
	require.Equal(t, "lower", r.Overrideable[0].ID)
	require.Len(t, r.Blocking, 4)
	require.False(t, r.CanOverride())
}

func TestResolveOverrideable(t *testing.T) {
	caller := models.Participant{UID: "dean", Designation: "DEAN"}
	candidate := customMeeting("new", "dean", at(10, 0), "x")
	faculty := models.Meeting{
		ID: "faculty", DateTime: at(10, 30), Duration: 60, Attendees: models.AudienceAllHODs,
		ScheduledBy: "hod", Status: models.StatusActive,
	}
	// dean is not in the HOD audience, so only involvement via custom list counts
	involved := customMeeting("involved", "hod", at(10, 30), "dean")

	r := Resolve(candidate, caller, []models.Meeting{faculty, involved}, map[string]string{"hod": "HOD"})
	require.Len(t, r.Conflicts, 1)
	require.True(t, r.CanOverride())
	require.Equal(t, "involved", r.Overrideable[0].ID)
}

func TestResolveRoleAudienceInvolvement(t *testing.T) {
	caller := models.Participant{UID: "hod", Designation: "HOD"}
	candidate := customMeeting("new", "hod", at(10, 0), "x")
	all := models.Meeting{
		ID: "all", DateTime: at(10, 0), Duration: 30, Attendees: models.AudienceAllFaculty,
		ScheduledBy: "asst", Status: models.StatusActive,
	}
	r := Resolve(candidate, caller, []models.Meeting{all}, map[string]string{"asst": "Assistant Professor"})
	require.True(t, r.CanOverride())
}

func TestResolveEqualRankNeverOverrideable(t *testing.T) {
	caller := models.Participant{UID: "a", Designation: "Assistant Professor"}
	candidate := customMeeting("new", "a", at(10, 0), "x")
	active := []models.Meeting{customMeeting("m", "b", at(10, 0), "a")}
	r := Resolve(candidate, caller, active, map[string]string{"b": "Faculty"})
	require.Empty(t, r.Overrideable)
	require.Len(t, r.Blocking, 1)
}

func TestResolveSkipsCandidateAndInactive(t *testing.T) {
	caller := models.Participant{UID: "a", Designation: "HOD"}
	candidate := customMeeting("same", "a", at(10, 0), "x")
	cancelled := customMeeting("cancelled", "b", at(10, 0), "a")
	cancelled.Status = models.StatusCancelled
	r := Resolve(candidate, caller, []models.Meeting{candidate, cancelled}, nil)
	require.True(t, r.Clear())
}

func TestOverrideReason(t *testing.T) {
	require.Equal(t, "Overridden by Asha Rao (DEAN)", OverrideReason("Asha Rao", "DEAN"))
}

func TestValidateCandidate(t *testing.T) {
	now := at(9, 0)
	valid := customMeeting("m", "host", at(10, 0), "x")
	require.NoError(t, ValidateCandidate(valid, now))

	selfOnly := customMeeting("m", "host", at(10, 0), "host")
	err := ValidateCandidate(selfOnly, now)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Contains(t, vErr.FieldErrors, "customAttendeeUids")

	bad := models.Meeting{ScheduledBy: "host", DateTime: at(8, 0), Attendees: "Everyone"}
	err = ValidateCandidate(bad, now)
	require.ErrorAs(t, err, &vErr)
	require.Contains(t, vErr.FieldErrors, "title")
	require.Contains(t, vErr.FieldErrors, "dateTime")
	require.Contains(t, vErr.FieldErrors, "attendees")
}
