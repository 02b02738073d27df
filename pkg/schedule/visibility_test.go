package schedule

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pershin-daniil/facultymeet/pkg/models"
)

func TestIsVisible(t *testing.T) {
	tests := []struct {
		name        string
		audience    string
		custom      []string
		viewer      string
		designation string
		want        bool
	}{
		{"host sees own", models.AudienceAllDeans, nil, "host", "Lab Assistant", true},
		{"faculty audience", models.AudienceAllFaculty, nil, "u1", "Assistant Professor", true},
		{"faculty audience case", models.AudienceAllFaculty, nil, "u1", "assistant professor", true},
		{"faculty excludes dean", models.AudienceAllFaculty, nil, "u1", "DEAN", false},
		{"deans", models.AudienceAllDeans, nil, "u1", "DEAN", true},
		{"deans admin", models.AudienceAllDeans, nil, "u1", "ADMIN", true},
		{"deans excludes hod", models.AudienceAllDeans, nil, "u1", "HOD", false},
		{"hods", models.AudienceAllHODs, nil, "u1", "HOD", true},
		{"hods admin", models.AudienceAllHODs, nil, "u1", "ADMIN", true},
		{"associate", models.AudienceAssociateProfs, nil, "u1", "Associate Professor", true},
		{"associate excludes assistant", models.AudienceAssociateProfs, nil, "u1", "Assistant Professor", false},
		{"custom member", models.AudienceCustom, []string{"u1"}, "u1", "Lab Assistant", true},
		{"custom outsider", models.AudienceCustom, []string{"u2"}, "u1", "ADMIN", false},
		{"unknown tag", "Everyone", nil, "u1", "ADMIN", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := models.Meeting{Attendees: tt.audience, CustomAttendeeUIDs: tt.custom, ScheduledBy: "host"}
			require.Equal(t, tt.want, IsVisible(m, tt.viewer, tt.designation))
		})
	}
}

func TestFilterVisible(t *testing.T) {
	end := at(11, 0)
	meetings := []models.Meeting{
		{ID: "active", Attendees: models.AudienceAllFaculty, Status: models.StatusActive},
		{ID: "cancelled", Attendees: models.AudienceAllFaculty, Status: models.StatusCancelled},
		{ID: "completed", Attendees: models.AudienceAllFaculty, Status: models.StatusCompleted, EndTime: &end},
		{ID: "hidden", Attendees: models.AudienceAllDeans, Status: models.StatusActive},
	}
	viewer := models.Participant{UID: "u1", Designation: "HOD"}

	ids := func(ms []models.Meeting) []string {
		out := make([]string, 0, len(ms))
		for _, m := range ms {
			out = append(out, m.ID)
		}
		return out
	}
	require.Equal(t, []string{"active"}, ids(FilterVisible(meetings, viewer, ViewDashboard)))
	require.Equal(t, []string{"active", "cancelled", "completed"}, ids(FilterVisible(meetings, viewer, ViewCalendar)))
}

func TestKnownAudience(t *testing.T) {
	require.True(t, KnownAudience(models.AudienceCustom))
	require.True(t, KnownAudience(models.AudienceAllHODs))
	require.False(t, KnownAudience("HODs Only"))
	require.Nil(t, AudienceDesignations(models.AudienceCustom))
}
