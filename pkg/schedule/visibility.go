package schedule

import (
	"strings"

	"github.com/pershin-daniil/facultymeet/pkg/models"
)

// View selects which lifecycle states a listing keeps.
type View int

const (
	// ViewDashboard is the live view: only Active meetings that have not ended.
	ViewDashboard View = iota
	// ViewCalendar is the audit view and keeps Cancelled and Completed meetings.
	ViewCalendar
)

var audienceDesignations = map[string][]string{
	models.AudienceAllFaculty: {
		models.DesignationFaculty,
		models.DesignationAssistantProf,
		models.DesignationAssociateProf,
		models.DesignationLabAssistant,
		models.DesignationHOD,
		models.DesignationAdmin,
		models.DesignationUnassigned,
	},
	models.AudienceAssociateProfs: {models.DesignationAssociateProf},
	models.AudienceAssistantProfs: {models.DesignationAssistantProf},
	models.AudienceAllDeans:       {models.DesignationDean, models.DesignationAdmin},
	models.AudienceAllHODs:        {models.DesignationHOD, models.DesignationAdmin},
}

// KnownAudience reports whether tag is one of the audience tags meetings may carry.
func KnownAudience(tag string) bool {
	if tag == models.AudienceCustom {
		return true
	}
	_, ok := audienceDesignations[tag]
	return ok
}

// AudienceDesignations lists the designations a role-based audience expands to.
// It returns nil for Custom and unknown tags.
func AudienceDesignations(tag string) []string {
	return audienceDesignations[tag]
}

// AudienceIncludes reports whether the role-based audience tag covers designation.
// Custom and unrecognized tags never match a designation.
func AudienceIncludes(tag, designation string) bool {
	for _, d := range audienceDesignations[tag] {
		if strings.EqualFold(d, strings.TrimSpace(designation)) {
			return true
		}
	}
	return false
}

// IsVisible decides whether the viewer may see m. Hosts always see their own meetings.
func IsVisible(m models.Meeting, viewerUID, viewerDesignation string) bool {
	if m.ScheduledBy == viewerUID {
		return true
	}
	if m.Attendees == models.AudienceCustom {
		return m.IsCustomAttendee(viewerUID)
	}
	return AudienceIncludes(m.Attendees, viewerDesignation)
}

// IsInvolved reports whether the participant takes part in m, either as host,
// as a custom attendee or through a role-based audience.
func IsInvolved(m models.Meeting, p models.Participant) bool {
	return IsVisible(m, p.UID, p.Designation)
}

// FilterVisible keeps the meetings the viewer may see in the given view.
func FilterVisible(meetings []models.Meeting, viewer models.Participant, view View) []models.Meeting {
	result := make([]models.Meeting, 0, len(meetings))
	for _, m := range meetings {
		if view == ViewDashboard && (m.Status != models.StatusActive || m.EndTime != nil) {
			continue
		}
		if !IsVisible(m, viewer.UID, viewer.Designation) {
			continue
		}
		result = append(result, m)
	}
	return result
}
