// Package voice turns a spoken or typed scheduling command into a meeting draft.
//
// The rules are heuristics. Parse never fails; the draft it returns must be
// confirmed by a person before it becomes a meeting.
package voice

import (
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pershin-daniil/facultymeet/pkg/models"
)

const (
	defaultLocation = "Not specified"
	defaultHour     = 9
	officeOpenHour  = 8
	officeCloseHour = 20
)

var (
	timeRe       = regexp.MustCompile(`\b(\d{1,2})(?::([0-5]\d))?\s*(am|pm)?\b`)
	timeAheadRe  = regexp.MustCompile(`^\d{1,2}(?::[0-5]\d)?\s*(?:am|pm)?\b`)
	aboutRe      = regexp.MustCompile(`(?i)\babout\s+(.+)$`)
	atRe         = regexp.MustCompile(`\bat\s+`)
	inRe         = regexp.MustCompile(`\bin\s+`)
	placeRe      = regexp.MustCompile(`^[a-z0-9#'\-.\s]+`)
	numericRe    = regexp.MustCompile(`^\d+$`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

var titleCaser = cases.Title(language.English, cases.NoLower)

// Parse extracts a draft from utterance, resolving relative dates against now.
func Parse(utterance string, now time.Time) models.MeetingDraft {
	lower := strings.ToLower(utterance)
	attendees := detectAudience(lower)

	day, dateSpan := resolveDate(lower, now)
	hour, minute := resolveTime(blankSpan(lower, dateSpan))

	subject, searchSpan := splitAbout(utterance)

	title := defaultTitle(attendees)
	if subject != "" {
		title = "Meeting: " + titleCaser.String(subject)
	}

	return models.MeetingDraft{
		Title:     title,
		Attendees: attendees,
		Location:  resolveLocation(searchSpan),
		DateTime:  time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location()),
	}
}

func detectAudience(lower string) string {
	switch {
	case strings.Contains(lower, "hod"), strings.Contains(lower, "head of department"):
		return models.AudienceAllHODs
	case strings.Contains(lower, "dean"):
		return models.AudienceAllDeans
	default:
		return models.AudienceAllFaculty
	}
}

func defaultTitle(attendees string) string {
	switch attendees {
	case models.AudienceAllHODs:
		return "Meeting with HODs"
	case models.AudienceAllDeans:
		return "Meeting with Deans"
	default:
		return "Faculty Meeting"
	}
}

// resolveTime reads the first time-looking token. Without an am/pm marker the
// hour is pulled into office hours: 1..7 become afternoon hours, then the
// result is clamped to [8, 20]. An hour that cannot exist falls back to the default.
func resolveTime(lower string) (int, int) {
	m := timeRe.FindStringSubmatch(lower)
	if m == nil {
		return defaultHour, 0
	}
	hour := atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute = atoi(m[2])
	}
	switch m[3] {
	case "pm":
		if hour >= 1 && hour <= 11 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	default:
		if hour >= 1 && hour <= 7 {
			hour += 12
		}
		if hour < officeOpenHour {
			hour = officeOpenHour
		}
		if hour > officeCloseHour {
			hour = officeCloseHour
		}
	}
	if hour > 23 {
		return defaultHour, 0
	}
	return hour, minute
}

// splitAbout returns the cleaned subject of an "about ..." clause and the
// lowercased text preceding it.
func splitAbout(utterance string) (string, string) {
	m := aboutRe.FindStringSubmatchIndex(utterance)
	if m == nil {
		return "", strings.ToLower(utterance)
	}
	subject := strings.TrimSpace(utterance[m[2]:m[3]])
	subject = strings.TrimRight(subject, ".!?")
	subject = whitespaceRe.ReplaceAllString(subject, " ")
	return subject, strings.ToLower(utterance[:m[0]])
}

// resolveLocation prefers an "at <place>" phrase and falls back to "in <place>".
// "at" followed by a time is not a place.
func resolveLocation(span string) string {
	place, found := phraseAfter(span, atRe, true)
	if !found {
		place, _ = phraseAfter(span, inRe, false)
	}
	place = whitespaceRe.ReplaceAllString(strings.TrimSpace(place), " ")
	if place == "" || numericRe.MatchString(place) {
		return defaultLocation
	}
	return place
}

func phraseAfter(span string, marker *regexp.Regexp, skipTimes bool) (string, bool) {
	for _, idx := range marker.FindAllStringIndex(span, -1) {
		rest := span[idx[1]:]
		if skipTimes && timeAheadRe.MatchString(rest) {
			continue
		}
		if place := placeRe.FindString(rest); place != "" {
			return place, true
		}
	}
	return "", false
}

func blankSpan(s string, span [2]int) string {
	if span[0] < 0 || span[1] > len(s) {
		return s
	}
	return s[:span[0]] + strings.Repeat(" ", span[1]-span[0]) + s[span[1]:]
}
