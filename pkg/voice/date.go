package voice

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

type monthName struct {
	key   string
	month time.Month
}

// Order matters: longer spellings are tried before their abbreviations.
var months = []monthName{
	{"january", time.January}, {"jan", time.January},
	{"february", time.February}, {"feb", time.February},
	{"march", time.March}, {"mar", time.March},
	{"april", time.April}, {"apr", time.April},
	{"may", time.May},
	{"june", time.June}, {"jun", time.June},
	{"july", time.July}, {"jul", time.July},
	{"august", time.August}, {"aug", time.August},
	{"september", time.September}, {"sep", time.September}, {"sept", time.September},
	{"october", time.October}, {"oct", time.October},
	{"november", time.November}, {"nov", time.November},
	{"december", time.December}, {"dec", time.December},
}

var weekdays = []struct {
	key string
	day time.Weekday
}{
	{"sunday", time.Sunday},
	{"monday", time.Monday},
	{"tuesday", time.Tuesday},
	{"wednesday", time.Wednesday},
	{"thursday", time.Thursday},
	{"friday", time.Friday},
	{"saturday", time.Saturday},
}

var (
	numericDateRe = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})(?:[/-](\d{2,4}))?\b`)
	yearRe        = regexp.MustCompile(`\b(20\d{2}|19\d{2})\b`)
	dayMonthRe    = map[string]*regexp.Regexp{}
	monthDayRe    = map[string]*regexp.Regexp{}
)

func init() {
	for _, m := range months {
		dayMonthRe[m.key] = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+` + m.key + `\b`)
		monthDayRe[m.key] = regexp.MustCompile(`\b` + m.key + `\s+(\d{1,2})(?:st|nd|rd|th)?\b`)
	}
}

// resolveDate returns the meeting day at midnight in now's location and the
// span of lower that spelled out an explicit date, if any.
func resolveDate(lower string, now time.Time) (time.Time, [2]int) {
	none := [2]int{-1, -1}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch {
	case strings.Contains(lower, "day after tomorrow"):
		return today.AddDate(0, 0, 2), none
	case strings.Contains(lower, "tomorrow"):
		return today.AddDate(0, 0, 1), none
	case strings.Contains(lower, "today"):
		return today, none
	}
	for _, w := range weekdays {
		if strings.Contains(lower, w.key) {
			return nextWeekday(today, w.day), none
		}
	}
	if day, span, ok := explicitDate(lower, today); ok {
		return day, span
	}
	return today, none
}

// nextWeekday moves forward to target; naming today's weekday means next week.
func nextWeekday(today time.Time, target time.Weekday) time.Time {
	delta := (int(target) - int(today.Weekday()) + 7) % 7
	if delta == 0 {
		delta = 7
	}
	return today.AddDate(0, 0, delta)
}

func explicitDate(lower string, today time.Time) (time.Time, [2]int, bool) {
	loc := today.Location()
	if m := numericDateRe.FindStringSubmatchIndex(lower); m != nil {
		day := atoi(lower[m[2]:m[3]])
		month := atoi(lower[m[4]:m[5]])
		year := today.Year()
		if m[6] >= 0 {
			year = normalizeYear(atoi(lower[m[6]:m[7]]))
		}
		return time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc), [2]int{m[0], m[1]}, true
	}
	for _, mn := range months {
		if !strings.Contains(lower, mn.key) {
			continue
		}
		idx := dayMonthRe[mn.key].FindStringSubmatchIndex(lower)
		if idx == nil {
			idx = monthDayRe[mn.key].FindStringSubmatchIndex(lower)
		}
		if idx == nil {
			continue
		}
		year := today.Year()
		if y := yearRe.FindStringSubmatch(lower); y != nil {
			year = atoi(y[1])
		}
		day := atoi(lower[idx[2]:idx[3]])
		return time.Date(year, mn.month, day, 0, 0, 0, 0, loc), [2]int{idx[0], idx[1]}, true
	}
	return time.Time{}, [2]int{}, false
}

func normalizeYear(y int) int {
	if y < 100 {
		return 2000 + y
	}
	return y
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
