package extract

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

const monthAlt = `january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec`

// ordinalAlt joins the spelled ordinals longest-first so the regexp engine
// prefers "twenty first" over "first".
var ordinalAlt = func() string {
	keys := make([]string, 0, len(ordinalWords))
	for k := range ordinalWords {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return strings.Join(keys, "|")
}()

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

var (
	relTodayRe    = regexp.MustCompile(`(?i)\b(?:today|tonight|this evening)\b`)
	relTomorrowRe = regexp.MustCompile(`(?i)\btomorrow\b`)
	weekdayRe     = regexp.MustCompile(`(?i)\b(?:(this|next)\s+)?(sunday|monday|tuesday|wednesday|thursday|friday|saturday)\b`)
	monthDayRe    = regexp.MustCompile(`(?i)\b(` + monthAlt + `)\.?\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s+(\d{4}))?\b`)
	monthWordRe   = regexp.MustCompile(`(?i)\b(` + monthAlt + `)\.?\s+(` + ordinalAlt + `)\b`)
	dayOfMonthRe  = regexp.MustCompile(`(?i)\bthe\s+(\d{1,2})(?:st|nd|rd|th)?\s+of\s+(` + monthAlt + `)\b`)
	wordOfMonthRe = regexp.MustCompile(`(?i)\bthe\s+(` + ordinalAlt + `)\s+of\s+(` + monthAlt + `)\b`)
	slashDateRe   = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?\b`)
	isoDateRe     = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	dashDateRe    = regexp.MustCompile(`\b(\d{1,2})-(\d{1,2})-(\d{4})\b`)
)

// parseDate resolves one utterance to a calendar date in now's location,
// formatted YYYY-MM-DD. Month-day mentions without a year that land in the
// past roll forward to the next year.
func parseDate(text string, now time.Time) (string, bool) {
	if relTodayRe.MatchString(text) {
		return now.Format("2006-01-02"), true
	}
	if relTomorrowRe.MatchString(text) {
		return now.AddDate(0, 0, 1).Format("2006-01-02"), true
	}
	if m := monthDayRe.FindStringSubmatch(text); m != nil {
		month, ok := monthIndex(m[1])
		if ok {
			day, _ := strconv.Atoi(m[2])
			year, explicit := now.Year(), false
			if m[3] != "" {
				year, _ = strconv.Atoi(m[3])
				explicit = true
			}
			if date, ok := buildDate(now, year, month, day, explicit); ok {
				return date, true
			}
		}
	}
	if m := monthWordRe.FindStringSubmatch(text); m != nil {
		month, mok := monthIndex(m[1])
		day, dok := ordinalWords[strings.ToLower(m[2])]
		if mok && dok {
			if date, ok := buildDate(now, now.Year(), month, day, false); ok {
				return date, true
			}
		}
	}
	if m := dayOfMonthRe.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		if month, ok := monthIndex(m[2]); ok {
			if date, ok := buildDate(now, now.Year(), month, day, false); ok {
				return date, true
			}
		}
	}
	if m := wordOfMonthRe.FindStringSubmatch(text); m != nil {
		day, dok := ordinalWords[strings.ToLower(m[1])]
		month, mok := monthIndex(m[2])
		if dok && mok {
			if date, ok := buildDate(now, now.Year(), month, day, false); ok {
				return date, true
			}
		}
	}
	if m := isoDateRe.FindStringSubmatch(text); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if date, ok := buildDate(now, year, month, day, true); ok {
			return date, true
		}
	}
	if m := slashDateRe.FindStringSubmatch(text); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		year, explicit := now.Year(), false
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
			if year < 100 {
				year += 2000
			}
			explicit = true
		}
		if date, ok := buildDate(now, year, month, day, explicit); ok {
			return date, true
		}
	}
	if m := dashDateRe.FindStringSubmatch(text); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if date, ok := buildDate(now, year, month, day, true); ok {
			return date, true
		}
	}
	if m := weekdayRe.FindStringSubmatch(text); m != nil {
		target := weekdays[strings.ToLower(m[2])]
		diff := (int(target) - int(now.Weekday()) + 7) % 7
		if diff == 0 && strings.EqualFold(m[1], "next") {
			diff = 7
		}
		return now.AddDate(0, 0, diff).Format("2006-01-02"), true
	}
	return "", false
}

func monthIndex(name string) (int, bool) {
	m, ok := monthNames[strings.TrimSuffix(strings.ToLower(name), ".")]
	return int(m), ok
}

// buildDate validates the components and applies the next-year roll for
// dates given without an explicit year.
func buildDate(now time.Time, year, month, day int, explicitYear bool) (string, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return "", false
	}
	loc := now.Location()
	candidate := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if candidate.Month() != time.Month(month) || candidate.Day() != day {
		return "", false
	}
	if !explicitYear {
		startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
		if candidate.Before(startOfToday) {
			candidate = candidate.AddDate(1, 0, 0)
		}
	}
	return candidate.Format("2006-01-02"), true
}

const hourWordAlt = `one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve`

var (
	noonRe          = regexp.MustCompile(`(?i)\b(?:noon|midday)\b`)
	midnightRe      = regexp.MustCompile(`(?i)\bmidnight\b`)
	clockMeridiemRe = regexp.MustCompile(`(?i)\b(\d{1,2}):(\d{2})\s*(a\.?m\.?|p\.?m\.?)`)
	hourMeridiemRe  = regexp.MustCompile(`(?i)\b(\d{1,2})\s*(a\.?m\.?|p\.?m\.?)`)
	oclockRe        = regexp.MustCompile(`(?i)\b(\d{1,2})\s*o'?\s*clock(?:\s+in\s+the\s+(morning|afternoon|evening))?`)
	wordMeridiemRe  = regexp.MustCompile(`(?i)\b(` + hourWordAlt + `)\s+(a\.?m\.?|p\.?m\.?)`)
	wordOclockRe    = regexp.MustCompile(`(?i)\b(` + hourWordAlt + `)\s+o'?\s*clock(?:\s+in\s+the\s+(morning|afternoon|evening))?`)
	bareClockRe     = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
	atHourRe        = regexp.MustCompile(`(?i)\b(?:at|around|about)\s+(\d{1,2})\b`)
)

// parseClock resolves one utterance to a 24-hour HH:MM. Times without a
// meridiem assume evening service when the hour reads below eight.
func parseClock(text string) (string, bool) {
	if noonRe.MatchString(text) {
		return "12:00", true
	}
	if midnightRe.MatchString(text) {
		return "00:00", true
	}
	if m := clockMeridiemRe.FindStringSubmatch(text); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		return to24(hour, minute, isPM(m[3]))
	}
	if m := hourMeridiemRe.FindStringSubmatch(text); m != nil {
		hour, _ := strconv.Atoi(m[1])
		return to24(hour, 0, isPM(m[2]))
	}
	if m := oclockRe.FindStringSubmatch(text); m != nil {
		hour, _ := strconv.Atoi(m[1])
		return dayparted(hour, m[2])
	}
	if m := wordMeridiemRe.FindStringSubmatch(text); m != nil {
		hour, _ := WordToNumber(strings.ToLower(m[1]))
		return to24(hour, 0, isPM(m[2]))
	}
	if m := wordOclockRe.FindStringSubmatch(text); m != nil {
		hour, _ := WordToNumber(strings.ToLower(m[1]))
		return dayparted(hour, m[2])
	}
	if m := bareClockRe.FindStringSubmatch(text); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		return assumeEvening(hour, minute)
	}
	if m := atHourRe.FindStringSubmatch(text); m != nil {
		hour, _ := strconv.Atoi(m[1])
		return assumeEvening(hour, 0)
	}
	return "", false
}

func isPM(meridiem string) bool {
	return strings.HasPrefix(strings.ToLower(meridiem), "p")
}

func to24(hour, minute int, pm bool) (string, bool) {
	if hour < 1 || hour > 12 || minute < 0 || minute > 59 {
		return "", false
	}
	if pm && hour != 12 {
		hour += 12
	}
	if !pm && hour == 12 {
		hour = 0
	}
	return formatClock(hour, minute), true
}

func dayparted(hour int, daypart string) (string, bool) {
	switch strings.ToLower(daypart) {
	case "morning":
		return to24(hour, 0, false)
	case "afternoon", "evening":
		return to24(hour, 0, true)
	default:
		return assumeEvening(hour, 0)
	}
}

// assumeEvening applies the no-meridiem rule: hours below eight are taken
// as PM, anything from eight upward is taken at face value.
func assumeEvening(hour, minute int) (string, bool) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return "", false
	}
	if hour >= 1 && hour < 8 {
		hour += 12
	}
	return formatClock(hour, minute), true
}

func formatClock(hour, minute int) string {
	return fmt.Sprintf("%02d:%02d", hour, minute)
}
