package slots

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var months = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday,
	"friday": time.Friday, "saturday": time.Saturday,
}

var (
	isoDateRe  = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	monthDayRe = regexp.MustCompile(`\b([a-z]+)\.?\s+(\d{1,2})(?:st|nd|rd|th)?\b`)
	dayMonthRe = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?([a-z]+)\b`)

	clockRe   = regexp.MustCompile(`\b(\d{1,2})(?::(\d{2}))?\s*(am|pm|a\.m\.|p\.m\.)\b`)
	hhmmRe    = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
	oclockRe  = regexp.MustCompile(`\b(\d{1,2})\s*o'?\s?clock\b`)
	bareAtRe  = regexp.MustCompile(`\bat\s+(\d{1,2})\b`)
	hasDateRe = regexp.MustCompile(`\b(today|tonight|tomorrow|next week)\b`)
)

// ParseDate resolves a date mention in text against now in the restaurant's
// timezone and returns an ISO-8601 date. Relative terms, weekday names and
// explicit month-day mentions are supported; a month-day that already passed
// this year rolls forward to next year.
func ParseDate(text string, now time.Time, loc *time.Location) (string, bool) {
	if loc == nil {
		loc = time.UTC
	}
	lower := strings.ToLower(text)
	today := now.In(loc)

	if m := isoDateRe.FindStringSubmatch(lower); m != nil {
		return fmt.Sprintf("%s-%s-%s", m[1], m[2], m[3]), true
	}

	switch {
	case strings.Contains(lower, "day after tomorrow"):
		return isoDate(today.AddDate(0, 0, 2)), true
	case strings.Contains(lower, "tomorrow"):
		return isoDate(today.AddDate(0, 0, 1)), true
	case strings.Contains(lower, "today"), strings.Contains(lower, "tonight"):
		return isoDate(today), true
	case strings.Contains(lower, "next week"):
		return isoDate(today.AddDate(0, 0, 7)), true
	}

	for name, wd := range weekdays {
		if !strings.Contains(lower, name) {
			continue
		}
		days := int(wd-today.Weekday()+7) % 7
		if days == 0 {
			days = 7 // a bare weekday name means the upcoming one
		}
		if strings.Contains(lower, "next "+name) && days <= 3 {
			days += 7
		}
		return isoDate(today.AddDate(0, 0, days)), true
	}

	if d, ok := parseMonthDay(lower, today); ok {
		return d, true
	}
	return "", false
}

func parseMonthDay(lower string, today time.Time) (string, bool) {
	tryBuild := func(monthWord string, dayStr string) (string, bool) {
		month, ok := months[monthWord]
		if !ok {
			return "", false
		}
		day, err := strconv.Atoi(dayStr)
		if err != nil || day < 1 || day > 31 {
			return "", false
		}
		candidate := time.Date(today.Year(), month, day, 0, 0, 0, 0, today.Location())
		if candidate.Month() != month {
			return "", false // e.g. feb 30 normalized away
		}
		todayMidnight := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())
		if candidate.Before(todayMidnight) {
			candidate = candidate.AddDate(1, 0, 0)
		}
		return isoDate(candidate), true
	}

	if m := monthDayRe.FindStringSubmatch(lower); m != nil {
		if d, ok := tryBuild(m[1], m[2]); ok {
			return d, true
		}
	}
	if m := dayMonthRe.FindStringSubmatch(lower); m != nil {
		if d, ok := tryBuild(m[2], m[1]); ok {
			return d, true
		}
	}
	return "", false
}

// ParseTime normalizes a time mention to 24h "HH:MM". Twelve-hour clocks
// with am/pm markers, "o'clock", "HH:MM" and bare "at N" phrasings are
// recognized; unmarked hours 6-11 lean PM (dinner-service bias).
func ParseTime(text string) (string, bool) {
	lower := strings.ToLower(text)

	if m := clockRe.FindStringSubmatch(lower); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		if hour < 1 || hour > 12 || minute > 59 {
			return "", false
		}
		pm := strings.HasPrefix(m[3], "p")
		if pm && hour != 12 {
			hour += 12
		}
		if !pm && hour == 12 {
			hour = 0
		}
		return fmt.Sprintf("%02d:%02d", hour, minute), true
	}

	if m := hhmmRe.FindStringSubmatch(lower); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if hour > 23 || minute > 59 {
			return "", false
		}
		return fmt.Sprintf("%02d:%02d", applyDinnerBias(hour), minute), true
	}

	if m := oclockRe.FindStringSubmatch(lower); m != nil {
		hour, _ := strconv.Atoi(m[1])
		if hour < 1 || hour > 23 {
			return "", false
		}
		return fmt.Sprintf("%02d:00", applyDinnerBias(hour)), true
	}

	if m := bareAtRe.FindStringSubmatch(lower); m != nil {
		hour, _ := strconv.Atoi(m[1])
		if hour < 1 || hour > 23 {
			return "", false
		}
		return fmt.Sprintf("%02d:00", applyDinnerBias(hour)), true
	}

	return "", false
}

// applyDinnerBias shifts unmarked hours 6-11 into the evening.
func applyDinnerBias(hour int) int {
	if hour >= 6 && hour <= 11 {
		return hour + 12
	}
	return hour
}

func hasDateWords(lower string) bool {
	if hasDateRe.MatchString(lower) || isoDateRe.MatchString(lower) {
		return true
	}
	for name := range weekdays {
		if strings.Contains(lower, name) {
			return true
		}
	}
	if m := monthDayRe.FindStringSubmatch(lower); m != nil {
		if _, ok := months[m[1]]; ok {
			return true
		}
	}
	if m := dayMonthRe.FindStringSubmatch(lower); m != nil {
		if _, ok := months[m[2]]; ok {
			return true
		}
	}
	return false
}

func isoDate(t time.Time) string {
	return t.Format("2006-01-02")
}
