// Package timeutil provides timezone utilities for Bogotá timezone (UTC-5).
// All foundation sessions happen in Colombia, so history windows and date
// labels are computed in local time even though storage is UTC.
// No external dependencies - uses only standard library.
package timeutil

import (
	"fmt"
	"time"
)

// BogotaTZ is the Bogotá timezone (UTC-5, no DST).
// Colombia has not observed DST since 1993, so this is constant year-round.
var BogotaTZ = time.FixedZone("America/Bogota", -5*60*60)

// Now returns the current time in Bogotá timezone.
func Now() time.Time {
	return time.Now().In(BogotaTZ)
}

// ToBogota converts a time to Bogotá timezone.
func ToBogota(t time.Time) time.Time {
	return t.In(BogotaTZ)
}

// ToUTC converts a time to UTC.
func ToUTC(t time.Time) time.Time {
	return t.UTC()
}

// Date creates a time in Bogotá timezone with the given date.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, BogotaTZ)
}

// DateTime creates a time in Bogotá timezone with the given date and time.
func DateTime(year, month, day, hour, min, sec int) time.Time {
	return time.Date(year, time.Month(month), day, hour, min, sec, 0, BogotaTZ)
}

// StartOfDay returns the start of the day (00:00:00) in Bogotá timezone.
func StartOfDay(t time.Time) time.Time {
	local := ToBogota(t)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, BogotaTZ)
}

// StartOfWeek returns the start of the week (Monday 00:00:00) in Bogotá timezone.
func StartOfWeek(t time.Time) time.Time {
	local := ToBogota(t)
	weekday := int(local.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	daysToSubtract := weekday - 1 // Monday = 1
	return StartOfDay(local.AddDate(0, 0, -daysToSubtract))
}

// StartOfMonth returns the start of the month in Bogotá timezone.
func StartOfMonth(t time.Time) time.Time {
	local := ToBogota(t)
	return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, BogotaTZ)
}

// StartOfYear returns the start of the year in Bogotá timezone.
func StartOfYear(t time.Time) time.Time {
	local := ToBogota(t)
	return time.Date(local.Year(), 1, 1, 0, 0, 0, 0, BogotaTZ)
}

// ══════════════════════════════════════════════════════════════════════════════
// HISTORY WINDOWS
// ══════════════════════════════════════════════════════════════════════════════

// Window is a half-open time interval [From, To) in UTC.
type Window struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && t.Before(w.To)
}

// WeekWindow returns the current local week (Monday through Sunday) as a
// UTC window.
func WeekWindow(now time.Time) Window {
	start := StartOfWeek(now)
	return Window{From: start.UTC(), To: start.AddDate(0, 0, 7).UTC()}
}

// MonthWindow returns the current local calendar month as a UTC window.
func MonthWindow(now time.Time) Window {
	start := StartOfMonth(now)
	return Window{From: start.UTC(), To: start.AddDate(0, 1, 0).UTC()}
}

// YearWindow returns the current local calendar year as a UTC window.
func YearWindow(now time.Time) Window {
	start := StartOfYear(now)
	return Window{From: start.UTC(), To: start.AddDate(1, 0, 0).UTC()}
}

// ══════════════════════════════════════════════════════════════════════════════
// FORMATTING
// ══════════════════════════════════════════════════════════════════════════════

// Common date/time formats.
const (
	// FormatDate is the standard date format (YYYY-MM-DD).
	FormatDate = "2006-01-02"
	// FormatTime is the standard time format (HH:MM).
	FormatTime = "15:04"
	// FormatDateTime is the standard datetime format.
	FormatDateTime = "2006-01-02 15:04"
)

// FormatBogota formats a time in Bogotá timezone with the given layout.
func FormatBogota(t time.Time, layout string) string {
	return ToBogota(t).Format(layout)
}

// FormatDateStr formats a time as a date string (YYYY-MM-DD) in Bogotá timezone.
func FormatDateStr(t time.Time) string {
	return FormatBogota(t, FormatDate)
}

// monthAbbrevEs are the es-CO month abbreviations, index 1..12.
var monthAbbrevEs = []string{
	"", "ene.", "feb.", "mar.", "abr.", "may.", "jun.",
	"jul.", "ago.", "sep.", "oct.", "nov.", "dic.",
}

// FormatShortDateEs formats a time as the es-CO short date label used on
// history charts, e.g. "02 ene.".
func FormatShortDateEs(t time.Time) string {
	local := ToBogota(t)
	return fmt.Sprintf("%02d %s", local.Day(), monthAbbrevEs[local.Month()])
}

// WeekdayNameEs returns the Spanish name for a weekday.
func WeekdayNameEs(t time.Time) string {
	switch ToBogota(t).Weekday() {
	case time.Monday:
		return "lunes"
	case time.Tuesday:
		return "martes"
	case time.Wednesday:
		return "miércoles"
	case time.Thursday:
		return "jueves"
	case time.Friday:
		return "viernes"
	case time.Saturday:
		return "sábado"
	case time.Sunday:
		return "domingo"
	default:
		return ""
	}
}

// MonthNameEs returns the Spanish name for a month.
func MonthNameEs(m time.Month) string {
	names := []string{
		"", "enero", "febrero", "marzo", "abril", "mayo", "junio",
		"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
	}
	if int(m) >= 1 && int(m) <= 12 {
		return names[m]
	}
	return ""
}

// ══════════════════════════════════════════════════════════════════════════════
// PARSING & COMPARISON
// ══════════════════════════════════════════════════════════════════════════════

// ParseBogota parses a time string in Bogotá timezone.
func ParseBogota(layout, value string) (time.Time, error) {
	return time.ParseInLocation(layout, value, BogotaTZ)
}

// ParseDateBogota parses a date string (YYYY-MM-DD) in Bogotá timezone.
func ParseDateBogota(value string) (time.Time, error) {
	return ParseBogota(FormatDate, value)
}

// IsSameDay checks if two times are on the same day in Bogotá timezone.
func IsSameDay(t1, t2 time.Time) bool {
	a1, a2 := ToBogota(t1), ToBogota(t2)
	return a1.Year() == a2.Year() && a1.YearDay() == a2.YearDay()
}

// DaysBetween calculates the number of days between two times.
func DaysBetween(t1, t2 time.Time) int {
	a1 := StartOfDay(t1)
	a2 := StartOfDay(t2)
	days := int(a2.Sub(a1).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}
