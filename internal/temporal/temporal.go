// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package temporal finds date expressions in search snippets and positions
// them relative to a reference day.
package temporal

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/deep-research/pkg/types"
)

// RecentDays is the largest day offset still classified as recent.
const RecentDays = 30

const monthNames = `(January|February|March|April|May|June|July|August|September|October|November|December|Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sep|Sept|Oct|Nov|Dec)`

// pattern pairs a date shape with the function that resolves a match to a
// calendar day. resolve reports false when the captured fields do not form
// a real date. span is the group reported by Extract; zero is the whole match.
type pattern struct {
	re      *regexp.Regexp
	resolve func(m []string, today time.Time) (time.Time, bool)
	span    int
}

// validityRef is the reference day used to test whether an extracted match
// resolves. It is in a leap year so that 2月29日 is kept.
var validityRef = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// patterns is ordered from most to least specific. Extraction and
// classification both use the first pattern that matches.
var patterns = []pattern{
	{regexp.MustCompile(`(\d{4})年(\d{1,2})月(\d{1,2})日`), ymd(1, 2, 3), 0},
	{regexp.MustCompile(`\b((\d{4})-(\d{1,2})-(\d{1,2}))(?:T|\b)`), ymd(2, 3, 4), 1},
	{regexp.MustCompile(`\b(\d{4})/(\d{1,2})/(\d{1,2})\b`), ymd(1, 2, 3), 0},
	{regexp.MustCompile(`(?i)\b` + monthNames + `\.?\s+(\d{1,2}),?\s+(\d{4})\b`), englishMonthDayYear, 0},
	{regexp.MustCompile(`(\d{1,2})月(\d{1,2})日`), monthDay, 0},
	{regexp.MustCompile(`(\d{4})年(\d{1,2})月`), ym(1, 2), 0},
	{regexp.MustCompile(`\b(\d{4})-(\d{2})\b`), ym(1, 2), 0},
	{regexp.MustCompile(`(?i)\b` + monthNames + `\.?\s+(\d{4})\b`), englishMonthYear, 0},
	{regexp.MustCompile(`(\d{4})年`), yearOnly, 0},
	{regexp.MustCompile(`(\d{1,3})時間前`), ago(hours), 0},
	{regexp.MustCompile(`(\d{1,3})日前`), ago(days), 0},
	{regexp.MustCompile(`(\d{1,3})週間前`), ago(weeks), 0},
	{regexp.MustCompile(`(\d{1,3})[ヶケカか]月前`), ago(months), 0},
	{regexp.MustCompile(`(\d{1,3})年前`), ago(years), 0},
	{regexp.MustCompile(`(?i)\b(\d{1,3})\s+(hour|day|week|month|year)s?\s+ago\b`), englishAgo, 0},
	{regexp.MustCompile(`\b((?:19|20)\d{2})\b`), yearOnly, 0},
}

// Extract returns the first date expression found in text. Matches that do
// not form a real date, such as the fiscal range "2023-24", are skipped.
func Extract(text string) (string, bool) {
	for _, p := range patterns {
		for _, loc := range p.re.FindAllStringSubmatchIndex(text, -1) {
			if _, ok := p.resolve(groups(text, loc), validityRef); !ok {
				continue
			}
			return text[loc[2*p.span]:loc[2*p.span+1]], true
		}
	}
	return "", false
}

func groups(text string, loc []int) []string {
	m := make([]string, len(loc)/2)
	for i := range m {
		if loc[2*i] >= 0 {
			m[i] = text[loc[2*i]:loc[2*i+1]]
		}
	}
	return m
}

// Classify resolves raw against today. Text that does not resolve to a real
// date yields a fact with class unknown.
func Classify(raw string, today time.Time) types.TemporalFact {
	fact := types.TemporalFact{Raw: raw, Class: types.TemporalUnknown}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fact
	}

	ref := dateOnly(today)
	for _, p := range patterns {
		m := p.re.FindStringSubmatch(raw)
		if m == nil {
			continue
		}
		d, ok := p.resolve(m, ref)
		if !ok {
			return fact
		}
		return fromDate(fact, d, ref)
	}
	return fact
}

func fromDate(fact types.TemporalFact, d, today time.Time) types.TemporalFact {
	offset := int(today.Sub(d).Hours() / 24)
	fact.Date = d
	fact.Valid = true
	fact.DayOffset = offset
	fact.Relative = Relative(offset)
	fact.IsFuture = offset < 0
	fact.IsRecent = offset >= 0 && offset <= RecentDays
	switch {
	case fact.IsFuture:
		fact.Class = types.TemporalFuture
	case fact.IsRecent:
		fact.Class = types.TemporalRecent
	default:
		fact.Class = types.TemporalPast
	}
	return fact
}

// Relative renders a day offset as "today", "N days ago", "N weeks later",
// and so on. Weeks, months, and years use 7, 30, and 365 day units.
func Relative(offset int) string {
	if offset == 0 {
		return "today"
	}
	dir := "ago"
	n := offset
	if offset < 0 {
		dir = "later"
		n = -offset
	}
	unit := "day"
	switch {
	case n < 7:
	case n < 30:
		n, unit = n/7, "week"
	case n < 365:
		n, unit = n/30, "month"
	default:
		n, unit = n/365, "year"
	}
	if n != 1 {
		unit += "s"
	}
	return fmt.Sprintf("%d %s %s", n, unit, dir)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// date builds a UTC day and rejects overflowed fields such as February 30.
func date(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Month() != time.Month(month) || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func ymd(y, m, d int) func([]string, time.Time) (time.Time, bool) {
	return func(g []string, _ time.Time) (time.Time, bool) {
		return date(atoi(g[y]), atoi(g[m]), atoi(g[d]))
	}
}

func ym(y, m int) func([]string, time.Time) (time.Time, bool) {
	return func(g []string, _ time.Time) (time.Time, bool) {
		return date(atoi(g[y]), atoi(g[m]), 1)
	}
}

func yearOnly(g []string, _ time.Time) (time.Time, bool) {
	return date(atoi(g[1]), 1, 1)
}

func monthDay(g []string, today time.Time) (time.Time, bool) {
	return date(today.Year(), atoi(g[1]), atoi(g[2]))
}

func englishMonthDayYear(g []string, _ time.Time) (time.Time, bool) {
	return date(atoi(g[3]), monthNumber(g[1]), atoi(g[2]))
}

func englishMonthYear(g []string, _ time.Time) (time.Time, bool) {
	return date(atoi(g[2]), monthNumber(g[1]), 1)
}

func monthNumber(name string) int {
	prefix := strings.ToLower(name)
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	for m := time.January; m <= time.December; m++ {
		if strings.ToLower(m.String()[:3]) == prefix {
			return int(m)
		}
	}
	return 0
}

type unit int

const (
	hours unit = iota
	days
	weeks
	months
	years
)

func back(today time.Time, n int, u unit) time.Time {
	switch u {
	case hours:
		return today.AddDate(0, 0, -(n / 24))
	case weeks:
		return today.AddDate(0, 0, -7*n)
	case months:
		return today.AddDate(0, -n, 0)
	case years:
		return today.AddDate(-n, 0, 0)
	}
	return today.AddDate(0, 0, -n)
}

func ago(u unit) func([]string, time.Time) (time.Time, bool) {
	return func(g []string, today time.Time) (time.Time, bool) {
		return back(today, atoi(g[1]), u), true
	}
}

func englishAgo(g []string, today time.Time) (time.Time, bool) {
	u := map[string]unit{
		"hour": hours, "day": days, "week": weeks, "month": months, "year": years,
	}[strings.ToLower(g[2])]
	return back(today, atoi(g[1]), u), true
}
