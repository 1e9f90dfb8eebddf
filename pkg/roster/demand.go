package roster

import (
	"fmt"
	"sort"
	"time"

	"github.com/arnavshah/roster-engine-go/pkg/models"
)

// SlotStub is one concrete unit of required coverage before any assignment:
// date x shift definition x position index.
type SlotStub struct {
	Date          string // template-local calendar date, "2006-01-02"
	ShiftName     string
	Start         time.Time
	End           time.Time
	RequiredSkill string
	PositionIndex int
}

// ExpandDemand turns a template plus an inclusive date range into the flat
// ordered slot list the solver iterates. Ordering is by date, then shift start
// time, then shift name, then position index, so two expansions of the same
// inputs are identical.
//
// A DemandRequirement matching (shift, day-of-week) whose effective window
// covers the date overrides the coverage entry's headcount and skill;
// template-wide requirements (empty scope) win over scoped ones.
func ExpandDemand(tpl *models.ShiftTemplate, reqs []models.DemandRequirement, from, to string) ([]SlotStub, error) {
	start, err := time.Parse(models.DateLayout, from)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", from, err)
	}
	end, err := time.Parse(models.DateLayout, to)
	if err != nil {
		return nil, fmt.Errorf("invalid end date %q: %w", to, err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("date range is inverted: %s > %s", from, to)
	}
	if len(tpl.Entries) == 0 {
		return nil, fmt.Errorf("template %s has an empty coverage plan", tpl.ID)
	}

	loc, err := time.LoadLocation(tpl.Timezone)
	if err != nil {
		return nil, fmt.Errorf("template %s has invalid timezone %q: %w", tpl.ID, tpl.Timezone, err)
	}

	entries := make([]models.CoverageEntry, len(tpl.Entries))
	copy(entries, tpl.Entries)
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].StartTime != entries[j].StartTime {
			return entries[i].StartTime < entries[j].StartTime
		}
		return entries[i].ShiftName < entries[j].ShiftName
	})

	var stubs []SlotStub
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		date := d.Format(models.DateLayout)
		dow := int(d.Weekday())
		for _, e := range entries {
			if !e.Days.Contains(dow) {
				continue
			}
			count, skill := e.RequiredCount, e.RequiredSkill
			if req := matchRequirement(reqs, e.ShiftName, dow, date); req != nil {
				count, skill = req.RequiredCount, req.RequiredSkill
			}
			slotStart, slotEnd, err := shiftWindow(date, e.StartTime, e.EndTime, loc)
			if err != nil {
				return nil, fmt.Errorf("coverage entry %s: %w", e.ID, err)
			}
			for i := 0; i < count; i++ {
				stubs = append(stubs, SlotStub{
					Date:          date,
					ShiftName:     e.ShiftName,
					Start:         slotStart,
					End:           slotEnd,
					RequiredSkill: skill,
					PositionIndex: i,
				})
			}
		}
	}
	return stubs, nil
}

func matchRequirement(reqs []models.DemandRequirement, shift string, dow int, date string) *models.DemandRequirement {
	var scoped *models.DemandRequirement
	for i := range reqs {
		r := &reqs[i]
		if r.ShiftName != shift || r.DayOfWeek != dow || !r.Covers(date) {
			continue
		}
		if r.Scope == "" {
			return r
		}
		if scoped == nil {
			scoped = r
		}
	}
	return scoped
}

// shiftWindow resolves clock times against a date in the template's zone.
// An end at or before the start means the shift runs past midnight.
func shiftWindow(date, startClock, endClock string, loc *time.Location) (time.Time, time.Time, error) {
	st, err := time.ParseInLocation(models.DateLayout+" "+models.ClockLayout, date+" "+startClock, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start time %q: %w", startClock, err)
	}
	en, err := time.ParseInLocation(models.DateLayout+" "+models.ClockLayout, date+" "+endClock, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end time %q: %w", endClock, err)
	}
	if !en.After(st) {
		en = en.AddDate(0, 0, 1)
	}
	return st, en, nil
}
