package routine

import (
	"errors"
	"sort"
	"time"

	"healthOSAPI/utils"
)

var (
	ErrVersionNumber = errors.New("version number must follow the latest version")
	ErrVersionRange  = errors.New("end date must be after start date")
	ErrOverlap       = errors.New("version dates overlap an existing version")
)

// Contains reports whether date falls in [StartDate, EndDate).
func (v *Version) Contains(date time.Time) bool {
	d := utils.DateOnly(date)
	if d.Before(utils.DateOnly(v.StartDate)) {
		return false
	}
	return v.EndDate == nil || d.Before(utils.DateOnly(*v.EndDate))
}

// VersionPlan describes how a new version fits into a routine's history.
type VersionPlan struct {
	Number int
	// CloseVersionID is an open-ended version that must end at the new start.
	CloseVersionID string
}

// PlanVersion checks a proposed version against the existing ones. Numbers
// go up by one starting at 1, ranges never overlap, and a new version must
// start after the latest one. An open-ended latest version is closed at the
// new start date.
func PlanVersion(existing []Version, number *int, start time.Time, end *time.Time) (VersionPlan, error) {
	start = utils.DateOnly(start)
	if end != nil {
		e := utils.DateOnly(*end)
		if !e.After(start) {
			return VersionPlan{}, ErrVersionRange
		}
		end = &e
	}

	versions := append([]Version(nil), existing...)
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].VersionNumber < versions[j].VersionNumber
	})

	plan := VersionPlan{Number: 1}
	if len(versions) > 0 {
		plan.Number = versions[len(versions)-1].VersionNumber + 1
	}
	if number != nil && *number != plan.Number {
		return VersionPlan{}, ErrVersionNumber
	}
	if len(versions) == 0 {
		return plan, nil
	}

	latest := &versions[len(versions)-1]
	for i := range versions {
		if versions[i].StartDate.After(latest.StartDate) {
			latest = &versions[i]
		}
	}
	if !start.After(utils.DateOnly(latest.StartDate)) {
		return VersionPlan{}, ErrOverlap
	}
	if latest.EndDate == nil {
		plan.CloseVersionID = latest.ID
		closed := start
		latest.EndDate = &closed
	}

	for _, v := range versions {
		if overlaps(utils.DateOnly(v.StartDate), v.EndDate, start, end) {
			return VersionPlan{}, ErrOverlap
		}
	}
	return plan, nil
}

func overlaps(aStart time.Time, aEnd *time.Time, bStart time.Time, bEnd *time.Time) bool {
	aBeforeBEnds := bEnd == nil || aStart.Before(utils.DateOnly(*bEnd))
	bBeforeAEnds := aEnd == nil || bStart.Before(utils.DateOnly(*aEnd))
	return aBeforeBEnds && bBeforeAEnds
}

// CurrentVersion returns the version whose range contains date, preferring
// the highest number if legacy data overlaps.
func CurrentVersion(versions []Version, date time.Time) *Version {
	var current *Version
	for i := range versions {
		v := &versions[i]
		if v.Contains(date) && (current == nil || v.VersionNumber > current.VersionNumber) {
			current = v
		}
	}
	return current
}
