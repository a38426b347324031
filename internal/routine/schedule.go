package routine

import (
	"sort"
	"time"
)

type ScheduledItem struct {
	Item
	Status ItemStatus `json:"status"`
	// Successor is set for expired items that hand over to a later one.
	Successor *Item `json:"successor,omitempty"`
}

type ScheduledCard struct {
	Card
	Items []ScheduledItem `json:"items"`
}

// Schedule is what a routine prescribes on a given day.
type Schedule struct {
	RoutineID string          `json:"routineId"`
	Date      time.Time       `json:"date"`
	Version   *Version        `json:"version,omitempty"`
	Cards     []ScheduledCard `json:"cards"`
}

// BuildSchedule groups the version's items under their cards ordered by
// moment and sort order, annotating each item with its status on date.
// all holds every item of the routine so successors from other versions
// can be resolved.
func BuildSchedule(routineID string, version *Version, cards []Card, items []Item, all []Item, date time.Time) *Schedule {
	s := &Schedule{RoutineID: routineID, Date: date, Version: version, Cards: []ScheduledCard{}}
	if version == nil {
		return s
	}

	lookup := make(map[string]*Item, len(all))
	for i := range all {
		lookup[all[i].ID] = &all[i]
	}

	byCard := make(map[string][]ScheduledItem)
	for i := range items {
		it := items[i]
		scheduled := ScheduledItem{Item: it, Status: it.StatusOn(date)}
		if scheduled.Status == StatusExpired {
			scheduled.Successor = ResolveSuccessor(&it, date, lookup)
		}
		byCard[it.RoutineCardID] = append(byCard[it.RoutineCardID], scheduled)
	}

	SortCards(cards)
	for _, c := range cards {
		list := byCard[c.ID]
		sort.SliceStable(list, func(i, j int) bool { return list[i].SortOrder < list[j].SortOrder })
		if list == nil {
			list = []ScheduledItem{}
		}
		s.Cards = append(s.Cards, ScheduledCard{Card: c, Items: list})
	}
	return s
}

// SortCards orders cards by moment of day, then sort order.
func SortCards(cards []Card) {
	sort.SliceStable(cards, func(i, j int) bool {
		if cards[i].Moment != cards[j].Moment {
			return momentOrder[cards[i].Moment] < momentOrder[cards[j].Moment]
		}
		return cards[i].SortOrder < cards[j].SortOrder
	})
}
