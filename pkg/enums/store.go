package enums

import "fmt"

// StoreStatus is the stored publication state of a pop-up store. It drives
// visibility only; the lifecycle phase shown to visitors is DisplayStatus.
type StoreStatus string

const (
	StoreStatusDraft     StoreStatus = "draft"
	StoreStatusPublished StoreStatus = "published"
	StoreStatusEnded     StoreStatus = "ended"
)

var validStoreStatuses = []StoreStatus{
	StoreStatusDraft,
	StoreStatusPublished,
	StoreStatusEnded,
}

// String implements fmt.Stringer.
func (s StoreStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StoreStatus.
func (s StoreStatus) IsValid() bool {
	for _, candidate := range validStoreStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseStoreStatus converts raw input into a StoreStatus.
func ParseStoreStatus(value string) (StoreStatus, error) {
	for _, candidate := range validStoreStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid store status %q", value)
}

// DisplayStatus is derived from start/end dates against the current day.
type DisplayStatus string

const (
	DisplayStatusUpcoming DisplayStatus = "upcoming"
	DisplayStatusOngoing  DisplayStatus = "ongoing"
	DisplayStatusEnded    DisplayStatus = "ended"
)

// DateFilter selects a date window relative to today.
type DateFilter string

const (
	DateFilterAll      DateFilter = "all"
	DateFilterUpcoming DateFilter = "upcoming"
	DateFilterOngoing  DateFilter = "ongoing"
	DateFilterEnded    DateFilter = "ended"
)

var validDateFilters = []DateFilter{
	DateFilterAll,
	DateFilterUpcoming,
	DateFilterOngoing,
	DateFilterEnded,
}

// IsValid reports whether the value is a known DateFilter.
func (d DateFilter) IsValid() bool {
	for _, candidate := range validDateFilters {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDateFilter converts raw input into a DateFilter.
func ParseDateFilter(value string) (DateFilter, error) {
	for _, candidate := range validDateFilters {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid date filter %q", value)
}

// StoreSort selects the ordering of the store list.
type StoreSort string

const (
	StoreSortLatest   StoreSort = "latest"
	StoreSortPopular  StoreSort = "popular"
	StoreSortDistance StoreSort = "distance"
)

var validStoreSorts = []StoreSort{
	StoreSortLatest,
	StoreSortPopular,
	StoreSortDistance,
}

// ParseStoreSort converts raw input into a StoreSort.
func ParseStoreSort(value string) (StoreSort, error) {
	for _, candidate := range validStoreSorts {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid store sort %q", value)
}
