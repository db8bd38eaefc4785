package enums

import "fmt"

// ReviewSort selects review ordering; every mode breaks ties by newest first.
type ReviewSort string

const (
	ReviewSortLatest     ReviewSort = "latest"
	ReviewSortRatingHigh ReviewSort = "rating_high"
	ReviewSortRatingLow  ReviewSort = "rating_low"
)

var validReviewSorts = []ReviewSort{
	ReviewSortLatest,
	ReviewSortRatingHigh,
	ReviewSortRatingLow,
}

// ParseReviewSort converts raw input into a ReviewSort.
func ParseReviewSort(value string) (ReviewSort, error) {
	for _, candidate := range validReviewSorts {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid review sort %q", value)
}
