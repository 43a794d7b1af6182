package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	numberRe    = regexp.MustCompile(`\d+`)
	slashDateRe = regexp.MustCompile(`\d+/\d+/\d+`)
	unitStripRe = regexp.MustCompile(`[시분초]`)
)

// ParseTimes interprets a raw schedule fragment as a set of working hours.
// It understands plain hour lists ("12 13 14") and tilde ranges. Ranges are
// half open: "20~23" covers 20 through 22. A range starting at 24 wraps to
// the small hours, as does a range whose start exceeds its end ("23~03"
// covers 23, 0, 1 and 2). Any number above 24 marks the fragment as
// something other than a schedule and yields nil.
func ParseTimes(raw string) []int {
	cleaned := unitStripRe.ReplaceAllString(raw, "")
	var nums []int
	for _, m := range numberRe.FindAllString(cleaned, -1) {
		n, err := strconv.Atoi(m)
		if err != nil || n >= 25 {
			return nil
		}
		nums = append(nums, n)
	}
	if len(nums) == 0 {
		return nil
	}

	var hours []int
	if strings.Contains(cleaned, "~") && len(nums) >= 2 {
		start, end := nums[0], nums[len(nums)-1]
		switch {
		case start == 24:
			hours = append(hours, 24)
			for h := 1; h < end; h++ {
				hours = append(hours, h)
			}
		case start > end:
			for h := start; h <= 23; h++ {
				hours = append(hours, h)
			}
			for h := 0; h < end; h++ {
				hours = append(hours, h)
			}
		default:
			for h := start; h < end; h++ {
				hours = append(hours, h)
			}
		}
	} else {
		hours = nums
	}

	seen := make(map[int]struct{}, len(hours))
	var out []int
	for _, h := range hours {
		if h < 0 || h > 24 {
			continue
		}
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	sort.Ints(out)
	return out
}

// FormatHours renders a sorted hour set as a comma joined string.
func FormatHours(hours []int) string {
	parts := make([]string, len(hours))
	for i, h := range hours {
		parts[i] = strconv.Itoa(h)
	}
	return strings.Join(parts, ",")
}

// hourSet tracks the union of observed hours for one staff name.
type hourSet map[int]struct{}

func (s hourSet) add(hours []int) {
	for _, h := range hours {
		s[h] = struct{}{}
	}
}

func (s hourSet) sorted() []int {
	out := make([]int, 0, len(s))
	for h := range s {
		out = append(out, h)
	}
	sort.Ints(out)
	return out
}
