package extract

import (
	"regexp"

	"github.com/rofanlabs/sitewatch/internal/watch"
)

// Boards that publish the roster in the page title mark each entry with a
// heart followed by the name and a parenthesized hour list.
var titlePairRe = regexp.MustCompile(`❤️\s*([가-힣a-zA-Z0-9]+)\s*\(\s*([\d\s]+)\s*\)`)

// TitleSchedule parses heart-marked name and hour pairs straight from a
// page title, before any content normalization. Tokens shorter than two
// characters or on the deny list are skipped. Records keep their order of
// appearance; repeated names merge into the first record.
func TitleSchedule(title string, rules *Rules) []watch.ScheduleRecord {
	var order []string
	hours := make(map[string]hourSet)
	raw := make(map[string]string)

	for _, m := range titlePairRe.FindAllStringSubmatch(title, -1) {
		name, times := m[1], m[2]
		if len([]rune(name)) < 2 || rules.TitleDenied(name) {
			continue
		}
		parsed := ParseTimes(times)
		if len(parsed) == 0 {
			continue
		}
		canonical := rules.NormalizeName(name)
		if canonical == "" {
			continue
		}
		set, ok := hours[canonical]
		if !ok {
			set = make(hourSet)
			hours[canonical] = set
			raw[canonical] = m[0]
			order = append(order, canonical)
		}
		set.add(parsed)
	}

	records := make([]watch.ScheduleRecord, 0, len(order))
	for _, name := range order {
		records = append(records, watch.ScheduleRecord{
			Name:  name,
			Times: FormatHours(hours[name].sorted()),
			Raw:   raw[name],
		})
	}
	return records
}
