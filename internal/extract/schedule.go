package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/rofanlabs/sitewatch/internal/watch"
)

const (
	titleMarker = "[제목]"
	bodyMarker  = "[본문]"
)

var (
	nameTokenRe = regexp.MustCompile(`[a-zA-Z가-힣][a-zA-Z0-9가-힣]*`)

	dateTokenRe    = regexp.MustCompile(`\d+월\s*\d+일`)
	decimalParenRe = regexp.MustCompile(`\(\d+\.\d+\)`)
	slashTripleRe  = regexp.MustCompile(`\d+/\d+/\d+(\([^)]*\))?`)
	bracketRe      = regexp.MustCompile(`\[.*?\]`)

	glyphReplacer = strings.NewReplacer(
		"❤️", " ", "✅", " ", "⭐️", " ", "🎀", " ",
		"💛", " ", "💙", " ", "💜", " ", "💚", " ",
		"🧡", " ", "🖤", " ", "🤍", " ", "🤎", " ", "✨", " ",
	)

	// Single characters that the tokenizer can mistake for a name when a
	// unit marker gets separated from its number.
	unitChars = "시분초월일"
)

// Schedule extracts per-staff working hours from marked page content. The
// content carries the page title after the 제목 marker and the post body
// after the 본문 marker; mode selects which regions are scanned. Hours for
// the same person found in several regions are merged into one record.
func Schedule(content string, mode watch.ExtractionMode, rules *Rules) []watch.ScheduleRecord {
	title, body := splitRegions(content)

	var regions []string
	switch mode {
	case watch.ExtractTitle:
		regions = []string{title}
	case watch.ExtractBody:
		regions = []string{body}
	default:
		regions = []string{title, body}
	}

	hours := make(map[string]hourSet)
	raw := make(map[string]string)
	for _, region := range regions {
		scanRegion(cleanRegion(region), rules, hours, raw)
	}

	names := make([]string, 0, len(hours))
	for name := range hours {
		names = append(names, name)
	}
	sort.Strings(names)

	records := make([]watch.ScheduleRecord, 0, len(names))
	for _, name := range names {
		records = append(records, watch.ScheduleRecord{
			Name:  name,
			Times: FormatHours(hours[name].sorted()),
			Raw:   raw[name],
		})
	}
	return records
}

// splitRegions separates the title and body parts of marked content. Text
// before a marker belongs to neither region; content with no markers at
// all is treated as one big body.
func splitRegions(content string) (title, body string) {
	bodyIdx := strings.Index(content, bodyMarker)
	titleIdx := strings.Index(content, titleMarker)
	if bodyIdx < 0 && titleIdx < 0 {
		return "", strings.TrimSpace(content)
	}
	if bodyIdx >= 0 {
		body = content[bodyIdx+len(bodyMarker):]
	}
	if titleIdx >= 0 {
		end := len(content)
		if bodyIdx > titleIdx {
			end = bodyIdx
		}
		title = content[titleIdx+len(titleMarker):end]
	}
	return strings.TrimSpace(title), strings.TrimSpace(body)
}

// cleanRegion removes tokens that confuse the name and time scanner: dates,
// view-count parentheticals, slashed counters, bracketed tags and the
// decorative glyphs boards sprinkle between names.
func cleanRegion(region string) string {
	region = dateTokenRe.ReplaceAllString(region, " ")
	region = decimalParenRe.ReplaceAllString(region, " ")
	region = slashTripleRe.ReplaceAllString(region, " ")
	region = bracketRe.ReplaceAllString(region, " ")
	region = glyphReplacer.Replace(region)
	return region
}

// scanRegion walks name tokens in order and pairs each with the text up to
// the next name token. A pair survives only when the name passes the
// exclusion rules and the trailing text parses as hours.
func scanRegion(text string, rules *Rules, hours map[string]hourSet, raw map[string]string) {
	locs := nameTokenRe.FindAllStringIndex(text, -1)
	for i, loc := range locs {
		name := text[loc[0]:loc[1]]
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		part := strings.TrimSpace(text[loc[1]:end])

		if runes := []rune(name); len(runes) == 1 && strings.ContainsRune(unitChars, runes[0]) {
			continue
		}
		if rules.ExcludedName(name) {
			continue
		}
		if part == "" || slashDateRe.MatchString(part) || !strings.ContainsAny(part, "0123456789") {
			continue
		}
		parsed := ParseTimes(part)
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
			raw[canonical] = name + " " + part
		}
		set.add(parsed)
	}
}
