package tracker

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/rofanlabs/sitewatch/internal/watch"
)

// initialPreviewChars caps how much of a first observation is echoed into
// the change record.
const initialPreviewChars = 2000

// initialBlock renders the first observation of a site. The content is
// escaped and capped, with a notice telling the reader how much was cut;
// there is nothing to diff against yet.
func initialBlock(content string) string {
	escaped := html.EscapeString(content)
	runes := []rune(escaped)
	if len(runes) > initialPreviewChars {
		escaped = string(runes[:initialPreviewChars]) +
			fmt.Sprintf(`<br><span style="color: #6c757d; font-style: italic;">... (총 %d자, 처음 %d자만 표시)</span>`,
				len([]rune(content)), initialPreviewChars)
	}
	return `<div class="diff-content">` + escaped + `</div>`
}

// summaryBlock renders today's attendance above the diff. Hours absent
// from the day's first recorded attendance are underlined so late roster
// additions stand out. Without a baseline the current records are the
// baseline and nothing is underlined.
func summaryBlock(now time.Time, records, baseline []watch.ScheduleRecord) string {
	if len(records) == 0 {
		return ""
	}
	base := make(map[string]map[string]struct{}, len(baseline))
	for _, r := range baseline {
		hours := make(map[string]struct{})
		for _, h := range strings.Split(r.Times, ",") {
			hours[h] = struct{}{}
		}
		base[r.Name] = hours
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<div class="attendance-summary"><strong>%d월%d일 출근부</strong><br>`,
		int(now.Month()), now.Day())
	for i, r := range records {
		if i > 0 {
			b.WriteString("<br>")
		}
		b.WriteString(html.EscapeString(r.Name) + ": ")
		parts := strings.Split(r.Times, ",")
		for j, h := range parts {
			if j > 0 {
				b.WriteString(",")
			}
			if len(baseline) > 0 && !inBaseline(base, r.Name, h) {
				b.WriteString("<u>" + h + "</u>")
			} else {
				b.WriteString(h)
			}
		}
	}
	b.WriteString("</div>")
	return b.String()
}

func inBaseline(base map[string]map[string]struct{}, name, hour string) bool {
	hours, ok := base[name]
	if !ok {
		return false
	}
	_, ok = hours[hour]
	return ok
}
