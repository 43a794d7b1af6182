package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/rofanlabs/sitewatch/internal/watch"
)

const (
	phoneLabel = "전화"

	// Chrome around the post body that never carries contact numbers we
	// care about.
	unwantedSelectors = ".notice_board, .updatenews, #sidebar, .sidebar, header, footer, .footer, #footer, .advertisement, .ads, .banner"

	// Preferred info tables, checked before falling back to every table.
	infoTableSelectors = "table.et_vars, table.vars, table.info"
)

var (
	mobileRe     = regexp.MustCompile(`010[-.\s]?\d{4}[-.\s]?\d{4}`)
	landlineRe   = regexp.MustCompile(`0\d{1,2}[-.\s]?\d{3,4}[-.\s]?\d{4}`)
	validPhoneRe = regexp.MustCompile(`^0(1[016789]|2|[3-6][1-9]|70)-\d{3,4}-\d{4}$`)
	digitsRe     = regexp.MustCompile(`\D`)

	// Tokens that precede a number as a field label rather than a person.
	labelTokens = map[string]struct{}{
		"전화": {}, "번호": {}, "전화번호": {}, "연락처": {},
		"문의": {}, "예약": {}, "톡": {}, "텔레": {},
	}

	scopeSelectors = []string{"[data-docsrl]", ".rd_body", ".xe_content", "article"}
)

// Phones finds contact numbers in a page. Strategies run from most to
// least structured: labeled cells in known info tables, then labeled cells
// in any table, then label proximity and finally a bare regex sweep over
// the post body scope. The first strategy that yields anything wins.
// Returns an empty slice when nothing valid is found.
func Phones(pageHTML string, rules *Rules) []watch.PhoneEntry {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return []watch.PhoneEntry{}
	}
	doc.Find(unwantedSelectors).Remove()
	doc.Find("script, style").Remove()

	entries := phonesFromTables(doc.Find(infoTableSelectors), rules)
	if len(entries) == 0 {
		entries = phonesFromTables(doc.Find("table"), rules)
	}
	if len(entries) == 0 {
		scope := findScope(doc)
		entries = phonesNearLabels(scope, rules)
		if len(entries) == 0 {
			entries = phonesFromText(scope.Text(), rules)
		}
	}
	return dedupePhones(entries)
}

// NormalizePhone reduces a raw match to digits and reformats it with
// dashes. Seoul's two digit area code keeps a shorter middle group. The
// second return is false when the digits do not form a valid Korean
// number.
func NormalizePhone(raw string) (string, bool) {
	digits := digitsRe.ReplaceAllString(raw, "")
	if len(digits) < 9 || len(digits) > 11 || digits[0] != '0' {
		return "", false
	}
	var formatted string
	switch len(digits) {
	case 11:
		formatted = digits[:3] + "-" + digits[3:7] + "-" + digits[7:]
	case 10:
		if strings.HasPrefix(digits, "02") {
			formatted = digits[:2] + "-" + digits[2:6] + "-" + digits[6:]
		} else {
			formatted = digits[:3] + "-" + digits[3:6] + "-" + digits[6:]
		}
	default:
		if strings.HasPrefix(digits, "02") {
			formatted = digits[:2] + "-" + digits[2:5] + "-" + digits[5:]
		} else {
			formatted = digits[:3] + "-" + digits[3:6] + "-" + digits[6:]
		}
	}
	if !validPhoneRe.MatchString(formatted) {
		return "", false
	}
	return formatted, true
}

func findScope(doc *goquery.Document) *goquery.Selection {
	for _, sel := range scopeSelectors {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			return s
		}
	}
	return doc.Selection
}

func phonesFromTables(tables *goquery.Selection, rules *Rules) []watch.PhoneEntry {
	var entries []watch.PhoneEntry
	tables.Each(func(_ int, table *goquery.Selection) {
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("th, td")
			cells.Each(func(i int, cell *goquery.Selection) {
				if !strings.Contains(cell.Text(), phoneLabel) {
					return
				}
				if entry, ok := recordFromText(cell.Text(), rules); ok {
					entries = append(entries, entry)
					return
				}
				if i+1 < cells.Length() {
					next := cells.Eq(i + 1)
					if entry, ok := recordFromText(cell.Text()+" "+next.Text(), rules); ok {
						entries = append(entries, entry)
					}
				}
			})
		})
	})
	return entries
}

func phonesNearLabels(scope *goquery.Selection, rules *Rules) []watch.PhoneEntry {
	var entries []watch.PhoneEntry
	scope.Find("p, span, div, li, dt, dd, strong, b").Each(func(_ int, el *goquery.Selection) {
		own := ownText(el)
		if !strings.Contains(own, phoneLabel) && !strings.Contains(own, "연락처") {
			return
		}
		if entry, ok := recordFromText(own, rules); ok {
			entries = append(entries, entry)
			return
		}
		if sib := el.Next(); sib.Length() > 0 {
			if entry, ok := recordFromText(own+" "+sib.Text(), rules); ok {
				entries = append(entries, entry)
			}
		}
	})
	return entries
}

// phonesFromText sweeps plain text for numbers, mobile format first.
func phonesFromText(text string, rules *Rules) []watch.PhoneEntry {
	entries := matchPhones(text, mobileRe, rules)
	if len(entries) == 0 {
		entries = matchPhones(text, landlineRe, rules)
	}
	return entries
}

func matchPhones(text string, re *regexp.Regexp, rules *Rules) []watch.PhoneEntry {
	var entries []watch.PhoneEntry
	for _, loc := range re.FindAllStringIndex(text, -1) {
		number, ok := NormalizePhone(text[loc[0]:loc[1]])
		if !ok {
			continue
		}
		name := staffNameBefore(text[:loc[0]], rules)
		entries = append(entries, watch.PhoneEntry{StaffName: name, Number: number})
	}
	return entries
}

func recordFromText(text string, rules *Rules) (watch.PhoneEntry, bool) {
	loc := mobileRe.FindStringIndex(text)
	if loc == nil {
		loc = landlineRe.FindStringIndex(text)
	}
	if loc == nil {
		return watch.PhoneEntry{}, false
	}
	number, ok := NormalizePhone(text[loc[0]:loc[1]])
	if !ok {
		return watch.PhoneEntry{}, false
	}
	return watch.PhoneEntry{StaffName: staffNameBefore(text[:loc[0]], rules), Number: number}, true
}

// staffNameBefore picks the last name-like token ahead of a number. Field
// labels and tokens matching the exclusion rules, such as an owner or
// manager title, yield an empty name; the number itself is always kept
// and callers attribute unowned numbers to the site.
func staffNameBefore(prefix string, rules *Rules) string {
	tokens := nameTokenRe.FindAllString(prefix, -1)
	if len(tokens) == 0 {
		return ""
	}
	last := tokens[len(tokens)-1]
	if _, label := labelTokens[last]; label {
		return ""
	}
	if rules.ExcludedName(last) {
		return ""
	}
	return rules.NormalizeName(last)
}

func dedupePhones(entries []watch.PhoneEntry) []watch.PhoneEntry {
	seen := make(map[string]struct{}, len(entries))
	out := make([]watch.PhoneEntry, 0, len(entries))
	for _, e := range entries {
		if _, dup := seen[e.Number]; dup {
			continue
		}
		seen[e.Number] = struct{}{}
		out = append(out, e)
	}
	return out
}

// ownText returns the element's direct text without descendant elements.
func ownText(el *goquery.Selection) string {
	var b strings.Builder
	el.Contents().Each(func(_ int, n *goquery.Selection) {
		if goquery.NodeName(n) == "#text" {
			b.WriteString(n.Text())
		}
	})
	return strings.TrimSpace(b.String())
}
