// Package extract pulls staff schedules and phone numbers out of noisy
// listing-page text.
package extract

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// RulesConfig holds the tunable filtering lists. The zero value is not
// usable; start from DefaultRulesConfig and override fields as needed.
type RulesConfig struct {
	// ExcludedKeywords drop a candidate staff name when any entry is a
	// case-insensitive substring of it.
	ExcludedKeywords []string `mapstructure:"excluded_keywords"`
	// ExcludedNamePatterns drop a candidate staff name when any
	// expression matches it, case-insensitively, anchored at the start.
	ExcludedNamePatterns []string `mapstructure:"excluded_name_patterns"`
	// NameAliases maps a canonical staff name to substrings that mark a
	// raw name as that identity. Matching is case-sensitive contains, so
	// decorated variants collapse too.
	NameAliases map[string][]string `mapstructure:"name_aliases"`
	// StripPrefixes are expressions removed from the front of a name
	// before it is used as a merge key.
	StripPrefixes []string `mapstructure:"strip_prefixes"`
	// TitleDenyNames are tokens never treated as staff names when parsing
	// page titles.
	TitleDenyNames []string `mapstructure:"title_deny_names"`
}

// DefaultRulesConfig returns the filtering lists tuned against observed
// false positives on the boards this service watches. Entries are data,
// not derivable: each one exists because that exact token leaked through
// at some point.
func DefaultRulesConfig() RulesConfig {
	return RulesConfig{
		ExcludedKeywords: []string{
			"document", "고맙", "첫", "내상zero", "내상률", "영업", "이벤트중",
			"주대", "집", "카톡", "출근부", "사장", "실장", "대표", "교대",
			"나이아가라", "부천랜드마크", "북창동", "도파민", "빠나나", "여사친",
			"인스타", "이정재", "하니", "홀딱벗은", "나만맛보는", "대100명",
			"청결매장", "워터밤휴게", "올탈하드", "상동", "dior", "권지용",
			"상동키스고", "키스고", "nf대거영입", "대거영입", "강남", "전원",
			"출동", "텔래그램", "후불제", "new", "순수업계", "배우연습생",
			"대학생", "하유진", "올라가면", "고정11", "hero", "부천", "히어로",
			"월", "화", "수", "목", "금", "토", "일",
		},
		ExcludedNamePatterns: []string{
			`.*사장$`, `.*실장$`, `.*대표$`, `.*출근부$`, `.*카톡$`,
			`^Document`, `^고맙`, `^첫\d+`, `^내상`, `^영업`, `^이벤트`,
			`^주대$`, `^집$`, `^출근부$`, `^카톡$`, `^교대$`,
			`^NF대거영입$`, `^대거영입$`, `^강남$`, `^전원$`, `^출동$`,
			`^텔래그램$`, `^후불제$`, `^new$`, `^순수업계$`, `^배우연습생$`,
			`^대학생$`, `^하유진$`, `^올라가면$`, `^고정\d+$`,
			`^\d+월\d+일$`, `^[월화수목금토일]요일$`, `^월\d+일$`, `^\d+일$`,
		},
		NameAliases: map[string][]string{
			"다율": {"다율", "Queen", "퀸"},
		},
		StripPrefixes: []string{
			`^(?i:NF|ACE|NEW)\s*`,
			`^(?i:Queen|퀸)\s*`,
		},
		TitleDenyNames: []string{"모집중", "출근부", "매니저", "상시", "구인", "sbjuso"},
	}
}

// aliasRule collapses any raw name containing substr to canonical.
type aliasRule struct {
	substr    string
	canonical string
}

// Rules is the compiled form of RulesConfig.
type Rules struct {
	keywords  []string
	patterns  []*regexp.Regexp
	aliases   []aliasRule
	prefixes  []*regexp.Regexp
	titleDeny map[string]struct{}
}

// NewRules compiles the configured expressions. Keywords match against
// the lowercased name; patterns compile case-insensitive and anchored at
// the start of the name.
func NewRules(cfg RulesConfig) (*Rules, error) {
	r := &Rules{
		titleDeny: make(map[string]struct{}),
	}
	for _, kw := range cfg.ExcludedKeywords {
		r.keywords = append(r.keywords, strings.ToLower(kw))
	}
	for _, p := range cfg.ExcludedNamePatterns {
		re, err := regexp.Compile(`(?i)^(?:` + p + `)`)
		if err != nil {
			return nil, fmt.Errorf("compile excluded name pattern %q: %w", p, err)
		}
		r.patterns = append(r.patterns, re)
	}
	canonicals := make([]string, 0, len(cfg.NameAliases))
	for canonical := range cfg.NameAliases {
		canonicals = append(canonicals, canonical)
	}
	sort.Strings(canonicals)
	for _, canonical := range canonicals {
		for _, substr := range cfg.NameAliases[canonical] {
			r.aliases = append(r.aliases, aliasRule{substr: substr, canonical: canonical})
		}
	}
	for _, p := range cfg.StripPrefixes {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile strip prefix %q: %w", p, err)
		}
		r.prefixes = append(r.prefixes, re)
	}
	for _, n := range cfg.TitleDenyNames {
		r.titleDeny[strings.ToLower(n)] = struct{}{}
	}
	return r, nil
}

// DefaultRules compiles DefaultRulesConfig. The defaults are known to
// compile, so a failure here is a programming error.
func DefaultRules() *Rules {
	r, err := NewRules(DefaultRulesConfig())
	if err != nil {
		panic(err)
	}
	return r
}

// ExcludedName reports whether a raw name token should never be treated as
// a staff name.
func (r *Rules) ExcludedName(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range r.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	for _, re := range r.patterns {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// NormalizeName resolves known identities and strips decorative prefixes
// so the same person merges under one name. Alias substrings win over
// prefix stripping: a decorated variant of a tracked identity collapses
// no matter what surrounds it.
func (r *Rules) NormalizeName(name string) string {
	for _, a := range r.aliases {
		if strings.Contains(name, a.substr) {
			return a.canonical
		}
	}
	for _, re := range r.prefixes {
		name = strings.TrimSpace(re.ReplaceAllString(name, ""))
	}
	return name
}

// TitleDenied reports whether a token parsed out of a page title is a
// known non-name marker.
func (r *Rules) TitleDenied(name string) bool {
	_, ok := r.titleDeny[strings.ToLower(name)]
	return ok
}
