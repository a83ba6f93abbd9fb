package matching

import "regexp"

// TemplateMatch is the structured reading of a market title: which
// template fired, the subject, and the normalized parameters.
type TemplateMatch struct {
	Template string
	Entity   string
	Params   string
}

// Key is the exact-equality join key used by the matching engine's
// template pass.
func (t *TemplateMatch) Key() string {
	return t.Template + "|" + t.Entity + "|" + t.Params
}

type titleTemplate struct {
	name string
	re   *regexp.Regexp
}

// templateRegistry is ordered and append-only: the first template that
// matches wins, and downstream guard behavior depends on the names
// staying stable. Patterns run against NormalizeTitle output, so they
// assume lowercase text without $, ? or commas.
//
//nolint:gochecknoglobals // compiled once, never mutated
var templateRegistry = []titleTemplate{
	{"fdv-above", regexp.MustCompile(`^(?:will )?(?P<entity>.+?)(?:'s)? fdv (?:be )?above (?P<params>.+)$`)},
	{"mcap-above", regexp.MustCompile(`^(?:will )?(?P<entity>.+?)(?:'s)? (?:market ?cap|mcap) (?:be )?above (?P<params>.+)$`)},
	{"price-target", regexp.MustCompile(`^(?:will )?(?P<entity>.+?) (?:hit|reach|close above|trade above|to) (?P<params>\d\S*(?: .+)?)$`)},
	{"token-launch", regexp.MustCompile(`^(?:will )?(?P<entity>.+?) launch (?:a |its )?token(?: (?P<params>.+))?$`)},
	{"list-on", regexp.MustCompile(`^(?:will )?(?P<entity>.+?) (?:be listed|get listed|list) on (?P<params>.+)$`)},
	{"approved-by", regexp.MustCompile(`^(?:will )?(?P<entity>.+?) (?:be |get )?approved by (?P<params>.+)$`)},
	{"partner-with", regexp.MustCompile(`^(?:will )?(?P<entity>.+?) partner with (?P<params>.+)$`)},
	{"elected-to", regexp.MustCompile(`^(?:will )?(?P<entity>.+?) (?:be )?elected (?:to |as )?(?P<params>.+)$`)},
	{"happen-by", regexp.MustCompile(`^(?:will )?(?P<entity>.+?) happen by (?P<params>.+)$`)},
	{"out-as", regexp.MustCompile(`^(?:will )?(?P<entity>.+?) (?:be )?out as (?P<params>.+)$`)},
}

// ExtractTemplate normalizes the title and runs the registry in order.
// Returns nil when no template fires.
func ExtractTemplate(title string, year int) *TemplateMatch {
	normalized := NormalizeTitle(title, year)

	for _, t := range templateRegistry {
		m := t.re.FindStringSubmatch(normalized)
		if m == nil {
			continue
		}

		var entity, params string
		for i, name := range t.re.SubexpNames() {
			if i >= len(m) {
				break
			}
			switch name {
			case "entity":
				entity = m[i]
			case "params":
				params = m[i]
			}
		}

		return &TemplateMatch{
			Template: t.name,
			Entity:   NormalizeEntity(entity),
			Params:   NormalizeParams(params, year),
		}
	}

	return nil
}
