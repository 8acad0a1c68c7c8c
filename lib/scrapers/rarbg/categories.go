package rarbg

import (
	"path"
	"sort"
	"strings"
)

const UnknownCategory = "UNKNOWN"

// CategoryCodes maps a logical category name to the site's numeric
// filter codes, joined by ';' in the query string. The empty name means
// no category filter.
var CategoryCodes = map[string][]string{
	"movies":   strings.Split("48;17;44;45;47;50;51;52;42;46", ";"),
	"xxx":      strings.Split("4", ";"),
	"music":    strings.Split("23;24;25;26", ";"),
	"tvshows":  strings.Split("18;41;49", ";"),
	"software": strings.Split("33;34;43", ";"),
	"games":    strings.Split("27;28;29;30;31;32;40;53", ";"),
	"nonxxx":   strings.Split("2;14;15;16;17;21;22;42;18;19;41;27;28;29;30;31;32;40;23;24;25;26;33;34;43;44;45;46;47;48;49;50;51;52;54", ";"),
	"":         nil,
}

// codeToCategory inverts CategoryCodes for the categories whose codes
// are unambiguous (aggregates like nonxxx would shadow the real ones).
var codeToCategory = map[string]string{}

func init() {
	for _, category := range []string{"movies", "xxx", "music", "tvshows", "software"} {
		for _, code := range CategoryCodes[category] {
			codeToCategory[code] = category
		}
	}
}

// Categories returns the valid logical category names, sorted, without
// the empty catch-all.
func Categories() []string {
	out := []string{}
	for name := range CategoryCodes {
		if name != "" {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// CategoryFromIcon maps a listing row's category icon filename (e.g.
// "cat_new44.gif") to a category name. Unmapped codes yield UNKNOWN
// rather than failing: the site adds categories faster than we do.
func CategoryFromIcon(src string) string {
	code := path.Base(src)
	code = strings.TrimPrefix(code, "cat_new")
	code = strings.TrimSuffix(code, ".gif")
	if category, ok := codeToCategory[code]; ok {
		return category
	}
	return UnknownCategory
}
