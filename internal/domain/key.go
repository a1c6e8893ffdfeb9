package domain

import "strings"

// portSlugs maps the terminal names that appear on operator pages to their
// fixed slugs. Scrapers and the backend must agree on this table exactly;
// the slug is half of the merge join key.
var portSlugs = map[string]string{
	"woods hole":     "woods-hole",
	"hyannis":        "hyannis",
	"vineyard haven": "vineyard-haven",
	"oak bluffs":     "oak-bluffs",
	"nantucket":      "nantucket",
}

// PortNameToSlug normalizes a scraped terminal name to its slug. Unknown
// names fall back to a lowercased, hyphenated form of the input so a new
// terminal never collides with an existing one under a generic default.
func PortNameToSlug(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if slug, ok := portSlugs[n]; ok {
		return slug
	}
	return strings.ReplaceAll(n, " ", "-")
}

// NormalizeTimeForKey canonicalizes a scraped departure time for use in a
// sailing key: lowercase, all whitespace stripped, leading zero stripped.
// "08:35 AM" and "8:35am" both normalize to "8:35am".
func NormalizeTimeForKey(t string) string {
	s := strings.ToLower(t)
	s = strings.Join(strings.Fields(s), "")
	s = strings.TrimPrefix(s, "0")
	return s
}

// SailingKey builds the stable identity of a sailing within a service date.
func SailingKey(departingTerminal, arrivingTerminal, departureTime string) string {
	return PortNameToSlug(departingTerminal) + "|" +
		PortNameToSlug(arrivingTerminal) + "|" +
		NormalizeTimeForKey(departureTime)
}
