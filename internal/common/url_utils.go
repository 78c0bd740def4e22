package common

import (
	"fmt"
	"math"
	"net/url"
	"strings"
	"unicode"
)

// siteSuffix is the registrable domain of the listings site. Any host outside
// this suffix is treated as an external redirect.
const siteSuffix = "indeed.com"

// DomainForLocale returns the listings domain for a locale/country code
func DomainForLocale(locale string) string {
	locale = strings.ToLower(strings.TrimSpace(locale))
	switch locale {
	case "", "en", "us":
		return "www." + siteSuffix
	case "uk":
		return "uk." + siteSuffix
	default:
		return locale + "." + siteSuffix
	}
}

// BuildSearchURL builds a search result page URL for a query at a pagination offset
func BuildSearchURL(query, locale string, offset int) string {
	u := url.URL{
		Scheme: "https",
		Host:   DomainForLocale(locale),
		Path:   "/jobs",
	}
	q := url.Values{}
	q.Set("q", query)
	if offset > 0 {
		q.Set("start", fmt.Sprintf("%d", offset))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// IsOnSiteURL reports whether a URL belongs to the listings site.
// Used to detect external redirects before and after triggering apply.
func IsOnSiteURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == siteSuffix || strings.HasSuffix(host, "."+siteSuffix)
}

// ExtractJobKey extracts the stable posting identifier from a job URL.
// The key appears as the "jk" query parameter, or "vjk" on viewjob-style
// links. Returns empty string when no key is present.
func ExtractJobKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	q := u.Query()
	if jk := q.Get("jk"); jk != "" {
		return jk
	}
	return q.Get("vjk")
}

// TotalPages computes the page count for an estimated total, rounding up
func TotalPages(estimatedTotal, perPage int) int {
	if estimatedTotal <= 0 || perPage <= 0 {
		return 0
	}
	return int(math.Ceil(float64(estimatedTotal) / float64(perPage)))
}

// SanitizeTitle normalizes a job title into a filesystem- and cache-safe key:
// lowercase, alphanumerics preserved, everything else collapsed to single
// underscores.
func SanitizeTitle(title string) string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastUnderscore = false
		} else if !lastUnderscore {
			b.WriteRune('_')
			lastUnderscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
