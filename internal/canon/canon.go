// Package canon implements the Field Canonicalizer: a single
// idempotent text-normalization pipeline, plus the email- and
// IP-specific canonical forms built on top of it.
package canon

import (
	"net"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var caseFolder = cases.Fold()

var punctuationFold = strings.NewReplacer(
	"‘", "'", "’", "'",
	"“", "\"", "”", "\"",
	"–", "-", "—", "-",
)

// Canonicalize applies trim -> NFKC -> full Unicode case fold -> curly
// punctuation fold -> whitespace collapse -> re-trim. The
// result is idempotent: Canonicalize(Canonicalize(s)) == Canonicalize(s).
func Canonicalize(s string) string {
	s = strings.TrimSpace(s)
	s = norm.NFKC.String(s)
	s = caseFolder.String(s)
	s = punctuationFold.Replace(s)
	s = collapseWhitespace(s)
	return strings.TrimSpace(s)
}

func collapseWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte(' ')
				inSpace = true
			}
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

// AliasMap maps an alternate email domain to its canonical substitutes.
// A domain may fan out to more than one canonical form.
type AliasMap map[string][]string

// Email canonicalizes an address: split on the last '@', fold case
// (already applied by Canonicalize), strip a "+tag" suffix from the local
// part at the first '+', remove all '.' from the local part, then rewrite
// the domain through aliases. If aliases maps the domain to more than one
// canonical form, every combination is returned (fan-out).
func Email(s string, aliases AliasMap) []string {
	s = Canonicalize(s)
	at := strings.LastIndexByte(s, '@')
	if at < 0 {
		return []string{s}
	}
	local, domain := s[:at], s[at+1:]

	if plus := strings.IndexByte(local, '+'); plus >= 0 {
		local = local[:plus]
	}
	local = strings.ReplaceAll(local, ".", "")

	domains, ok := aliases[domain]
	if !ok || len(domains) == 0 {
		return []string{local + "@" + domain}
	}
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		out = append(out, local+"@"+d)
	}
	return out
}

// IP parses s strictly as an IPv4 or IPv6 address and returns its
// canonical textual form. ok is false if s is not a valid IP literal.
func IP(s string) (canonical string, ok bool) {
	addr := net.ParseIP(strings.TrimSpace(s))
	if addr == nil {
		return "", false
	}
	return addr.String(), true
}
