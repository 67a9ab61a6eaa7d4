package pain

import (
	"regexp"
	"strings"
)

// Quotes are stored verbatim enough to be useful for content drafting but
// must not leak identities. Handles, invite links, URLs, and phone numbers
// are replaced with neutral placeholders before hashing and persisting.
var (
	reInviteLink = regexp.MustCompile(`(?i)\bt\.me/[A-Za-z0-9_+/-]+`)
	reURL        = regexp.MustCompile(`(?i)\bhttps?://\S+`)
	reUsername   = regexp.MustCompile(`@[A-Za-z0-9_]{3,}`)
	rePhone      = regexp.MustCompile(`\+?\d[\d\s().-]{7,}\d`)
)

// Anonymize strips identifying tokens from a quote.
func Anonymize(quote string) string {
	s := reInviteLink.ReplaceAllString(quote, "[link]")
	s = reURL.ReplaceAllString(s, "[link]")
	s = reUsername.ReplaceAllString(s, "[user]")
	s = rePhone.ReplaceAllString(s, "[phone]")
	return strings.Join(strings.Fields(s), " ")
}
