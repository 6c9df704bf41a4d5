package nlu

import (
	"regexp"
	"strings"

	"golang.org/x/text/language"
)

// regionTag matches tags such as "de_DE". Only the start is anchored, so
// "en_USx" also reduces to "en".
var regionTag = regexp.MustCompile(`^[a-z]{2}_[A-Z]{2}`)

// ResolveLocale reduces a requested locale tag to the code used as registry
// key. "de_DE" becomes "de". Hyphenated BCP 47 tags ("en-US", "de-Latn-AT")
// are reduced to their base language. Anything else is returned unchanged
// and left to the registry to accept or reject.
func ResolveLocale(tag string) string {
	if regionTag.MatchString(tag) {
		return tag[:2]
	}
	if strings.Contains(tag, "-") {
		if parsed, err := language.Parse(tag); err == nil {
			if base, conf := parsed.Base(); conf != language.No {
				return base.String()
			}
		}
	}
	return tag
}

//Personal.AI order the ending
