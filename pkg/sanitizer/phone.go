package sanitizer

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegions are tried in order for numbers without a leading country code.
var DefaultRegions = []string{"IL", "US", "GB"}

func NormalizePhone(phone string) string {
	return NormalizePhoneIn(phone, DefaultRegions...)
}

// NormalizePhoneIn formats phone as E.164. A number with a leading "+" carries its own
// country code; any other number takes the first region it has a possible length in.
func NormalizePhoneIn(phone string, regions ...string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}

	if strings.HasPrefix(phone, "+") {
		return formatIfPossible(phone, "")
	}

	for _, region := range regions {
		if out := formatIfPossible(phone, region); out != "" {
			return out
		}
	}
	return ""
}

func formatIfPossible(phone, region string) string {
	parsed, err := phonenumbers.Parse(phone, region)
	if err != nil || !phonenumbers.IsPossibleNumber(parsed) {
		return ""
	}
	return phonenumbers.Format(parsed, phonenumbers.E164)
}
