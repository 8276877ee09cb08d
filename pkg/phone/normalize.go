// Package phone formats contact numbers returned by upstream directories.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used for numbers that carry no country calling code.
const DefaultRegion = "US"

// Normalize formats a phone number in the national format of its region,
// e.g. "+19015267000" becomes "(901) 526-7000". Unparseable or invalid input
// is returned trimmed but otherwise untouched.
func Normalize(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, DefaultRegion)
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	if phonenumbers.GetRegionCodeForNumber(number) != DefaultRegion {
		return phonenumbers.Format(number, phonenumbers.INTERNATIONAL)
	}
	return phonenumbers.Format(number, phonenumbers.NATIONAL)
}
