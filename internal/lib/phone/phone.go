// Package phone normalizes and validates Kenyan mobile numbers for STK
// push requests. The gateway expects the 2547XXXXXXXX / 2541XXXXXXXX
// MSISDN form; local 07.. / 01.. and +254 spellings are converted.
package phone

import (
	"fmt"
	"regexp"
	"strings"
)

var msisdnRe = regexp.MustCompile(`^254(7|1)\d{8}$`)

// Normalize converts a user-entered phone number into MSISDN form.
// Returns an error when the result is not a valid Kenyan mobile number.
func Normalize(raw string) (string, error) {
	const op = "phone.Normalize"

	n := strings.TrimSpace(raw)
	n = strings.ReplaceAll(n, " ", "")
	n = strings.ReplaceAll(n, "-", "")
	n = strings.TrimPrefix(n, "+")

	switch {
	case strings.HasPrefix(n, "07"), strings.HasPrefix(n, "01"):
		n = "254" + n[1:]
	case strings.HasPrefix(n, "7"), strings.HasPrefix(n, "1"):
		if len(n) == 9 {
			n = "254" + n
		}
	}

	if !msisdnRe.MatchString(n) {
		return "", fmt.Errorf("%s: invalid phone number %q", op, raw)
	}
	return n, nil
}
