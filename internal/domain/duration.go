package domain

import "regexp"

var isoDurationRe = regexp.MustCompile(
	`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// ParseISO8601Duration converts an ISO-8601 duration like PT3M12S to whole
// seconds. Malformed or non-matching strings yield nil, never an error.
func ParseISO8601Duration(s string) *int {
	m := isoDurationRe.FindStringSubmatch(s)
	if m == nil || s == "" || s == "P" {
		return nil
	}
	total := 86400*atoi(m[1]) + 3600*atoi(m[2]) + 60*atoi(m[3]) + atoi(m[4])
	return &total
}

func atoi(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n
}
