package text

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/fwojciec/lawdoc"
)

// Accepted: 2024-03-01, 2024/3/1, 2024.03.01 and 2024年3月1日, each with an
// optional time of day. The separator must be the same on both sides.
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})(?:[ T]\d{1,2}:\d{2}(?::\d{2})?)?$`),
	regexp.MustCompile(`^(\d{4})/(\d{1,2})/(\d{1,2})(?: \d{1,2}:\d{2}(?::\d{2})?)?$`),
	regexp.MustCompile(`^(\d{4})\.(\d{1,2})\.(\d{1,2})(?: \d{1,2}:\d{2}(?::\d{2})?)?$`),
	regexp.MustCompile(`^(\d{4}) ?年 ?(\d{1,2}) ?月 ?(\d{1,2}) ?日(?: ?\d{1,2}:\d{2}(?::\d{2})?)?$`),
}

// ParseDate validates s against the date grammar and returns the calendar
// date it names. Returns EINVALID if s does not match the grammar or names
// a day that does not exist.
func ParseDate(s string) (lawdoc.Date, error) {
	s = strings.TrimSpace(Normalize(s))
	for _, re := range datePatterns {
		m := re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		return lawdoc.NewDate(y, time.Month(mo), d)
	}
	return lawdoc.Date{}, lawdoc.Errorf(lawdoc.EINVALID, "unrecognized date %q", s)
}
