package layout

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var usDatePattern = regexp.MustCompile(`^\s*(\d{1,2})/(\d{1,2})/(\d{4})\s*$`)

// NormalizeDate converts a legacy M/D/YYYY date into YYYY-MM-DD. Anything that
// is not a real calendar date in that shape yields "".
//
//	NormalizeDate("2/20/2008") == "2008-02-20"
func NormalizeDate(s string) string {
	m := usDatePattern.FindStringSubmatch(s)
	if m == nil {
		return ""
	}

	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (2/30 becomes 3/2); reject those.
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return ""
	}

	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}
