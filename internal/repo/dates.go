package repo

import "time"

// addDays shifts a date filter by n days. Accepts bare dates or full RFC 3339
// timestamps; a value that parses as neither is returned unchanged, which
// keeps a malformed filter from excluding everything.
func addDays(date string, n int) string {
	if len(date) > 10 {
		date = date[:10]
	}
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return t.AddDate(0, 0, n).Format("2006-01-02")
}
