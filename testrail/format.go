package testrail

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	caseIDPattern  = regexp.MustCompile(`@C(\d+)`)
	ansiPattern    = regexp.MustCompile("\x1b\\[\\d+m")
	separatorRegex = regexp.MustCompile(`={5,}`)
)

// CaseIDsForTitle returns the ids of every "@C<digits>" marker in order of appearance.
func CaseIDsForTitle(title string) []int {
	matches := caseIDPattern.FindAllStringSubmatch(title, -1)
	ids := make([]int, 0, len(matches))
	for _, m := range matches {
		id, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// FormatDuration renders d rounded to the second as "Xm Ys", or "Ys" under a minute.
func FormatDuration(d time.Duration) string {
	total := int(math.Round(float64(d.Milliseconds()) / 1000))
	minutes, seconds := total/60, total%60
	if minutes > 0 {
		return strconv.Itoa(minutes) + "m " + strconv.Itoa(seconds) + "s"
	}
	return strconv.Itoa(seconds) + "s"
}

// FormatTestErrors strips color codes and separator lines from the captured stacks.
func FormatTestErrors(stacks []string) string {
	if len(stacks) == 0 {
		return "\n"
	}
	var b strings.Builder
	for _, stack := range stacks {
		if stack == "" {
			continue
		}
		stack = ansiPattern.ReplaceAllString(stack, "")
		stack = separatorRegex.ReplaceAllString(stack, "")
		b.WriteString(stack)
		b.WriteString("\n")
	}
	return "\n" + b.String()
}

// FormatRunDate renders t in UTC as DD-MM-YYYY HH:MM:SS.
func FormatRunDate(t time.Time) string {
	return t.UTC().Format("02-01-2006 15:04:05")
}

// LatestResult picks the result with the highest id.
func LatestResult(results []Result) (Result, bool) {
	if len(results) == 0 {
		return Result{}, false
	}
	latest := results[0]
	for _, r := range results[1:] {
		if r.ID > latest.ID {
			latest = r
		}
	}
	return latest, true
}
