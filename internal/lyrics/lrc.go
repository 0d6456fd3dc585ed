package lyrics

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/ytmd/internal/models"
)

// lrcStamp matches LRC timestamps like [01:23.45], [1:02], or [01:23.456].
var lrcStamp = regexp.MustCompile(`\[(\d+):(\d{2})(?:\.(\d{1,3}))?\]`)

// ParseLRC converts an LRC-formatted lyric sheet into timed lines, sorted by
// timestamp. A line carrying several timestamps (a repeated chorus) yields
// one entry per timestamp. Metadata tags like [ar:...] and untagged lines
// are skipped.
func ParseLRC(raw string) []models.LyricLine {
	var lines []models.LyricLine

	for _, row := range strings.Split(raw, "\n") {
		stamps := lrcStamp.FindAllStringSubmatch(row, -1)
		if len(stamps) == 0 {
			continue
		}

		text := strings.TrimSpace(lrcStamp.ReplaceAllString(row, ""))
		for _, m := range stamps {
			lines = append(lines, models.LyricLine{At: lrcTime(m), Text: text})
		}
	}

	sort.Slice(lines, func(i, j int) bool { return lines[i].At < lines[j].At })
	return lines
}

// lrcTime converts a matched [mm:ss.xx] group into a duration. The fraction
// group is hundredths when two digits, milliseconds when three.
func lrcTime(m []string) time.Duration {
	mins, _ := strconv.Atoi(m[1])
	secs, _ := strconv.Atoi(m[2])
	d := time.Duration(mins)*time.Minute + time.Duration(secs)*time.Second

	if m[3] != "" {
		frac, _ := strconv.Atoi(m[3])
		switch len(m[3]) {
		case 1:
			d += time.Duration(frac) * 100 * time.Millisecond
		case 2:
			d += time.Duration(frac) * 10 * time.Millisecond
		case 3:
			d += time.Duration(frac) * time.Millisecond
		}
	}
	return d
}

// PlainLines splits an unsynced lyric sheet into zero-timestamped lines,
// dropping blank rows.
func PlainLines(raw string) []models.LyricLine {
	var lines []models.LyricLine
	for _, row := range strings.Split(raw, "\n") {
		row = strings.TrimSpace(row)
		if row == "" {
			continue
		}
		lines = append(lines, models.LyricLine{Text: row})
	}
	return lines
}
