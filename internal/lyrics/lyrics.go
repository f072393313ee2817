// Package lyrics converts timestamped LRC-style transcripts into an
// ordered, time-indexed sequence of lines.
package lyrics

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Line is a single lyric line anchored at a point in the track.
type Line struct {
	Time float64 // seconds from track start
	Text string
}

// NoActiveLine is returned by ActiveIndex when no line is active yet.
const NoActiveLine = -1

// FallbackText is the single fallback line produced for an empty transcript.
const FallbackText = "No Lyrics"

// tagPattern matches "[MM:SS]" or "[MM:SS.mm(m)]" followed by the lyric text.
var tagPattern = regexp.MustCompile(`^\[(\d{2}):(\d{2})(?:\.(\d{2,3}))?\](.*)$`)

// Parse converts a transcript into lines sorted ascending by time. Lines
// without a valid timestamp tag are dropped. If nothing parses, a single
// fallback line at time 0 is produced: the raw transcript when one was
// supplied, FallbackText otherwise. Parse is pure and restartable.
func Parse(transcript string) []Line {
	if transcript == "" {
		return []Line{{Time: 0, Text: FallbackText}}
	}

	var parsed []Line
	for _, raw := range strings.Split(transcript, "\n") {
		match := tagPattern.FindStringSubmatch(raw)
		if match == nil {
			continue
		}

		minutes, _ := strconv.Atoi(match[1])
		seconds, _ := strconv.Atoi(match[2])
		milliseconds := 0
		if match[3] != "" {
			// Two-digit fractions are right-padded to millisecond precision.
			padded := match[3]
			for len(padded) < 3 {
				padded += "0"
			}
			milliseconds, _ = strconv.Atoi(padded)
		}

		parsed = append(parsed, Line{
			Time: float64(minutes)*60 + float64(seconds) + float64(milliseconds)/1000,
			Text: strings.TrimSpace(match[4]),
		})
	}

	if len(parsed) == 0 {
		return []Line{{Time: 0, Text: transcript}}
	}

	sort.SliceStable(parsed, func(i, j int) bool {
		return parsed[i].Time < parsed[j].Time
	})
	return parsed
}

// ActiveIndex returns the index of the line active at elapsed time t: the
// last line whose time is <= t. It returns NoActiveLine for an empty
// sequence or when t precedes the first line.
func ActiveIndex(lines []Line, t float64) int {
	if len(lines) == 0 || t < lines[0].Time {
		return NoActiveLine
	}
	for i := range lines {
		if i == len(lines)-1 || t < lines[i+1].Time {
			if t >= lines[i].Time {
				return i
			}
		}
	}
	return len(lines) - 1
}
