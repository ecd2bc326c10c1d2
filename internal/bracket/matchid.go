package bracket

import (
	"fmt"
	"strconv"
	"strings"
)

// Match ids address a tree position as {prefix}{round}_m{index}.
var stagePrefixes = map[Stage]string{
	StageSingle:     "r",
	StageUpper:      "u",
	StageLower:      "l",
	StageGrandFinal: "gf",
	StagePlayoff:    "p",
	StageGroup:      "g",
}

func PrefixFor(stage Stage) string {
	return stagePrefixes[stage]
}

func MatchID(prefix string, round, index int) string {
	return fmt.Sprintf("%s%d_m%d", prefix, round, index)
}

// ParseMatchID extracts round and index from an id carrying prefix.
func ParseMatchID(id, prefix string) (round, index int, ok bool) {
	rest, found := strings.CutPrefix(id, prefix)
	if !found {
		return 0, 0, false
	}
	roundStr, indexStr, found := strings.Cut(rest, "_m")
	if !found {
		return 0, 0, false
	}
	round, err := strconv.Atoi(roundStr)
	if err != nil || round < 1 {
		return 0, 0, false
	}
	index, err = strconv.Atoi(indexStr)
	if err != nil || index < 1 {
		return 0, 0, false
	}
	return round, index, true
}

// GrandFinalID is the single grand final of a double elimination bracket.
var GrandFinalID = MatchID(stagePrefixes[StageGrandFinal], 1, 1)
