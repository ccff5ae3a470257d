package model

// Level is an ordered CEFR proficiency tier. Progression is strictly
// linear: each level is gated by the previous one being passed.
type Level string

const (
	LevelA1 Level = "A1"
	LevelA2 Level = "A2"
	LevelB1 Level = "B1"
	LevelB2 Level = "B2"
	LevelC1 Level = "C1"
	LevelC2 Level = "C2"
)

// LevelChain is the full progression order, lowest first.
var LevelChain = []Level{LevelA1, LevelA2, LevelB1, LevelB2, LevelC1, LevelC2}

// Valid reports whether l is a known level.
func (l Level) Valid() bool {
	for _, lv := range LevelChain {
		if lv == l {
			return true
		}
	}
	return false
}

// Previous returns the level that gates l, or "" for the first level.
func (l Level) Previous() Level {
	for i, lv := range LevelChain {
		if lv == l {
			if i == 0 {
				return ""
			}
			return LevelChain[i-1]
		}
	}
	return ""
}

// Next returns the level unlocked by passing l, or "" for the last level.
func (l Level) Next() Level {
	for i, lv := range LevelChain {
		if lv == l {
			if i == len(LevelChain)-1 {
				return ""
			}
			return LevelChain[i+1]
		}
	}
	return ""
}
