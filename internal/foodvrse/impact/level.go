package impact

// levelThresholds[k] is the XP needed to leave level k+1
var levelThresholds = [...]int64{100, 300, 600, 1000, 1500, 2100, 2800, 3600, 4500}

// MaxLevel is reached once XP hits the last threshold
const MaxLevel = len(levelThresholds) + 1

// LevelFor maps accumulated experience points to a level in [1, MaxLevel]
func LevelFor(xp int64) int {
	for i, threshold := range levelThresholds {
		if xp < threshold {
			return i + 1
		}
	}
	return MaxLevel
}
