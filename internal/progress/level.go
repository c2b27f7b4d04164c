package progress

type levelTier struct {
	minXP int
	title string
}

var levelTiers = []levelTier{
	{0, "Iniciante"},
	{100, "Aprendiz"},
	{250, "Estudante"},
	{500, "Programador"},
	{1000, "Desenvolvedor"},
	{2000, "Arquiteto"},
	{4000, "Mestre da OOP"},
}

// Level is the leveling view of a cumulative XP total.
type Level struct {
	Level     int    `json:"level"`
	Title     string `json:"title"`
	XPInLevel int    `json:"xpInLevel"`
	XPForNext int    `json:"xpForNext"`
}

// MaxLevel is the highest reachable level.
func MaxLevel() int {
	return len(levelTiers)
}

// GetLevel maps xp to its level. At the top level XPForNext is 0.
func GetLevel(xp int) Level {
	if xp < 0 {
		xp = 0
	}

	idx := 0
	for i, t := range levelTiers {
		if xp >= t.minXP {
			idx = i
		}
	}

	tier := levelTiers[idx]
	lvl := Level{
		Level:     idx + 1,
		Title:     tier.title,
		XPInLevel: xp - tier.minXP,
	}
	if idx+1 < len(levelTiers) {
		lvl.XPForNext = levelTiers[idx+1].minXP - xp
	}
	return lvl
}

// LevelTitle returns the title of level, or "" when it does not exist.
func LevelTitle(level int) string {
	if level < 1 || level > len(levelTiers) {
		return ""
	}
	return levelTiers[level-1].title
}
