package game

// TitleThreshold is one rung of the title ladder. Thresholds are fixed and
// ascending; a user holds the highest title their level qualifies for.
type TitleThreshold struct {
	Level int
	Title string
}

var Titles = []TitleThreshold{
	{1, "Poro Curious"},
	{3, "Snack Scout"},
	{5, "Fluff Wrangler"},
	{8, "Poro Handler"},
	{12, "Freljord Friend"},
	{16, "Whisker Watcher"},
	{20, "Poro Warden"},
	{25, "Legend of the Herd"},
}

// TitleForLevel returns the highest title whose required level <= level.
// It is recomputed from level on every XP gain, never mutated on its own.
func TitleForLevel(level int) string {
	best := Titles[0].Title
	for _, t := range Titles {
		if level >= t.Level {
			best = t.Title
		}
	}
	return best
}
