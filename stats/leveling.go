package stats

import "math"

const (
	XPPerGoal   = 100
	XPPerAssist = 50
	XPPerTouch  = 1
	XPPerWin    = 100

	wilsonZ    = 1.96
	startLevel = 1
)

// TotalXPForLevel is the cumulative experience needed to reach level.
func TotalXPForLevel(level int) int {
	return 100*level*level + 200*level - 300
}

func XPToNextLevel(level int) int {
	return TotalXPForLevel(level+1) - TotalXPForLevel(level)
}

func XPGained(p PlayerResult) int {
	xp := p.Goals*XPPerGoal + p.Assists*XPPerAssist + p.Touches*XPPerTouch
	if p.Outcome == Win {
		xp += XPPerWin
	}
	return xp
}

// ApplyXP adds gained experience to a level/experience pair, carrying the
// remainder across as many level-ups as it covers.
func ApplyXP(level, experience, gained int) (int, int) {
	experience += gained
	for next := XPToNextLevel(level); experience >= next; next = XPToNextLevel(level) {
		experience -= next
		level++
	}
	return level, experience
}

// WilsonLowerBound ranks win rates by the lower bound of the 95% Wilson score
// interval, so few lucky wins do not outrank a long record.
func WilsonLowerBound(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	n := float64(total)
	p := float64(wins) / n
	z2 := wilsonZ * wilsonZ
	return (p + z2/(2*n) - wilsonZ*math.Sqrt((p*(1-p)+z2/(4*n))/n)) / (1 + z2/n)
}

func (o Outcome) counts() (wins, losses, draws int) {
	switch o {
	case Win:
		return 1, 0, 0
	case Draw:
		return 0, 0, 1
	}
	return 0, 1, 0
}

func (p *Profile) apply(r PlayerResult) {
	w, l, d := r.Outcome.counts()
	p.Wins += w
	p.Losses += l
	p.Draws += d
	p.TotalMatches++
	p.Goals += r.Goals
	p.Assists += r.Assists
	p.Touches += r.Touches
	p.Level, p.Experience = ApplyXP(p.Level, p.Experience, XPGained(r))
	p.XPToNext = XPToNextLevel(p.Level)
}

func newProfile(username string) Profile {
	return Profile{
		Username: username,
		Level:    startLevel,
		XPToNext: XPToNextLevel(startLevel),
	}
}
