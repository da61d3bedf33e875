// Package content holds the static, date-driven content shown next to the
// daily checklist: articles, workouts, tips and the badge shop catalog.
// Every lookup is pure.
package content

import "time"

// ArticleDays is the number of day offsets, starting at today, that carry an article task.
const ArticleDays = 20

// Article is one reading task.
type Article struct {
	ID       string
	Title    string
	Duration string
}

// Badge is an item of the badge shop.
type Badge struct {
	ID    string
	Title string
	Price int
}

// Catalog is an ordered content set. The order of Articles is part of the
// contract: the article of a day is Articles[offset mod len].
type Catalog struct {
	Articles []Article
	Workouts []string
	Tips     []string
	Badges   []Badge
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return &Catalog{
		Articles: []Article{
			{ID: "why-cut-back", Title: "Why cutting back works", Duration: "4 min"},
			{ID: "sleep", Title: "Alcohol and your sleep", Duration: "5 min"},
			{ID: "triggers", Title: "Spotting your triggers", Duration: "3 min"},
			{ID: "social", Title: "Saying no at social events", Duration: "4 min"},
			{ID: "cravings", Title: "Riding out a craving", Duration: "3 min"},
			{ID: "money", Title: "What you save by skipping a round", Duration: "2 min"},
			{ID: "mood", Title: "Mood swings in the first weeks", Duration: "5 min"},
		},
		Workouts: []string{
			"10 minute brisk walk",
			"3 x 12 bodyweight squats",
			"5 minute stretch routine",
			"15 minute bike ride",
			"2 x 30 second plank",
			"20 minute yoga flow",
			"Stairs instead of the lift, all day",
		},
		Tips: []string{
			"Keep a glass of sparkling water in hand at parties.",
			"Tell one friend about your goal today.",
			"Plan tonight's alcohol-free drink before evening.",
			"Cravings peak and pass within 20 minutes.",
			"Eat before social events; hunger amplifies urges.",
		},
		Badges: []Badge{
			{ID: "first-step", Title: "First Step", Price: 50},
			{ID: "week-warrior", Title: "Week Warrior", Price: 150},
			{ID: "clear-head", Title: "Clear Head", Price: 300},
			{ID: "jar-master", Title: "Jar Master", Price: 500},
		},
	}
}

// ArticleFor returns the article of a day offset, or false outside [0, ArticleDays).
func (c *Catalog) ArticleFor(offset int) (Article, bool) {
	if offset < 0 || offset >= ArticleDays || len(c.Articles) == 0 {
		return Article{}, false
	}
	return c.Articles[offset%len(c.Articles)], true
}

// WorkoutFor returns the workout of the calendar day of t.
func (c *Catalog) WorkoutFor(t time.Time) string {
	return pick(c.Workouts, t)
}

// TipFor returns the tip of the calendar day of t.
func (c *Catalog) TipFor(t time.Time) string {
	return pick(c.Tips, t)
}

// Badge looks a badge up by id.
func (c *Catalog) Badge(id string) (Badge, bool) {
	for _, b := range c.Badges {
		if b.ID == id {
			return b, true
		}
	}
	return Badge{}, false
}

func pick(list []string, t time.Time) string {
	if len(list) == 0 {
		return ""
	}
	return list[(t.YearDay()-1)%len(list)]
}
