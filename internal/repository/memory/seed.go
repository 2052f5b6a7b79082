package memory

import (
	"time"

	"heritagequest/internal/models"
)

// SampleQuests mirrors the quests seeded by the SQL migrations
func SampleQuests(now time.Time) []models.Quest {
	q := func(id int64, questID, text string, options []string, correct int, fact string, points, order int) models.Question {
		return models.Question{
			ID: id, QuestID: questID, Text: text, Options: options,
			CorrectAnswer: correct, FunFact: fact, Points: points, Order: order,
		}
	}

	return []models.Quest{
		{
			ID: "old-campus", Title: "The Old Campus", Category: "Architecture", Icon: "🏛️",
			Description: "Walk the halls of the original campus buildings.", CreatedAt: now,
			Questions: []models.Question{
				q(1, "old-campus", "Which building was completed first?", []string{"Main Hall", "Library", "Chapel", "Observatory"}, 0, "Main Hall was built from stone quarried on site.", 100, 1),
				q(2, "old-campus", "What material covers the library dome?", []string{"Slate", "Copper", "Glass", "Tin"}, 1, "The copper turned green within twenty years.", 100, 2),
				q(3, "old-campus", "How many arches line the cloister?", []string{"Eight", "Twelve", "Sixteen", "Twenty"}, 2, "", 100, 3),
			},
		},
		{
			ID: "founders", Title: "The Founders", Category: "People", Icon: "📜",
			Description: "Meet the people who started it all.", CreatedAt: now,
			Questions: []models.Question{
				q(4, "founders", "What was the founders' first classroom?", []string{"A barn", "A church hall", "A rented shop", "A tent"}, 2, "Rent was paid in firewood for the first winter.", 100, 1),
				q(5, "founders", "How many founding members signed the charter?", []string{"Three", "Five", "Seven", "Nine"}, 2, "", 100, 2),
				q(6, "founders", "Which subject was taught first?", []string{"Latin", "Mathematics", "Agriculture", "Music"}, 1, "", 100, 3),
			},
		},
		{
			ID: "traditions", Title: "Living Traditions", Category: "Culture", Icon: "🎉",
			Description: "Festivals, songs and rituals that survived the decades.", CreatedAt: now,
			Questions: []models.Question{
				q(7, "traditions", "When is the lantern walk held?", []string{"Spring equinox", "First snowfall", "Harvest moon", "New year"}, 2, "The lanterns were originally made from turnips.", 100, 1),
				q(8, "traditions", "What do graduates traditionally ring?", []string{"The chapel bell", "A hand bell", "The gate chime", "A ship's bell"}, 0, "", 150, 2),
				q(9, "traditions", "Which song closes every term?", []string{"Auld Lang Syne", "The Alma Mater", "A folk reel", "The anthem"}, 1, "", 100, 3),
			},
		},
	}
}

// Seed loads the sample quests into the store
func (s *Store) Seed(now time.Time) {
	for _, q := range SampleQuests(now) {
		s.PutQuest(q)
	}
}
