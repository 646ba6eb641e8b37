package domain

import (
	"hash/fnv"
	"time"
)

// QuestLocation is one of the village spots the daily quest can point to
type QuestLocation struct {
	ID          string `json:"id"`
	Task        string `json:"task"`
	Description string `json:"description"`
}

// QuestLocations is the rotation of daily quest spots
var QuestLocations = []QuestLocation{
	{ID: "iceRink", Task: "Write a paragraph.", Description: "Use a Graphic Organizer: Descriptive."},
	{ID: "cafe", Task: "Write a paragraph.", Description: "Use a Graphic Organizer: Compare-and-contrast."},
	{ID: "stage", Task: "Draw a sentence diagram.", Description: "ပုံမှန် Assignment ထပ်နေကြအတိုင်း Video ရိုက်ပေးပြီးထပ်ရမှာပါ၊ စကားလုံး 30 အထက်။"},
	{ID: "market", Task: "Write a paragraph.", Description: "Use a Graphic Organizer: Expository."},
}

// DailyQuest is the quest of one anchored date
type DailyQuest struct {
	AnchoredDate string        `json:"anchored_date"`
	Location     QuestLocation `json:"location"`
}

// QuestFor picks the location for the anchored date of now. Every caller sees
// the same location on the same anchored date.
func QuestFor(now time.Time, offset time.Duration) DailyQuest {
	date := AnchoredDate(now, offset)
	h := fnv.New32a()
	_, _ = h.Write([]byte(date))
	loc := QuestLocations[int(h.Sum32()%uint32(len(QuestLocations)))]
	return DailyQuest{AnchoredDate: date, Location: loc}
}
