package models

import "time"

// Роли записей в истории повествования.
const (
	RoleSystem = "system"
	RolePlayer = "player"
)

// Уровни риска вариантов выбора.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// Stats holds the five named country metrics.
type Stats struct {
	Gold       int `json:"gold"`
	Stability  int `json:"stability"`
	Army       int `json:"army"`
	Population int `json:"population"`
	Diplomacy  int `json:"diplomacy"`
}

// StatNames lists the stat keys in display order.
var StatNames = []string{"gold", "stability", "army", "population", "diplomacy"}

// Get returns the value of the named stat and whether the name is known.
func (s Stats) Get(name string) (int, bool) {
	switch name {
	case "gold":
		return s.Gold, true
	case "stability":
		return s.Stability, true
	case "army":
		return s.Army, true
	case "population":
		return s.Population, true
	case "diplomacy":
		return s.Diplomacy, true
	}
	return 0, false
}

// set присваивает значение статистике по имени. Неизвестные имена игнорируются.
func (s *Stats) set(name string, value int) bool {
	switch name {
	case "gold":
		s.Gold = value
	case "stability":
		s.Stability = value
	case "army":
		s.Army = value
	case "population":
		s.Population = value
	case "diplomacy":
		s.Diplomacy = value
	default:
		return false
	}
	return true
}

// Clamped returns a copy of the stats with every negative value raised to zero.
func (s Stats) Clamped() Stats {
	out := s
	for _, name := range StatNames {
		v, _ := out.Get(name)
		if v < 0 {
			out.set(name, 0)
		}
	}
	return out
}

// ApplyDeltas adds the deltas of known stats and clamps each result at zero.
// Unknown keys are ignored. There is no upper bound.
func (s Stats) ApplyDeltas(deltas map[string]int) Stats {
	out := s
	for name, delta := range deltas {
		current, ok := out.Get(name)
		if !ok {
			continue
		}
		out.set(name, max(0, current+delta))
	}
	return out
}

// NarrativeEntry is one element of the append-only game history.
type NarrativeEntry struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ChoiceOption is an option offered to the player for the next decision.
type ChoiceOption struct {
	Index     int    `json:"index"`
	Text      string `json:"text"`
	RiskLevel string `json:"risk_level"`
}

// Game is the persisted state of one simulation.
type Game struct {
	ID               int64            `db:"id"`
	UserID           *int64           `db:"user_id"`
	Country          string           `db:"country"`
	CountryCode      *string          `db:"country_code"`
	CurrentDate      string           `db:"current_date"`
	Stats            Stats            `db:"stats"`
	NarrativeHistory []NarrativeEntry `db:"narrative_history"`
	CurrentChoices   []ChoiceOption   `db:"current_choices"`
	CreatedAt        time.Time        `db:"created_at"`
	UpdatedAt        *time.Time       `db:"updated_at"`
}

// LatestNarrative returns the content of the most recent system entry.
func (g *Game) LatestNarrative() string {
	for i := len(g.NarrativeHistory) - 1; i >= 0; i-- {
		if g.NarrativeHistory[i].Role == RoleSystem {
			return g.NarrativeHistory[i].Content
		}
	}
	return ""
}

// GameSummary is the projection used by the recent games listing.
type GameSummary struct {
	ID          int64     `db:"id" json:"id"`
	Country     string    `db:"country" json:"country"`
	CurrentDate string    `db:"current_date" json:"current_date"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// GameView is the view-model returned to clients.
type GameView struct {
	GameID      int64          `json:"game_id"`
	Country     string         `json:"country"`
	CurrentDate string         `json:"current_date"`
	Stats       Stats          `json:"stats"`
	Narrative   string         `json:"narrative"`
	Choices     []ChoiceOption `json:"choices"`
}

// View reshapes the game into its client view. The narrative is the latest system entry.
func (g *Game) View() GameView {
	choices := g.CurrentChoices
	if choices == nil {
		choices = []ChoiceOption{}
	}
	return GameView{
		GameID:      g.ID,
		Country:     g.Country,
		CurrentDate: g.CurrentDate,
		Stats:       g.Stats,
		Narrative:   g.LatestNarrative(),
		Choices:     choices,
	}
}
