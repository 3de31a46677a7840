package outcome

import (
	"fmt"

	"geopolitics-server/internal/models"
)

// InitialSituation is the opening state of a new game.
type InitialSituation struct {
	Narrative         string
	Stats             models.Stats
	Choices           []models.ChoiceOption
	HistoricalContext string
}

type statsPayload struct {
	Gold       *flexInt `json:"gold"`
	Stability  *flexInt `json:"stability"`
	Army       *flexInt `json:"army"`
	Population *flexInt `json:"population"`
	Diplomacy  *flexInt `json:"diplomacy"`
}

type initialPayload struct {
	Narrative         flexString
	Stats             *statsPayload
	Choices           []choicePayload
	HistoricalContext flexString
}

// FallbackStats are used when the model gives no stats.
var FallbackStats = models.Stats{Gold: 1000, Stability: 60, Army: 50000, Population: 1000000, Diplomacy: 50}

// FallbackInitialSituation is the payload used when the model output cannot be decoded.
func FallbackInitialSituation(country string, year int) InitialSituation {
	return InitialSituation{
		Narrative: fmt.Sprintf("Vous prenez le contrôle de %s en %d. La nation fait face à des défis importants sur les plans politique, économique et militaire.", country, year),
		Stats:     FallbackStats,
		Choices: []models.ChoiceOption{
			{Index: 0, Text: "Renforcer l'économie nationale", RiskLevel: models.RiskLow},
			{Index: 1, Text: "Moderniser l'armée", RiskLevel: models.RiskMedium},
			{Index: 2, Text: "Lancer une offensive diplomatique", RiskLevel: models.RiskMedium},
		},
		HistoricalContext: "Période de transition majeure.",
	}
}

// ParseInitialSituation decodes the opening situation generated for country in year.
// Missing stats fall back to FallbackStats field by field; stats are clamped at zero.
func ParseInitialSituation(raw, country string, year int) Result[InitialSituation] {
	obj, kind, err := decode("initial_situation", raw)
	if kind == Defaulted {
		return Result[InitialSituation]{Value: FallbackInitialSituation(country, year), Kind: Defaulted, Err: err}
	}
	p := initialPayload{
		Narrative:         field[flexString](obj, "narrative"),
		Stats:             field[*statsPayload](obj, "stats"),
		Choices:           choicesField(obj, "choices"),
		HistoricalContext: field[flexString](obj, "historical_context"),
	}

	return Result[InitialSituation]{
		Value: InitialSituation{
			Narrative:         string(p.Narrative),
			Stats:             p.Stats.toStats().Clamped(),
			Choices:           normalizeChoices(p.Choices),
			HistoricalContext: string(p.HistoricalContext),
		},
		Kind: kind,
	}
}

func (s *statsPayload) toStats() models.Stats {
	out := FallbackStats
	if s == nil {
		return out
	}
	pick := func(v *flexInt, dst *int) {
		if v != nil {
			*dst = int(*v)
		}
	}
	pick(s.Gold, &out.Gold)
	pick(s.Stability, &out.Stability)
	pick(s.Army, &out.Army)
	pick(s.Population, &out.Population)
	pick(s.Diplomacy, &out.Diplomacy)
	return out
}
