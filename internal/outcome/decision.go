package outcome

import (
	"bytes"
	"encoding/json"
	"fmt"

	"geopolitics-server/internal/models"
)

// DecisionOutcome is the model's answer to a player decision.
type DecisionOutcome struct {
	Narrative   string
	StatChanges map[string]int
	NewYear     int
	NewChoices  []models.ChoiceOption
	Event       *string
}

type decisionPayload struct {
	OutcomeNarrative flexString
	StatChanges      map[string]flexInt
	NewYear          *flexInt
	NewChoices       []choicePayload
	Event            json.RawMessage
}

// FallbackDecisionOutcome is the payload used when the model output cannot be decoded.
func FallbackDecisionOutcome(year int, choiceText string) DecisionOutcome {
	return DecisionOutcome{
		Narrative: fmt.Sprintf("Votre décision concernant '%s' a des conséquences mitigées.", choiceText),
		StatChanges: map[string]int{
			"gold":       -100,
			"stability":  5,
			"army":       0,
			"population": 1000,
			"diplomacy":  0,
		},
		NewYear: year + 1,
		NewChoices: []models.ChoiceOption{
			{Index: 0, Text: "Consolider les gains", RiskLevel: models.RiskLow},
			{Index: 1, Text: "Prendre une nouvelle initiative", RiskLevel: models.RiskMedium},
			{Index: 2, Text: "Action audacieuse", RiskLevel: models.RiskHigh},
		},
	}
}

// ParseDecisionOutcome decodes the consequences of choiceText taken by country in year.
// A missing or null new_year defaults to year+1. Stat changes are returned raw,
// including keys that are not known stats.
func ParseDecisionOutcome(raw, country string, year int, choiceText string) Result[DecisionOutcome] {
	obj, kind, err := decode("decision_outcome", raw)
	if kind == Defaulted {
		return Result[DecisionOutcome]{Value: FallbackDecisionOutcome(year, choiceText), Kind: Defaulted, Err: err}
	}
	p := decisionPayload{
		OutcomeNarrative: field[flexString](obj, "outcome_narrative"),
		StatChanges:      statChangesField(obj, "stat_changes"),
		NewYear:          field[*flexInt](obj, "new_year"),
		NewChoices:       choicesField(obj, "new_choices"),
		Event:            obj["event"],
	}

	out := DecisionOutcome{
		Narrative:   string(p.OutcomeNarrative),
		StatChanges: make(map[string]int, len(p.StatChanges)),
		NewYear:     year + 1,
		NewChoices:  normalizeChoices(p.NewChoices),
		Event:       eventText(p.Event),
	}
	for name, delta := range p.StatChanges {
		out.StatChanges[name] = int(delta)
	}
	if p.NewYear != nil && *p.NewYear != 0 {
		out.NewYear = int(*p.NewYear)
	}
	return Result[DecisionOutcome]{Value: out, Kind: kind}
}

// statChangesField: не-объект дает пустой набор, нечитаемые значения пропускаются.
func statChangesField(obj object, key string) map[string]flexInt {
	raw := field[map[string]json.RawMessage](obj, key)
	out := make(map[string]flexInt, len(raw))
	for name, value := range raw {
		var delta flexInt
		if err := json.Unmarshal(value, &delta); err != nil {
			continue
		}
		out[name] = delta
	}
	return out
}

// eventText: null или отсутствие события дает nil, не-строка сохраняется как JSON.
func eventText(raw json.RawMessage) *string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return &s
	}
	text := string(raw)
	return &text
}
