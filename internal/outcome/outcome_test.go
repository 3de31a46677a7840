package outcome

import (
	"encoding/json"
	"errors"
	"testing"

	"geopolitics-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cleanInitial = `{
  "narrative": "La France de 1789 est au bord de la révolution.",
  "stats": {"gold": 800, "stability": 30, "army": 150000, "population": 28000000, "diplomacy": 45},
  "choices": [
    {"index": 0, "text": "Convoquer les États généraux", "risk_level": "low"},
    {"index": 1, "text": "Réprimer la contestation", "risk_level": "high"},
    {"index": 2, "text": "Emprunter aux banquiers", "risk_level": "medium"}
  ],
  "historical_context": "Crise financière"
}`

func TestParseInitialSituation_Kinds(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantKind Kind
	}{
		{name: "clean json", raw: cleanInitial, wantKind: Parsed},
		{name: "json with surrounding prose", raw: "Voici la situation:\n" + cleanInitial + "\nBonne partie !", wantKind: Recovered},
		{name: "markdown fence", raw: "```json\n" + cleanInitial + "\n```", wantKind: Recovered},
		{name: "object inside array", raw: "[" + cleanInitial + "]", wantKind: Recovered},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ParseInitialSituation(tt.raw, "France", 1789)
			require.Equal(t, tt.wantKind, res.Kind)
			require.NoError(t, res.Err)

			v := res.Value
			assert.Equal(t, "La France de 1789 est au bord de la révolution.", v.Narrative)
			assert.Equal(t, models.Stats{Gold: 800, Stability: 30, Army: 150000, Population: 28000000, Diplomacy: 45}, v.Stats)
			require.Len(t, v.Choices, 3)
			assert.Equal(t, models.ChoiceOption{Index: 1, Text: "Réprimer la contestation", RiskLevel: models.RiskHigh}, v.Choices[1])
			assert.Equal(t, "Crise financière", v.HistoricalContext)
		})
	}
}

func TestParseInitialSituation_Defaulted(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		wantNoObject bool
	}{
		{name: "plain text", raw: "Désolé, je ne peux pas répondre.", wantNoObject: true},
		{name: "empty", raw: "", wantNoObject: true},
		{name: "broken span", raw: "Voici: { narrative: 'oops', } fin"},
		{name: "two objects", raw: `{"narrative": "x"} et {"autre": }`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ParseInitialSituation(tt.raw, "Prusse", 1740)
			require.Equal(t, Defaulted, res.Kind)
			require.Error(t, res.Err)
			assert.Equal(t, tt.wantNoObject, isNoObject(res.Err))

			v := res.Value
			assert.Equal(t, "Vous prenez le contrôle de Prusse en 1740. La nation fait face à des défis importants sur les plans politique, économique et militaire.", v.Narrative)
			assert.Equal(t, models.Stats{Gold: 1000, Stability: 60, Army: 50000, Population: 1000000, Diplomacy: 50}, v.Stats)
			require.Len(t, v.Choices, 3)
			assert.Equal(t, "Renforcer l'économie nationale", v.Choices[0].Text)
			assert.Equal(t, models.RiskLow, v.Choices[0].RiskLevel)
			assert.Equal(t, "Moderniser l'armée", v.Choices[1].Text)
			assert.Equal(t, "Lancer une offensive diplomatique", v.Choices[2].Text)
			assert.Equal(t, models.RiskMedium, v.Choices[2].RiskLevel)
			assert.Equal(t, "Période de transition majeure.", v.HistoricalContext)
		})
	}
}

func TestParseInitialSituation_LenientFields(t *testing.T) {
	raw := `{
	  "narrative": "Empire",
	  "stats": {"gold": "2500", "stability": 55.7, "army": null, "diplomacy": -10},
	  "choices": [
	    {"text": "Sans index ni risque"},
	    {"index": "7", "text": "Index en chaîne", "risk_level": "high"}
	  ]
	}`

	res := ParseInitialSituation(raw, "Rome", 100)
	require.Equal(t, Parsed, res.Kind)

	v := res.Value
	assert.Equal(t, 2500, v.Stats.Gold)
	assert.Equal(t, 55, v.Stats.Stability)
	// null et champ absent reprennent la valeur par défaut
	assert.Equal(t, 50000, v.Stats.Army)
	assert.Equal(t, 1000000, v.Stats.Population)
	// Les valeurs négatives sont ramenées à zéro
	assert.Equal(t, 0, v.Stats.Diplomacy)

	require.Len(t, v.Choices, 2)
	assert.Equal(t, models.ChoiceOption{Index: 0, Text: "Sans index ni risque", RiskLevel: models.RiskMedium}, v.Choices[0])
	assert.Equal(t, models.ChoiceOption{Index: 7, Text: "Index en chaîne", RiskLevel: models.RiskHigh}, v.Choices[1])
	assert.Empty(t, v.HistoricalContext)
}

func TestParseInitialSituation_MissingStatsAndChoices(t *testing.T) {
	res := ParseInitialSituation(`{"narrative": "Rien d'autre"}`, "Suède", 1700)
	require.Equal(t, Parsed, res.Kind)
	assert.Equal(t, FallbackStats, res.Value.Stats)
	assert.Empty(t, res.Value.Choices)
	assert.NotNil(t, res.Value.Choices)
}

func TestParseInitialSituation_MalformedFieldsKeepDocument(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantKind    Kind
		wantStats   models.Stats
		wantChoices []models.ChoiceOption
	}{
		{
			name:      "choices as plain strings",
			raw:       `{"narrative": "Le roi hésite.", "stats": {"gold": 800}, "choices": ["Réformer", "Réprimer", "Attendre"]}`,
			wantKind:  Parsed,
			wantStats: models.Stats{Gold: 800, Stability: 60, Army: 50000, Population: 1000000, Diplomacy: 50},
			wantChoices: []models.ChoiceOption{
				{Index: 0, Text: "Réformer", RiskLevel: models.RiskMedium},
				{Index: 1, Text: "Réprimer", RiskLevel: models.RiskMedium},
				{Index: 2, Text: "Attendre", RiskLevel: models.RiskMedium},
			},
		},
		{
			name:        "stats as array and choices as object",
			raw:         "Réponse:\n" + `{"narrative": "Le roi hésite.", "stats": [800, 30], "choices": {"text": "Réformer"}}`,
			wantKind:    Recovered,
			wantStats:   FallbackStats,
			wantChoices: []models.ChoiceOption{},
		},
		{
			name:      "unreadable choice items are skipped",
			raw:       `{"narrative": "Le roi hésite.", "choices": [42, null, {"text": "Réformer", "risk_level": "low"}]}`,
			wantKind:  Parsed,
			wantStats: FallbackStats,
			wantChoices: []models.ChoiceOption{
				{Index: 0, Text: "Réformer", RiskLevel: models.RiskLow},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ParseInitialSituation(tt.raw, "France", 1789)
			require.Equal(t, tt.wantKind, res.Kind)
			require.NoError(t, res.Err)
			assert.Equal(t, "Le roi hésite.", res.Value.Narrative)
			assert.Equal(t, tt.wantStats, res.Value.Stats)
			assert.Equal(t, tt.wantChoices, res.Value.Choices)
		})
	}
}

func TestParseDecisionOutcome_MalformedFieldsKeepDocument(t *testing.T) {
	tests := []struct {
		name            string
		raw             string
		wantStatChanges map[string]int
		wantChoices     int
	}{
		{
			name:            "stat_changes as empty array",
			raw:             `{"outcome_narrative": "La paix est signée.", "stat_changes": [], "new_year": 1648, "new_choices": [{"text": "Reconstruire"}]}`,
			wantStatChanges: map[string]int{},
			wantChoices:     1,
		},
		{
			name:            "new_choices as strings",
			raw:             `{"outcome_narrative": "La paix est signée.", "stat_changes": {"gold": 50}, "new_year": 1648, "new_choices": ["Reconstruire", "Commercer"]}`,
			wantStatChanges: map[string]int{"gold": 50},
			wantChoices:     2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ParseDecisionOutcome(tt.raw, "Suède", 1647, "Négocier")
			require.Equal(t, Parsed, res.Kind)
			v := res.Value
			assert.Equal(t, "La paix est signée.", v.Narrative)
			assert.Equal(t, tt.wantStatChanges, v.StatChanges)
			assert.Equal(t, 1648, v.NewYear)
			assert.Len(t, v.NewChoices, tt.wantChoices)
		})
	}
}

func TestParseDecisionOutcome(t *testing.T) {
	raw := `{
	  "outcome_narrative": "Les réformes apaisent le peuple.",
	  "stat_changes": {"gold": -200, "stability": "15", "army": 0, "population": 5000.9, "morale": 3},
	  "new_year": 1790,
	  "new_choices": [
	    {"index": 0, "text": "Rédiger une constitution", "risk_level": "medium"},
	    {"index": 1, "text": "Fuir à Varennes", "risk_level": "high"}
	  ],
	  "event": "Prise de la Bastille"
	}`

	res := ParseDecisionOutcome(raw, "France", 1789, "Convoquer les États généraux")
	require.Equal(t, Parsed, res.Kind)

	v := res.Value
	assert.Equal(t, "Les réformes apaisent le peuple.", v.Narrative)
	assert.Equal(t, map[string]int{"gold": -200, "stability": 15, "army": 0, "population": 5000, "morale": 3}, v.StatChanges)
	assert.Equal(t, 1790, v.NewYear)
	require.Len(t, v.NewChoices, 2)
	assert.Equal(t, "Fuir à Varennes", v.NewChoices[1].Text)
	require.NotNil(t, v.Event)
	assert.Equal(t, "Prise de la Bastille", *v.Event)
}

func TestParseDecisionOutcome_Defaults(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantYear  int
		wantEvent *string
	}{
		{name: "missing new_year", raw: `{"outcome_narrative": "x"}`, wantYear: 1801},
		{name: "null new_year and event", raw: `{"new_year": null, "event": null}`, wantYear: 1801},
		{name: "string new_year", raw: `{"new_year": "1805"}`, wantYear: 1805},
		{name: "structured event", raw: `{"event": {"nom": "Peste"}}`, wantYear: 1801, wantEvent: ptr(`{"nom": "Peste"}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ParseDecisionOutcome(tt.raw, "Autriche", 1800, "Attendre")
			require.Equal(t, Parsed, res.Kind)
			assert.Equal(t, tt.wantYear, res.Value.NewYear)
			assert.Equal(t, tt.wantEvent, res.Value.Event)
			assert.NotNil(t, res.Value.StatChanges)
		})
	}
}

func TestParseDecisionOutcome_Fallback(t *testing.T) {
	// Un signe + devant un nombre rend le JSON invalide
	raw := `{"outcome_narrative": "x", "stat_changes": {"gold": +500}}`

	res := ParseDecisionOutcome(raw, "Espagne", 1492, "Financer Colomb")
	require.Equal(t, Defaulted, res.Kind)
	require.Error(t, res.Err)

	v := res.Value
	assert.Equal(t, "Votre décision concernant 'Financer Colomb' a des conséquences mitigées.", v.Narrative)
	assert.Equal(t, map[string]int{"gold": -100, "stability": 5, "army": 0, "population": 1000, "diplomacy": 0}, v.StatChanges)
	assert.Equal(t, 1493, v.NewYear)
	require.Len(t, v.NewChoices, 3)
	assert.Equal(t, []string{"Consolider les gains", "Prendre une nouvelle initiative", "Action audacieuse"},
		[]string{v.NewChoices[0].Text, v.NewChoices[1].Text, v.NewChoices[2].Text})
	assert.Equal(t, models.RiskHigh, v.NewChoices[2].RiskLevel)
	assert.Nil(t, v.Event)
}

func TestFlexInt(t *testing.T) {
	tests := map[string]int{
		`42`:      42,
		`-7`:      -7,
		`3.99`:    3,
		`1e3`:     1000,
		`"12"`:    12,
		`"+500"`:  500,
		`" -20 "`: -20,
		`"12.5"`:  12,
		`"abc"`:   0,
		`null`:    0,
		`true`:    0,
	}
	for input, want := range tests {
		var f flexInt
		require.NoError(t, json.Unmarshal([]byte(input), &f), input)
		assert.Equal(t, want, int(f), input)
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "parsed", Parsed.String())
	assert.Equal(t, "recovered", Recovered.String())
	assert.Equal(t, "defaulted", Defaulted.String())
	assert.Equal(t, "Kind(9)", Kind(9).String())
}

func ptr(s string) *string { return &s }

func isNoObject(err error) bool {
	return errors.Is(err, ErrNoJSONObject)
}
