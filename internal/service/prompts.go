package service

import (
	"fmt"
	"strings"

	"geopolitics-server/internal/models"
)

const initialSystemPrompt = `Tu es un maître du jeu pour un jeu de simulation géopolitique historique.
Tu dois générer des situations réalistes et engageantes basées sur l'histoire réelle.
IMPORTANT: Ignore les frontières modernes. Considère le territoire et le contexte politique de l'époque demandée.
Tu dois TOUJOURS répondre en JSON valide avec la structure exacte demandée.`

const decisionSystemPrompt = `Tu es un maître du jeu pour un jeu de simulation géopolitique historique.
Tu dois générer des conséquences réalistes aux décisions du joueur.
Les conséquences doivent être équilibrées - les choix risqués peuvent avoir de grandes récompenses ou de grandes pertes.
Tu dois TOUJOURS répondre en JSON valide.`

const initialPromptTemplate = `Génère la situation initiale pour un joueur qui prend le contrôle de %[1]s en l'an %[2]d.

Réponds UNIQUEMENT avec un JSON valide dans ce format exact:
{
    "narrative": "Un paragraphe décrivant la situation politique, économique et militaire du pays à cette époque (150-200 mots)",
    "stats": {
        "gold": <nombre entre 500 et 5000>,
        "stability": <nombre entre 20 et 100>,
        "army": <nombre entre 10000 et 500000>,
        "population": <nombre entre 100000 et 50000000>,
        "diplomacy": <nombre entre 20 et 100>
    },
    "choices": [
        {"index": 0, "text": "Premier choix stratégique disponible", "risk_level": "low"},
        {"index": 1, "text": "Deuxième choix stratégique disponible", "risk_level": "medium"},
        {"index": 2, "text": "Troisième choix stratégique disponible", "risk_level": "high"}
    ],
    "historical_context": "Contexte historique bref de cette période"
}

Assure-toi que les choix sont pertinents pour %[1]s en %[2]d et reflètent les défis réels de l'époque.`

const decisionPromptTemplate = `Le joueur contrôle %[1]s en %[2]d.

Statistiques actuelles:
- Or: %[3]d
- Stabilité: %[4]d%%
- Armée: %[5]d hommes
- Population: %[6]d
- Diplomatie: %[7]d%%

%[8]s

Le joueur a choisi: "%[9]s"

Génère les conséquences de cette décision en JSON:
{
    "outcome_narrative": "Description des conséquences de cette décision (100-150 mots)",
    "stat_changes": {
        "gold": <changement, peut être négatif, entre -500 et +500>,
        "stability": <changement entre -20 et +20>,
        "army": <changement entre -10000 et +20000>,
        "population": <changement entre -50000 et +100000>,
        "diplomacy": <changement entre -15 et +15>
    },
    "new_year": %[10]d,
    "new_choices": [
        {"index": 0, "text": "Nouveau choix 1", "risk_level": "low"},
        {"index": 1, "text": "Nouveau choix 2", "risk_level": "medium"},
        {"index": 2, "text": "Nouveau choix 3", "risk_level": "high"}
    ],
    "event": "Événement aléatoire qui s'est produit (ou null)"
}`

// Сколько последних записей истории попадает в промпт и до скольких символов они обрезаются.
const (
	historyWindow      = 3
	historyEntryMaxLen = 100
)

func buildInitialPrompt(country string, year int) string {
	return fmt.Sprintf(initialPromptTemplate, country, year)
}

func buildDecisionPrompt(country string, year int, stats models.Stats, history []models.NarrativeEntry, choiceText string) string {
	return fmt.Sprintf(decisionPromptTemplate,
		country, year,
		stats.Gold, stats.Stability, stats.Army, stats.Population, stats.Diplomacy,
		historyContext(history),
		choiceText,
		year+1,
	)
}

// historyContext формирует блок "Événements récents" из последних записей.
// Многоточие добавляется всегда, даже если запись короче лимита.
func historyContext(history []models.NarrativeEntry) string {
	if len(history) == 0 {
		return ""
	}
	recent := history[max(0, len(history)-historyWindow):]

	var b strings.Builder
	b.WriteString("Événements récents:\n")
	for i, entry := range recent {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(truncateRunes(entry.Content, historyEntryMaxLen))
		b.WriteString("...")
	}
	return b.String()
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
