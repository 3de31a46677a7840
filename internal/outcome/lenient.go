package outcome

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"geopolitics-server/internal/models"
)

// flexInt принимает целые, дробные, числовые строки и null.
// Все прочие значения читаются как 0.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}

	var num json.Number
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		num = json.Number(strings.TrimPrefix(strings.TrimSpace(s), "+"))
	} else {
		num = json.Number(data)
	}

	if i, err := strconv.ParseInt(num.String(), 10, 64); err == nil {
		*f = flexInt(clampInt64(i))
		return nil
	}
	if fl, err := strconv.ParseFloat(num.String(), 64); err == nil && !math.IsNaN(fl) && !math.IsInf(fl, 0) {
		*f = flexInt(clampInt64(int64(fl)))
		return nil
	}
	*f = 0
	return nil
}

func clampInt64(i int64) int {
	if i > math.MaxInt32 {
		return math.MaxInt32
	}
	if i < math.MinInt32 {
		return math.MinInt32
	}
	return int(i)
}

// flexString принимает строку; null дает пустую строку, иные значения берутся как текст JSON.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*f = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
	default:
		*f = flexString(data)
	}
	return nil
}

type choicePayload struct {
	Index     *flexInt   `json:"index"`
	Text      flexString `json:"text"`
	RiskLevel flexString `json:"risk_level"`
}

// UnmarshalJSON принимает и объект, и просто строку с текстом варианта.
func (c *choicePayload) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*c = choicePayload{Text: flexString(text)}
		return nil
	}
	type plain choicePayload
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*c = choicePayload(p)
	return nil
}

// choicesField пропускает элементы, которые не удалось прочитать, вместо отказа от всего списка.
func choicesField(obj object, key string) []choicePayload {
	raw := field[[]json.RawMessage](obj, key)
	out := make([]choicePayload, 0, len(raw))
	for _, item := range raw {
		if bytes.Equal(bytes.TrimSpace(item), []byte("null")) {
			continue
		}
		var c choicePayload
		if err := json.Unmarshal(item, &c); err != nil {
			continue
		}
		out = append(out, c)
	}
	return out
}

// normalizeChoices: отсутствующий индекс равен позиции, отсутствующий риск - medium.
func normalizeChoices(in []choicePayload) []models.ChoiceOption {
	out := make([]models.ChoiceOption, 0, len(in))
	for i, c := range in {
		opt := models.ChoiceOption{Index: i, Text: string(c.Text), RiskLevel: strings.TrimSpace(string(c.RiskLevel))}
		if c.Index != nil {
			opt.Index = int(*c.Index)
		}
		if opt.RiskLevel == "" {
			opt.RiskLevel = models.RiskMedium
		}
		out = append(out, opt)
	}
	return out
}
