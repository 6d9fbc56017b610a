// Package sheet turns chat completions into fantasy character sheets.
package sheet

import (
	"encoding/json"
	"regexp"
	"strings"
)

// SystemPrompt instructs the chat model to answer with a bare sheet object.
const SystemPrompt = "Sei un generatore di personaggi fantasy. Rispondi SOLO con JSON valido " +
	"che abbia esattamente queste chiavi: " +
	"nome, razza_classe, tratti (array), background, abilita (array), equipaggiamento (array)."

// DefaultName is the placeholder name used when the model reply cannot be parsed.
const DefaultName = "Eroe senza nome"

// Source tells whether a sheet came from the model or from the placeholder.
type Source string

const (
	SourceParsed    Source = "parsed"
	SourceDefaulted Source = "defaulted"
)

// Sheet is the character description returned alongside the illustration.
type Sheet struct {
	Nome            string   `json:"nome"`
	RazzaClasse     string   `json:"razza_classe"`
	Tratti          []string `json:"tratti"`
	Background      string   `json:"background"`
	Abilita         []string `json:"abilita"`
	Equipaggiamento []string `json:"equipaggiamento"`
}

// Result pairs a sheet with its provenance.
type Result struct {
	Sheet  Sheet
	Source Source
}

// Defaulted reports whether the placeholder was substituted.
func (r Result) Defaulted() bool { return r.Source == SourceDefaulted }

var fence = regexp.MustCompile("^```(?:json)?\\s*|\\s*```$")

// Placeholder returns the sheet used when the model reply is unusable.
func Placeholder() Sheet {
	return Sheet{
		Nome:            DefaultName,
		Tratti:          []string{},
		Abilita:         []string{},
		Equipaggiamento: []string{},
	}
}

// Parse decodes a model reply, tolerating a surrounding Markdown code fence.
func Parse(raw string) Result {
	text := strings.TrimSpace(raw)
	if text == "" {
		text = "{}"
	}
	text = fence.ReplaceAllString(text, "")

	var s Sheet
	if err := json.Unmarshal([]byte(text), &s); err != nil {
		return Result{Sheet: Placeholder(), Source: SourceDefaulted}
	}
	s.normalize()
	return Result{Sheet: s, Source: SourceParsed}
}

func (s *Sheet) normalize() {
	s.Nome = strings.TrimSpace(s.Nome)
	s.RazzaClasse = strings.TrimSpace(s.RazzaClasse)
	s.Background = strings.TrimSpace(s.Background)
	s.Tratti = compact(s.Tratti)
	s.Abilita = compact(s.Abilita)
	s.Equipaggiamento = compact(s.Equipaggiamento)
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// IllustrationPrompt builds the image prompt for a sheet. Style and negative
// prompt are appended only when set.
func IllustrationPrompt(s Sheet, style, negative string) string {
	subject := s.RazzaClasse
	if subject == "" {
		subject = "eroe"
	}
	gear := "equipaggiamento iconico"
	if len(s.Equipaggiamento) > 0 {
		gear = strings.Join(s.Equipaggiamento, ", ")
	}

	var b strings.Builder
	b.WriteString("Logo/illustrazione in stile fumetto pulito: ")
	b.WriteString(subject)
	b.WriteString(" con ")
	b.WriteString(gear)
	b.WriteString(". Scenario fantasy coerente. Colori bilanciati.")
	if style = strings.TrimSpace(style); style != "" {
		b.WriteString(" Stile: ")
		b.WriteString(style)
		b.WriteString(".")
	}
	if negative = strings.TrimSpace(negative); negative != "" {
		b.WriteString(" Evita: ")
		b.WriteString(negative)
		b.WriteString(".")
	}
	return b.String()
}
