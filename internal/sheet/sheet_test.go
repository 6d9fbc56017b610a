package sheet

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseValidSheet(t *testing.T) {
	raw := `{"nome":"Aria","razza_classe":"Elfa ranger","tratti":["agile"],"background":"Cresciuta nei boschi","abilita":["tiro con l'arco"],"equipaggiamento":["arco lungo","mantello"]}`
	res := Parse(raw)
	require.Equal(t, SourceParsed, res.Source)
	require.False(t, res.Defaulted())
	require.Equal(t, "Aria", res.Sheet.Nome)
	require.Equal(t, []string{"arco lungo", "mantello"}, res.Sheet.Equipaggiamento)
}

func TestParseStripsCodeFence(t *testing.T) {
	raw := "```json\n{\"nome\":\"Brann\",\"razza_classe\":\"Nano guerriero\"}\n```"
	res := Parse(raw)
	require.Equal(t, SourceParsed, res.Source)
	require.Equal(t, "Brann", res.Sheet.Nome)
	require.Equal(t, "Nano guerriero", res.Sheet.RazzaClasse)
	require.Empty(t, res.Sheet.Tratti)
}

func TestParseFallsBackToPlaceholder(t *testing.T) {
	for _, raw := range []string{
		"Ecco il tuo personaggio: un mago.",
		`{"nome": 42}`,
		`{"tratti": "coraggioso"}`,
	} {
		res := Parse(raw)
		require.Equal(t, SourceDefaulted, res.Source, raw)
		require.Equal(t, DefaultName, res.Sheet.Nome)
		require.NotNil(t, res.Sheet.Tratti)
	}
}

func TestParseEmptyReplyIsAnEmptySheet(t *testing.T) {
	res := Parse("   ")
	require.Equal(t, SourceParsed, res.Source)
	require.Equal(t, Sheet{Tratti: []string{}, Abilita: []string{}, Equipaggiamento: []string{}}, res.Sheet)
}

func TestIllustrationPrompt(t *testing.T) {
	prompt := IllustrationPrompt(Placeholder(), "", "")
	require.Equal(t, "Logo/illustrazione in stile fumetto pulito: eroe con equipaggiamento iconico. Scenario fantasy coerente. Colori bilanciati.", prompt)

	s := Sheet{RazzaClasse: "Tiefling stregone", Equipaggiamento: []string{"bastone", "grimorio"}}
	prompt = IllustrationPrompt(s, " acquerello ", "testo, watermark")
	require.Contains(t, prompt, "Tiefling stregone con bastone, grimorio.")
	require.Contains(t, prompt, "Stile: acquerello.")
	require.Contains(t, prompt, "Evita: testo, watermark.")
}
