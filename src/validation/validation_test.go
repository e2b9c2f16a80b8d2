package validation

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestNormalizeWellFormedMap(t *testing.T) {
	payload := map[string]any{
		"original":    "Ciao",
		"translation": "Hola",
		"grammar": []any{
			map[string]any{"word": "Ciao", "explanation": "Hola", "function": "interjección"},
		},
	}

	rec := Normalize(payload)

	if rec.Original != "Ciao" {
		t.Errorf("Expected original 'Ciao', got %q", rec.Original)
	}
	if rec.Translation != "Hola" {
		t.Errorf("Expected translation 'Hola', got %q", rec.Translation)
	}
	want := []GrammarItem{{Word: "Ciao", Explanation: "Hola", Function: "interjección"}}
	if !reflect.DeepEqual(rec.GrammarJSON, want) {
		t.Errorf("Unexpected grammar items: %+v", rec.GrammarJSON)
	}
	if rec.Grammar != "- Ciao: Hola (interjección)" {
		t.Errorf("Unexpected grammar text: %q", rec.Grammar)
	}
}

func TestNormalizeStringWithWrapperProse(t *testing.T) {
	s := "Result: {\n  \"original\": \"Ciao\", \n  \"translation\": \"Hola\", \n  \"grammar\": []\n } End"

	rec := Normalize(s)

	if rec.Original != "Ciao" || rec.Translation != "Hola" {
		t.Errorf("Expected Ciao/Hola, got %q/%q", rec.Original, rec.Translation)
	}
	if len(rec.GrammarJSON) != 0 {
		t.Errorf("Expected no grammar items, got %+v", rec.GrammarJSON)
	}
	if rec.Grammar != "" {
		t.Errorf("Expected empty grammar text, got %q", rec.Grammar)
	}
}

func TestNormalizeGarbageReturnsDefaults(t *testing.T) {
	rec := Normalize("not-json")

	if rec.Original != "" || rec.Translation != "" {
		t.Errorf("Expected empty fields, got %q/%q", rec.Original, rec.Translation)
	}
	if rec.GrammarJSON == nil || len(rec.GrammarJSON) != 0 {
		t.Errorf("Expected empty (non-nil) grammar list, got %#v", rec.GrammarJSON)
	}
	if rec.Grammar != "" {
		t.Errorf("Expected empty grammar text, got %q", rec.Grammar)
	}
}

func TestNormalizeMarkdownFences(t *testing.T) {
	body := `{"original": "Ciao", "translation": "Hola", "grammar": []}`

	cases := []struct {
		name  string
		input string
	}{
		{"with json tag", "```json\n" + body + "\n```"},
		{"without tag", "```\n" + body + "\n```"},
		{"uppercase tag", "```JSON\n" + body + "\n```"},
		{"leading whitespace", "  \n```json\n" + body + "\n```  "},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := Normalize(tc.input)
			if rec.Original != "Ciao" || rec.Translation != "Hola" {
				t.Errorf("Expected Ciao/Hola, got %q/%q", rec.Original, rec.Translation)
			}
		})
	}
}

func TestNormalizeRecoversFromTrailingComma(t *testing.T) {
	s := `{"original": "Ciao", "translation": "Hola", "grammar": [{"word": "ciao", "explanation": "hola", "function": "interjección"},]}`

	rec := Normalize(s)

	if rec.Original != "Ciao" || rec.Translation != "Hola" {
		t.Errorf("Expected Ciao/Hola, got %q/%q", rec.Original, rec.Translation)
	}
	if len(rec.GrammarJSON) != 1 {
		t.Fatalf("Expected 1 recovered item, got %+v", rec.GrammarJSON)
	}
	if rec.GrammarJSON[0].Word != "ciao" || rec.GrammarJSON[0].Function != "interjección" {
		t.Errorf("Unexpected recovered item: %+v", rec.GrammarJSON[0])
	}
}

func TestNormalizeRecoversFromTruncatedArray(t *testing.T) {
	s := `{"original": "Andiamo a casa", "translation": "Vamos a casa", "grammar": [{"word": "andiamo", "explanation": "vamos"}, {"word": "casa", "expl`

	rec := Normalize(s)

	if rec.Original != "Andiamo a casa" {
		t.Errorf("Expected original recovered, got %q", rec.Original)
	}
	if rec.Translation != "Vamos a casa" {
		t.Errorf("Expected translation recovered, got %q", rec.Translation)
	}
	if len(rec.GrammarJSON) != 1 {
		t.Fatalf("Expected 1 salvageable item, got %+v", rec.GrammarJSON)
	}
	if rec.GrammarJSON[0].Word != "andiamo" || rec.GrammarJSON[0].Explanation != "vamos" {
		t.Errorf("Unexpected salvaged item: %+v", rec.GrammarJSON[0])
	}
}

func TestNormalizeRecoversFieldsWithoutClosingBrace(t *testing.T) {
	rec := Normalize(`{"original": "Ciao", "translation": "Hola"`)

	if rec.Original != "Ciao" || rec.Translation != "Hola" {
		t.Errorf("Expected Ciao/Hola, got %q/%q", rec.Original, rec.Translation)
	}
}

func TestNormalizeEscapedQuotesInRecovery(t *testing.T) {
	rec := Normalize(`{"original": "Disse \"ciao\"", "translation": "Dijo \"hola\"", "grammar": [,]}`)

	if rec.Original != `Disse "ciao"` {
		t.Errorf("Expected escaped quotes decoded, got %q", rec.Original)
	}
	if rec.Translation != `Dijo "hola"` {
		t.Errorf("Expected escaped quotes decoded, got %q", rec.Translation)
	}
}

func TestNormalizeCoercesFieldTypes(t *testing.T) {
	payload := map[string]any{
		"original":    float64(42),
		"translation": nil,
		"grammar": []any{
			map[string]any{"word": 3.5, "explanation": true, "difficulty": float64(2)},
		},
	}

	rec := Normalize(payload)

	if rec.Original != "42" {
		t.Errorf("Expected numeric original coerced to '42', got %q", rec.Original)
	}
	if rec.Translation != "" {
		t.Errorf("Expected null translation coerced to empty, got %q", rec.Translation)
	}
	if len(rec.GrammarJSON) != 1 {
		t.Fatalf("Expected 1 item, got %+v", rec.GrammarJSON)
	}
	item := rec.GrammarJSON[0]
	if item.Word != "3.5" || item.Explanation != "true" || item.Difficulty != "2" {
		t.Errorf("Unexpected coercion: %+v", item)
	}
}

func TestNormalizeGrammarNotASequence(t *testing.T) {
	rec := Normalize(map[string]any{
		"original":    "Ciao",
		"translation": "Hola",
		"grammar":     "ciao: hola",
	})

	if len(rec.GrammarJSON) != 0 {
		t.Errorf("Expected non-sequence grammar treated as empty, got %+v", rec.GrammarJSON)
	}
	// The rendered text is always regenerated, never the payload's own text.
	if rec.Grammar != "" {
		t.Errorf("Expected regenerated (empty) grammar text, got %q", rec.Grammar)
	}
}

func TestNormalizeFiltersStructuralNoise(t *testing.T) {
	payload := map[string]any{
		"original":    "Ciao",
		"translation": "Hola",
		"grammar": []any{
			"just a string",
			float64(7),
			map[string]any{"word": "", "explanation": "", "function": "verbo"},
			map[string]any{"word": "ciao", "explanation": "hola"},
			nil,
		},
	}

	rec := Normalize(payload)

	if len(rec.GrammarJSON) != 1 {
		t.Fatalf("Expected noise filtered down to 1 item, got %+v", rec.GrammarJSON)
	}
	for _, item := range rec.GrammarJSON {
		if item.Word == "" && item.Explanation == "" {
			t.Errorf("Filtering invariant violated: %+v", item)
		}
	}
}

func TestNormalizeTotality(t *testing.T) {
	inputs := []any{
		nil,
		"",
		"   ",
		"{}",
		"null",
		"[]",
		"{{{{",
		"```",
		"```json\n```",
		`{"grammar": [`,
		[]byte(`{"original": "x"}`),
		42,
		3.14,
		true,
		[]string{"a"},
		map[string]any{},
		map[string]any{"grammar": map[string]any{"word": "x"}},
	}

	for _, input := range inputs {
		rec := Normalize(input)
		if rec.GrammarJSON == nil {
			t.Errorf("GrammarJSON must never be nil (input %#v)", input)
		}
		if rec.Grammar != BuildGrammarText(rec.GrammarJSON) {
			t.Errorf("Grammar text inconsistent with items (input %#v)", input)
		}
	}
}

func TestNormalizeConsistencyInvariant(t *testing.T) {
	inputs := []string{
		`{"original": "a", "translation": "b", "grammar": [{"word": "w", "explanation": "e", "function": "f"}]}`,
		`{"grammar": [{"word": "w1", "explanation": "e1"}, {"explanation": "e2"}]}`,
		`{"original": "x", "grammar": [{"word": "w"},]}`,
		"garbage",
	}

	for _, input := range inputs {
		rec := Normalize(input)
		if rec.Grammar != BuildGrammarText(rec.GrammarJSON) {
			t.Errorf("Grammar %q does not match rendered items for input %q", rec.Grammar, input)
		}
	}
}

func TestNormalizeTrimsWhitespace(t *testing.T) {
	rec := Normalize(map[string]any{
		"original":    "  Ciao  ",
		"translation": "\tHola\n",
		"grammar": []any{
			map[string]any{"word": " ciao ", "explanation": " hola ", "function": " interjección "},
		},
	})

	if rec.Original != "Ciao" || rec.Translation != "Hola" {
		t.Errorf("Expected trimmed fields, got %q/%q", rec.Original, rec.Translation)
	}
	if rec.GrammarJSON[0].Word != "ciao" || rec.GrammarJSON[0].Function != "interjección" {
		t.Errorf("Expected trimmed item fields, got %+v", rec.GrammarJSON[0])
	}
}

func TestTranslationMarshalsAllKeys(t *testing.T) {
	data, err := json.Marshal(Normalize("not-json"))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	for _, key := range []string{"original", "translation", "grammar", "grammar_json"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("Output record missing key %q", key)
		}
	}
	if _, ok := decoded["grammar_json"].([]any); !ok {
		t.Errorf("grammar_json must marshal as an array, got %T", decoded["grammar_json"])
	}
}

func TestBuildGrammarText(t *testing.T) {
	cases := []struct {
		name  string
		items []GrammarItem
		want  string
	}{
		{"empty input", nil, ""},
		{
			"word and explanation",
			[]GrammarItem{{Word: "ciao", Explanation: "hola"}},
			"- ciao: hola",
		},
		{
			"with function",
			[]GrammarItem{{Word: "ciao", Explanation: "hola", Function: "interjección"}},
			"- ciao: hola (interjección)",
		},
		{
			"explanation only",
			[]GrammarItem{{Explanation: "una expresión común", Function: "frase"}},
			"- una expresión común (frase)",
		},
		{
			"skips empty items",
			[]GrammarItem{{Function: "verbo"}, {Word: "casa", Explanation: "casa"}},
			"- casa: casa",
		},
		{
			"joins with newlines, no trailing newline",
			[]GrammarItem{{Word: "a", Explanation: "b"}, {Word: "c", Explanation: "d"}},
			"- a: b\n- c: d",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := BuildGrammarText(tc.items)
			if got != tc.want {
				t.Errorf("Expected %q, got %q", tc.want, got)
			}
			if again := BuildGrammarText(tc.items); again != got {
				t.Errorf("Rendering is not deterministic: %q vs %q", got, again)
			}
		})
	}
}
