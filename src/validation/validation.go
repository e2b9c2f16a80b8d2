// Package validation normalizes translation payloads returned by the LLM.
// The model is asked for a strict JSON object but its output has no
// structural guarantee: markdown fences, surrounding prose, truncated
// arrays, trailing commas and plain garbage all occur in practice.
// Normalize never fails; it degrades field by field to empty defaults.
//
// Expected payload shape:
//
//	{
//	  "original": str,
//	  "translation": str,
//	  "grammar": [ {"word": str, "explanation": str, "function": str, ...}, ... ]
//	}
package validation

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// GrammarItem is one word/phrase explanation unit within a translation.
type GrammarItem struct {
	Word           string `json:"word"`
	Explanation    string `json:"explanation"`
	Function       string `json:"function"`
	AdditionalInfo string `json:"additional_info"`
	Examples       string `json:"examples"`
	Difficulty     string `json:"difficulty"`
}

// Translation is the normalized record handed to presentation code.
// Every field is always present and type-correct no matter how malformed
// the input was. Grammar is always regenerated from GrammarJSON via
// BuildGrammarText, never taken from the payload.
type Translation struct {
	Original    string        `json:"original"`
	Translation string        `json:"translation"`
	Grammar     string        `json:"grammar"`
	GrammarJSON []GrammarItem `json:"grammar_json"`
}

var itemFields = []string{"word", "explanation", "function", "additional_info", "examples", "difficulty"}

// stringFieldRE matches `"<name>": "<value>"` with a non-greedy capture
// that stops at the first unescaped quote.
var stringFieldRE = map[string]*regexp.Regexp{}

func init() {
	for _, name := range append([]string{"original", "translation"}, itemFields...) {
		stringFieldRE[name] = regexp.MustCompile(`"` + name + `"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	}
}

var (
	grammarKeyRE    = regexp.MustCompile(`"grammar"\s*:\s*\[`)
	trailingCommaRE = regexp.MustCompile(`,\s*\]`)
	// Brace-blind on purpose: a nested brace inside an explanation string
	// breaks the match for that object only. Same tolerance as upstream.
	objectRE = regexp.MustCompile(`\{[^{}]*\}`)
)

// Normalize parses a translation payload (raw LLM string or an
// already-decoded object) and returns a normalized record.
// It never panics; malformed payloads yield empty fields instead.
func Normalize(payload any) (rec Translation) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("validation: recovered while normalizing payload: %v", r)
			rec = emptyRecord()
		}
	}()

	switch p := payload.(type) {
	case string:
		return NormalizeString(p)
	case []byte:
		return NormalizeString(string(p))
	case map[string]any:
		return fromObject(p)
	default:
		return emptyRecord()
	}
}

// NormalizeString normalizes a raw completion string. Parsing is attempted
// in decreasing strictness: fence-stripped strict JSON of the first
// {...last} slice, then per-field regex recovery.
func NormalizeString(raw string) Translation {
	s := stripFences(strings.TrimSpace(raw))

	// Extract the object if the string carries wrapper prose,
	// e.g. "Result: { ... } End".
	candidate := s
	if start, end := strings.Index(s, "{"), strings.LastIndex(s, "}"); start != -1 && end > start {
		candidate = s[start : end+1]
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(candidate), &data); err == nil && data != nil {
		return fromObject(data)
	}
	return recoverFields(s)
}

// BuildGrammarText renders grammar items as a human-readable bullet list,
// one line per item, no trailing newline. Items with neither word nor
// explanation are skipped. Used as the fallback display format when
// structured cards cannot be shown.
func BuildGrammarText(items []GrammarItem) string {
	var lines []string
	for _, item := range items {
		word := strings.TrimSpace(item.Word)
		explanation := strings.TrimSpace(item.Explanation)
		function := strings.TrimSpace(item.Function)
		if word == "" && explanation == "" {
			continue
		}
		var line string
		if word != "" {
			line = fmt.Sprintf("- %s: %s", word, explanation)
		} else {
			line = fmt.Sprintf("- %s", explanation)
		}
		if function != "" {
			line += fmt.Sprintf(" (%s)", function)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func emptyRecord() Translation {
	return Translation{GrammarJSON: []GrammarItem{}}
}

func fromObject(data map[string]any) Translation {
	rec := emptyRecord()
	rec.Original = strings.TrimSpace(asString(data["original"]))
	rec.Translation = strings.TrimSpace(asString(data["translation"]))
	rec.GrammarJSON = normalizeItems(data["grammar"])
	rec.Grammar = BuildGrammarText(rec.GrammarJSON)
	return rec
}

// normalizeItems coerces the grammar value to a filtered item list.
// Non-sequence values and non-object elements are dropped; items where
// both word and explanation are empty are structural noise and dropped.
func normalizeItems(v any) []GrammarItem {
	items := []GrammarItem{}
	list, ok := v.([]any)
	if !ok {
		return items
	}
	for _, el := range list {
		m, ok := el.(map[string]any)
		if !ok {
			continue
		}
		item := GrammarItem{
			Word:           strings.TrimSpace(asString(m["word"])),
			Explanation:    strings.TrimSpace(asString(m["explanation"])),
			Function:       strings.TrimSpace(asString(m["function"])),
			AdditionalInfo: strings.TrimSpace(asString(m["additional_info"])),
			Examples:       strings.TrimSpace(asString(m["examples"])),
			Difficulty:     strings.TrimSpace(asString(m["difficulty"])),
		}
		if item.Word == "" && item.Explanation == "" {
			continue
		}
		items = append(items, item)
	}
	return items
}

// asString coerces an untyped JSON value to its string form.
// nil/absent becomes "", numbers and booleans keep their literal form.
func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// stripFences removes wrapping markdown code-fence markers. Only fence
// delimiters are removed, never backticks inside the content.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	body := s[3:]
	if i := strings.IndexByte(body, '\n'); i >= 0 && isFenceTag(strings.TrimSpace(body[:i])) {
		body = body[i+1:]
	}
	body = strings.TrimSpace(body)
	body = strings.TrimSuffix(body, "```")
	return strings.TrimSpace(body)
}

// isFenceTag reports whether tag looks like a fence language tag ("json",
// "JSON", "" ...). Anything else means the backticks abut real content.
func isFenceTag(tag string) bool {
	if len(tag) > 16 {
		return false
	}
	for _, r := range tag {
		alpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !alpha {
			return false
		}
	}
	return true
}

// recoverFields is the last-resort path for syntactically broken JSON:
// pull original/translation with per-field regexes and salvage as many
// grammar objects as possible from the (possibly truncated) array.
func recoverFields(s string) Translation {
	rec := emptyRecord()
	rec.Original = extractStringField(s, "original")
	rec.Translation = extractStringField(s, "translation")
	rec.GrammarJSON = recoverItems(s)
	rec.Grammar = BuildGrammarText(rec.GrammarJSON)
	return rec
}

func extractStringField(s, name string) string {
	re, ok := stringFieldRE[name]
	if !ok {
		return ""
	}
	m := re.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(unescape(m[1]))
}

// unescape decodes JSON string escapes in a captured field value.
// On failure the raw capture is kept rather than discarded.
func unescape(raw string) string {
	var out string
	if err := json.Unmarshal([]byte(`"`+raw+`"`), &out); err != nil {
		return raw
	}
	return out
}

// recoverItems extracts the grammar array substring and parses it with one
// repair attempt (trailing comma before ]) before falling back to a
// per-object regex scan.
func recoverItems(s string) []GrammarItem {
	loc := grammarKeyRE.FindStringIndex(s)
	if loc == nil {
		return []GrammarItem{}
	}
	arr := sliceArray(s[loc[1]-1:])

	var list []any
	if err := json.Unmarshal([]byte(arr), &list); err == nil {
		return normalizeItems(list)
	}
	repaired := trailingCommaRE.ReplaceAllString(arr, "]")
	if err := json.Unmarshal([]byte(repaired), &list); err == nil {
		return normalizeItems(list)
	}
	return scanObjects(arr)
}

// sliceArray returns the substring of s up to the bracket matching the
// leading '['. Truncated arrays return the whole remainder so the object
// scan can still salvage complete elements.
func sliceArray(s string) string {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}
	return s
}

func scanObjects(arr string) []GrammarItem {
	items := []GrammarItem{}
	for _, obj := range objectRE.FindAllString(arr, -1) {
		item := GrammarItem{
			Word:           extractStringField(obj, "word"),
			Explanation:    extractStringField(obj, "explanation"),
			Function:       extractStringField(obj, "function"),
			AdditionalInfo: extractStringField(obj, "additional_info"),
			Examples:       extractStringField(obj, "examples"),
			Difficulty:     extractStringField(obj, "difficulty"),
		}
		if item.Word == "" && item.Explanation == "" {
			continue
		}
		items = append(items, item)
	}
	return items
}
