package language

import "strings"

type entry struct {
	code2   string // ISO 639-1 (2-letter)
	code3   string // ISO 639-2 primary (3-letter)
	alt3    string // ISO 639-2 alternate (e.g. "fre" vs "fra")
	display string // Human-readable name
	word    string // Full word form, also the stopword file name
}

// Stopword languages, in the order they are offered to users.
var languages = []entry{
	{"ar", "ara", "", "Arabic", "arabic"},
	{"az", "aze", "", "Azerbaijani", "azerbaijani"},
	{"da", "dan", "", "Danish", "danish"},
	{"nl", "nld", "dut", "Dutch", "dutch"},
	{"en", "eng", "", "English", "english"},
	{"fi", "fin", "", "Finnish", "finnish"},
	{"fr", "fra", "fre", "French", "french"},
	{"de", "deu", "ger", "German", "german"},
	{"el", "ell", "gre", "Greek", "greek"},
	{"hu", "hun", "", "Hungarian", "hungarian"},
	{"id", "ind", "", "Indonesian", "indonesian"},
	{"it", "ita", "", "Italian", "italian"},
	{"kk", "kaz", "", "Kazakh", "kazakh"},
	{"ne", "nep", "", "Nepali", "nepali"},
	{"no", "nor", "", "Norwegian", "norwegian"},
	{"pt", "por", "", "Portuguese", "portuguese"},
	{"ro", "ron", "rum", "Romanian", "romanian"},
	{"ru", "rus", "", "Russian", "russian"},
	{"es", "spa", "", "Spanish", "spanish"},
	{"sv", "swe", "", "Swedish", "swedish"},
	{"tr", "tur", "", "Turkish", "turkish"},
}

// Index maps built at init time.
var (
	byCode2 map[string]*entry
	byCode3 map[string]*entry
	byWord  map[string]*entry
)

func init() {
	byCode2 = make(map[string]*entry, len(languages))
	byCode3 = make(map[string]*entry, len(languages)*2)
	byWord = make(map[string]*entry, len(languages))
	for i := range languages {
		e := &languages[i]
		byCode2[e.code2] = e
		byCode3[e.code3] = e
		if e.alt3 != "" {
			byCode3[e.alt3] = e
		}
		byWord[e.word] = e
	}
}

func lookup(code string) *entry {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return nil
	}
	if e, ok := byWord[code]; ok {
		return e
	}
	if e, ok := byCode2[code]; ok {
		return e
	}
	if e, ok := byCode3[code]; ok {
		return e
	}
	return nil
}

// Language describes a supported stopword language.
type Language struct {
	Name    string `json:"name"`
	Display string `json:"display"`
	ISO2    string `json:"iso2"`
	ISO3    string `json:"iso3"`
}

func (e *entry) language() Language {
	return Language{Name: e.word, Display: e.display, ISO2: e.code2, ISO3: e.code3}
}

// Lookup resolves a language word ("spanish"), ISO 639-1 or ISO 639-2 code.
func Lookup(code string) (Language, bool) {
	e := lookup(code)
	if e == nil {
		return Language{}, false
	}
	return e.language(), true
}

// All returns every supported language.
func All() []Language {
	out := make([]Language, 0, len(languages))
	for i := range languages {
		out = append(out, languages[i].language())
	}
	return out
}

// ToISO2 converts any recognized language code or word to ISO 639-1 (2-letter).
// Returns empty string for unrecognized input.
func ToISO2(code string) string {
	if e := lookup(code); e != nil {
		return e.code2
	}
	return ""
}

// DisplayName returns a human-readable language name for any recognized code.
// Returns "Unknown" for empty input, or the uppercased code for unrecognized input.
func DisplayName(code string) string {
	if strings.TrimSpace(code) == "" {
		return "Unknown"
	}
	if e := lookup(code); e != nil {
		return e.display
	}
	return strings.ToUpper(strings.TrimSpace(code))
}
