package signs

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultTable []byte

var errEmptyTable = errors.New("sign table defines no words or letters")

// Sign is the authored animation for one word or letter: an ordered list of phases,
// each phase a list of instructions played together.
type Sign struct {
	Token  string
	Phases [][]Instruction
}

// Instructions returns the total instruction count across phases.
func (s Sign) Instructions() int {
	n := 0
	for _, p := range s.Phases {
		n += len(p)
	}
	return n
}

// Malformed returns the instructions that cannot be played.
func (s Sign) Malformed() []Instruction {
	var out []Instruction
	for _, p := range s.Phases {
		for _, in := range p {
			if !in.Valid() {
				out = append(out, in)
			}
		}
	}
	return out
}

type tableImpl struct {
	words   map[string]Sign
	letters map[rune]Sign
}

// Table is the bone animation table consulted when text is submitted for signing.
// Word tokens take precedence; letters are the fingerspelling fallback.
type Table interface {
	// Word looks up a whole-word sign.
	//
	// Parameters:
	//   - token: the word; matched case-insensitively
	//
	// Returns:
	//   - Sign: the sign
	//   - bool: false if the word has no entry
	Word(token string) (Sign, bool)

	// Letter looks up a fingerspelling sign.
	//
	// Parameters:
	//   - r: the character; matched case-insensitively
	//
	// Returns:
	//   - Sign: the sign
	//   - bool: false if the character has no entry
	Letter(r rune) (Sign, bool)

	// Words returns all word tokens in lexical order.
	Words() []string

	// Letters returns all letter characters in ascending order.
	Letters() []rune
}

var _ Table = &tableImpl{}

type document struct {
	Words   map[string][][]Instruction `yaml:"words"`
	Letters map[string][][]Instruction `yaml:"letters"`
}

// Default returns the embedded table with the fingerspelling alphabet and a small word set.
//
// Returns:
//   - Table: the built-in table
func Default() Table {
	t, err := Parse(defaultTable)
	if err != nil {
		panic(fmt.Sprintf("embedded sign table is invalid: %v", err))
	}
	return t
}

// LoadFile reads a YAML table from disk.
//
// Parameters:
//   - path: the YAML file
//
// Returns:
//   - Table: the parsed table
//   - error: error if the file cannot be read or parsed
func LoadFile(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sign table: %w", err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Parse reads a YAML table. Malformed instruction tuples are kept and flagged;
// structural errors (bad YAML, multi-character letter keys) fail the parse.
//
// Parameters:
//   - data: YAML document with "words" and "letters" maps
//
// Returns:
//   - Table: the parsed table
//   - error: error if the document is invalid
func Parse(data []byte) (Table, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse sign table: %w", err)
	}

	t := &tableImpl{
		words:   make(map[string]Sign, len(doc.Words)),
		letters: make(map[rune]Sign, len(doc.Letters)),
	}

	for token, phases := range doc.Words {
		key := strings.ToUpper(strings.TrimSpace(token))
		if key == "" || strings.ContainsAny(key, " \t\n") {
			return nil, fmt.Errorf("word %q must be a single non-empty token", token)
		}
		t.words[key] = Sign{Token: key, Phases: phases}
	}

	for token, phases := range doc.Letters {
		key := strings.ToUpper(strings.TrimSpace(token))
		if utf8.RuneCountInString(key) != 1 {
			return nil, fmt.Errorf("letter %q must be a single character", token)
		}
		r, _ := utf8.DecodeRuneInString(key)
		t.letters[r] = Sign{Token: key, Phases: phases}
	}

	if len(t.words) == 0 && len(t.letters) == 0 {
		return nil, errEmptyTable
	}
	return t, nil
}

// Merge layers overlay on top of base; overlay entries replace base entries with the same token.
//
// Parameters:
//   - base: the underlying table
//   - overlay: entries that take precedence
//
// Returns:
//   - Table: the combined table
func Merge(base, overlay Table) Table {
	t := &tableImpl{
		words:   make(map[string]Sign),
		letters: make(map[rune]Sign),
	}
	for _, src := range []Table{base, overlay} {
		if src == nil {
			continue
		}
		for _, w := range src.Words() {
			s, _ := src.Word(w)
			t.words[w] = s
		}
		for _, r := range src.Letters() {
			s, _ := src.Letter(r)
			t.letters[r] = s
		}
	}
	return t
}

func (t *tableImpl) Word(token string) (Sign, bool) {
	s, ok := t.words[strings.ToUpper(token)]
	return s, ok
}

func (t *tableImpl) Letter(r rune) (Sign, bool) {
	s, ok := t.letters[unicode.ToUpper(r)]
	return s, ok
}

func (t *tableImpl) Words() []string {
	out := make([]string, 0, len(t.words))
	for w := range t.words {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

func (t *tableImpl) Letters() []rune {
	out := make([]rune, 0, len(t.letters))
	for r := range t.letters {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
