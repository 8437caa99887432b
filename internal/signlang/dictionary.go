package signlang

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/echolearn/server/domain/entities"
)

// Dictionary is an immutable word -> gesture table. Keys are lower case and
// matched exactly against single tokens.
type Dictionary struct {
	entries map[string]entities.GestureEntry
}

// basicSigns is the built-in table used when no dictionary file is configured.
// "thank you" can never match a single whitespace-separated token; it is kept
// so that the table stays aligned with the published gesture set.
var basicSigns = []entities.GestureEntry{
	{Word: "hello", Gesture: "wave", Description: "Wave hand"},
	{Word: "thank you", Gesture: "flat_hand_to_chin", Description: "Flat hand from chin forward"},
	{Word: "yes", Gesture: "nod", Description: "Nod head up and down"},
	{Word: "no", Gesture: "shake", Description: "Shake head left and right"},
	{Word: "please", Gesture: "circle_chest", Description: "Circle flat hand on chest"},
	{Word: "good", Gesture: "thumbs_up", Description: "Thumbs up gesture"},
	{Word: "bad", Gesture: "thumbs_down", Description: "Thumbs down gesture"},
	{Word: "learn", Gesture: "book_to_head", Description: "Book gesture to forehead"},
	{Word: "understand", Gesture: "lightbulb", Description: "Index finger tap to temple"},
	{Word: "question", Gesture: "index_finger_curve", Description: "Index finger curved like question mark"},
}

var defaultDictionary = NewDictionary(basicSigns)

// DefaultDictionary returns the built-in sign table
func DefaultDictionary() Dictionary {
	return defaultDictionary
}

// NewDictionary builds a dictionary from entries. Later entries win on duplicate words.
func NewDictionary(entries []entities.GestureEntry) Dictionary {
	m := make(map[string]entities.GestureEntry, len(entries))
	for _, e := range entries {
		e.Word = strings.ToLower(strings.TrimSpace(e.Word))
		if e.Word == "" {
			continue
		}
		m[e.Word] = e
	}
	return Dictionary{entries: m}
}

// Lookup returns the entry for an exact lower-case word
func (d Dictionary) Lookup(word string) (entities.GestureEntry, bool) {
	e, ok := d.entries[word]
	return e, ok
}

// Len returns the number of entries
func (d Dictionary) Len() int {
	return len(d.entries)
}

// Entries returns a copy of all entries ordered by word
func (d Dictionary) Entries() []entities.GestureEntry {
	out := make([]entities.GestureEntry, 0, len(d.entries))
	for _, e := range d.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Word < out[j].Word })
	return out
}

// dictionaryFile is the on-disk YAML layout
type dictionaryFile struct {
	Signs []entities.GestureEntry `yaml:"signs"`
}

// LoadDictionary reads a YAML sign table of the form
//
//	signs:
//	  - word: hello
//	    gesture: wave
//	    description: Wave hand
func LoadDictionary(path string) (Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Dictionary{}, fmt.Errorf("failed to read sign dictionary: %w", err)
	}

	var file dictionaryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Dictionary{}, fmt.Errorf("failed to parse sign dictionary %s: %w", path, err)
	}

	for i, e := range file.Signs {
		if strings.TrimSpace(e.Word) == "" || strings.TrimSpace(e.Gesture) == "" {
			return Dictionary{}, fmt.Errorf("sign dictionary entry %d: word and gesture are required", i)
		}
	}
	if len(file.Signs) == 0 {
		return Dictionary{}, fmt.Errorf("sign dictionary %s has no entries", path)
	}

	return NewDictionary(file.Signs), nil
}
