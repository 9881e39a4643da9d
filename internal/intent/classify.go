// Package intent classifies message text into zero or more intents via
// case-insensitive substring matching against fixed trigger lists.
// Classification is pure: no I/O, no errors, result depends only on the
// lower-cased text and the lists.
package intent

import "strings"

// Intent is a classification label driving which branch of the handler runs.
type Intent string

const (
	Offer  Intent = "offer"
	Demand Intent = "demand"
	Art    Intent = "art"
	Search Intent = "search"
	Voice  Intent = "voice"
)

// Set is the set of intents matched for one message.
type Set map[Intent]bool

func (s Set) Has(i Intent) bool { return s[i] }

// Triggers holds the substring lists per intent. English and Catalan
// triggers are matched alike; the persona file may override a list.
type Triggers struct {
	Offer  []string
	Demand []string
	Art    []string
	Search []string
	Voice  []string
}

// DefaultTriggers returns the built-in trigger lists.
func DefaultTriggers() Triggers {
	return Triggers{
		Offer: []string{
			"offer", "i have to give", "i give away",
			"ofereixo", "ofereix", "tinc per donar", "regalo", "dono",
		},
		Demand: []string{
			"looking for", "need", "seeking", "would like to find",
			"busco", "necessito", "cerco", "vull trobar", "m'agradaria",
		},
		Art: []string{
			"imagine", "draw", "generate image", "create image", "paint",
			"imagina", "dibuixa", "genera imatge", "crea imatge", "pinta",
		},
		Search: []string{
			"search", "price", "who is", "news", "information", "what is",
			"busca", "preu", "qui és", "notícies", "cerca", "informació", "què és",
		},
		Voice: []string{"voice", "veu"},
	}
}

// Classifier matches text against its trigger lists.
type Classifier struct {
	triggers Triggers
}

func NewClassifier(t Triggers) *Classifier {
	def := DefaultTriggers()
	if len(t.Offer) == 0 {
		t.Offer = def.Offer
	}
	if len(t.Demand) == 0 {
		t.Demand = def.Demand
	}
	if len(t.Art) == 0 {
		t.Art = def.Art
	}
	if len(t.Search) == 0 {
		t.Search = def.Search
	}
	if len(t.Voice) == 0 {
		t.Voice = def.Voice
	}
	return &Classifier{triggers: t}
}

// Classify returns every intent whose trigger list matches text.
// Multiple intents may fire; ties are the handler's concern.
func (c *Classifier) Classify(text string) Set {
	lower := strings.ToLower(text)
	out := make(Set)
	if matchAny(lower, c.triggers.Offer) {
		out[Offer] = true
	}
	if matchAny(lower, c.triggers.Demand) {
		out[Demand] = true
	}
	if matchAny(lower, c.triggers.Art) {
		out[Art] = true
	}
	if matchAny(lower, c.triggers.Search) {
		out[Search] = true
	}
	if matchAny(lower, c.triggers.Voice) {
		out[Voice] = true
	}
	return out
}

func matchAny(lower string, triggers []string) bool {
	for _, t := range triggers {
		if t != "" && strings.Contains(lower, strings.ToLower(t)) {
			return true
		}
	}
	return false
}
