package corpus

import "strings"

// knownWorks maps normalized titles of widely cited works to their
// canonical authors, so extraction can attribute a bare title like
// "Republic 514a" without a loaded document.
var knownWorks = map[string]string{
	"republic":   "Plato",
	"symposium":  "Plato",
	"phaedo":     "Plato",
	"phaedrus":   "Plato",
	"apology":    "Plato",
	"crito":      "Plato",
	"meno":       "Plato",
	"gorgias":    "Plato",
	"timaeus":    "Plato",
	"theaetetus": "Plato",
	"laws":       "Plato",

	"nicomachean ethics": "Aristotle",
	"politics":           "Aristotle",
	"metaphysics":        "Aristotle",
	"poetics":            "Aristotle",
	"rhetoric":           "Aristotle",
	"physics":            "Aristotle",
	"de anima":           "Aristotle",

	"meditations": "Marcus Aurelius",
	"enchiridion": "Epictetus",
	"discourses":  "Epictetus",

	"on the shortness of life": "Seneca",
	"letters to lucilius":      "Seneca",

	"confessions": "Augustine",
	"city of god": "Augustine",

	"summa theologica": "Thomas Aquinas",

	"iliad":   "Homer",
	"odyssey": "Homer",
	"aeneid":  "Virgil",

	"histories":                        "Herodotus",
	"history of the peloponnesian war": "Thucydides",
	"elements":                         "Euclid",
	"on the nature of things":          "Lucretius",

	"critique of pure reason": "Immanuel Kant",
	"leviathan":               "Thomas Hobbes",
}

// KnownAuthor reports the canonical author of a well-known work title.
func KnownAuthor(title string) (string, bool) {
	author, ok := knownWorks[normalizeTitle(title)]
	return author, ok
}

// normalizeTitle lowercases, collapses whitespace, and drops a leading
// article for lookup.
func normalizeTitle(s string) string {
	s = strings.Join(strings.Fields(strings.ToLower(s)), " ")
	s = strings.TrimPrefix(s, "the ")
	return s
}
