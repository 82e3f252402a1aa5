package extract

import (
	"regexp"
	"strings"

	"github.com/scholiast/scholia/internal/model"
)

// Confidence priors per detection pattern. Classical section references
// are the strongest signal; allusion markers the weakest.
const (
	classicalPrior  = 0.9
	quotePrior      = 0.7
	authorWorkPrior = 0.6
	allusionPrior   = 0.5
)

var (
	// classicalRefPattern matches a capitalized work title followed by a
	// section locator: "Republic 514a", "Nicomachean Ethics 1094a1",
	// "Physics 184a10-184b5".
	classicalRefPattern = regexp.MustCompile(
		`\b([A-Z][a-z]+(?: [A-Z][a-z]+)*) (\d{1,4}[a-z]?\d*(?:\s*[-–]\s*\d{1,4}[a-z]?\d*)?)\b`)

	// authorBeforePattern finds "Author," immediately preceding a
	// classical reference, as in "Plato, Republic 514a".
	authorBeforePattern = regexp.MustCompile(`([A-Z][a-z]+(?: [A-Z][a-z]+)*),\s*$`)

	// quotePattern matches quoted spans long enough to be citations
	// rather than scare quotes.
	quotePattern = regexp.MustCompile(`["“]([^"”]{10,})["”]`)

	// attributionVerbs joins the verbs used in attribution phrases.
	attributionVerbs = `(?:argues|writes|notes|observes|claims|says|states|suggests|puts it|maintains|holds)`

	// authorWorkPattern matches "as Plato argues in (the) Republic" and
	// "according to Aristotle in the Nicomachean Ethics".
	authorWorkPattern = regexp.MustCompile(
		`\b(?:[Aa]s|[Aa]ccording to) ([A-Z][a-z]+)(?: ` + attributionVerbs + `)?,? in (?:the )?([A-Z][a-z]+(?: [A-Z][a-z]+)*)`)

	// possessiveWorkPattern matches "Plato's Republic".
	possessiveWorkPattern = regexp.MustCompile(
		`\b([A-Z][a-z]+)['’]s ((?:[A-Z][a-z]+)(?: [A-Z][a-z]+)*)`)

	// authorOnlyPattern matches attribution without a named work:
	// "as Seneca observes", "according to Epictetus".
	authorOnlyPattern = regexp.MustCompile(
		`\b(?:[Aa]s|[Aa]ccording to) ([A-Z][a-z]+)(?:,)? ` + attributionVerbs)

	// allusionPattern matches soft references to an author or school.
	allusionPattern = regexp.MustCompile(
		`\b(?:[Ee]choing|[Rr]ecalling|[Rr]eminiscent of|[Ii]n the (?:spirit|manner) of) ([A-Z][a-z]+(?: [A-Z][a-z]+)*)`)
)

// contextCues maps rhetorical roles to the phrases that signal them.
// Order matters: the first role with a cue in the surrounding window
// wins, and explanation is the default.
var contextCues = []struct {
	role model.RhetoricalContext
	cues []string
}{
	{model.ContextCounterargument, []string{"however", "yet ", "on the contrary", "against this", "critics", "objec"}},
	{model.ContextExample, []string{"for example", "for instance", "such as", "to illustrate"}},
	{model.ContextDefinition, []string{"is defined", "defines", " means ", "definition of", "that is,"}},
	{model.ContextArgument, []string{"because", "therefore", "argues", "since ", "thus ", "it follows"}},
}

// classifyContext inspects the text around a span and names the
// rhetorical role the citation plays there.
func classifyContext(text string, start int) model.RhetoricalContext {
	windowStart := start - 120
	if windowStart < 0 {
		windowStart = 0
	}
	end := start + 40
	if end > len(text) {
		end = len(text)
	}
	window := strings.ToLower(text[windowStart:end])

	for _, entry := range contextCues {
		for _, cue := range entry.cues {
			if strings.Contains(window, cue) {
				return entry.role
			}
		}
	}
	return model.ContextExplanation
}
