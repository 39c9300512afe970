package extract

import (
	"strings"

	"adruby-studio/core"
)

// headlineFontSize is the salience threshold: a text layer strictly
// larger than this reads as a headline even without a matching name.
const headlineFontSize = 40.0

// Defaults used when no candidate layer exists. The description and
// thumbnail defaults are the empty string.
const (
	DefaultHeadline     = "Headline"
	DefaultCallToAction = "Mehr erfahren"
)

// AdCopy derives the library card fields from a document. It never
// mutates the document and does no I/O. Every field degrades
// independently to its default, so the result is always complete even
// for a blank canvas.
//
// Each field is a first-match scan in document order over its own
// predicate. For the headline this means an earlier layer matching only
// the font-size condition wins over a later layer matching by name; the
// name check is only ordered first within a single layer's predicate.
// That ordering sensitivity is long-standing observed behavior and is
// kept as is.
func AdCopy(doc *core.Document) core.AdCopy {
	out := core.AdCopy{
		Headline:     DefaultHeadline,
		CallToAction: DefaultCallToAction,
	}

	var headlineID string
	headlineFound := false
	for _, l := range doc.Layers {
		if isHeadline(l) {
			out.Headline = l.Text
			headlineID = l.ID
			headlineFound = true
			break
		}
	}

	for _, l := range doc.Layers {
		if isDescription(l, headlineFound, headlineID) {
			out.Description = l.Text
			break
		}
	}

	for _, l := range doc.Layers {
		if isCallToAction(l) {
			out.CallToAction = l.Text
			break
		}
	}

	for _, l := range doc.Layers {
		if isThumbnail(l) {
			out.Thumbnail = l.Source
			break
		}
	}

	return out
}

// isHeadline matches a text layer named like a headline or sized above
// the salience threshold. An unknown font size never matches by size.
func isHeadline(l core.Layer) bool {
	if l.Kind != core.LayerText {
		return false
	}
	if strings.Contains(strings.ToLower(l.Name), "headline") {
		return true
	}
	return l.FontSize != nil && *l.FontSize > headlineFontSize
}

// isDescription matches the first text layer that is not the headline.
// When no headline was found, any text layer qualifies.
func isDescription(l core.Layer, headlineFound bool, headlineID string) bool {
	if l.Kind != core.LayerText {
		return false
	}
	return !headlineFound || l.ID != headlineID
}

// isCallToAction matches the cta variant, or a text layer whose name
// marks it as the call-to-action.
func isCallToAction(l core.Layer) bool {
	if l.Kind == core.LayerCTA {
		return true
	}
	return l.Kind == core.LayerText && strings.Contains(strings.ToLower(l.Name), "cta")
}

// isThumbnail matches an image layer depicting the product or the
// background; generic images do not qualify.
func isThumbnail(l core.Layer) bool {
	return l.Kind == core.LayerImage && (l.Role == core.RoleProduct || l.Role == core.RoleBackground)
}
