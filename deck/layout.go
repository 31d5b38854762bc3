// Package deck assembles the styled output deck from exported source decks.
package deck

import (
	pptx "github.com/gmfennema/tableau-power-point-stylizer"
)

// DefaultLayouts are the preferred template layouts, most preferred first.
var DefaultLayouts = []string{"Title Only", "Title and Content", "Blank"}

// ResolveLayout returns the first template layout whose name exactly matches
// a preference, consulting preferences in order. When nothing matches, the
// template's first layout is used. An empty preference list means
// DefaultLayouts. It returns nil only for a template without layouts.
func ResolveLayout(p *pptx.Presentation, prefs []string) *pptx.SlideLayout {
	layouts := p.GetSlideLayouts()
	if len(layouts) == 0 {
		return nil
	}
	if len(prefs) == 0 {
		prefs = DefaultLayouts
	}
	for _, name := range prefs {
		if l, err := p.GetLayoutByName(name); err == nil {
			return l
		}
	}
	return layouts[0]
}
