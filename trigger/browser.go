package trigger

import (
	"context"

	"github.com/hazyhaar/formfill/browser"
	"github.com/hazyhaar/formfill/dom"
)

// BrowserOpener opens pages in tabs of m. The tab is closed by the returned
// function.
func BrowserOpener(m *browser.Manager) Opener {
	return func(ctx context.Context, pageURL string) (dom.Document, func() error, error) {
		tab, err := m.OpenTab(ctx, pageURL)
		if err != nil {
			return nil, nil, err
		}
		return tab.Document(ctx), tab.Close, nil
	}
}
