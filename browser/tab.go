package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Tab is a page opened on a URL, ready to be filled.
type Tab struct {
	Page    *rod.Page
	PageURL string
	mgr     *Manager
}

// OpenTab creates a tab, applies stealth and resource blocking, navigates
// to pageURL and waits for the load event.
func (m *Manager) OpenTab(ctx context.Context, pageURL string) (*Tab, error) {
	b, err := m.Browser(ctx)
	if err != nil {
		return nil, err
	}

	var page *rod.Page
	if m.cfg.Plain {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	} else {
		page, err = stealth.Page(b)
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	if len(m.cfg.ResourceBlocking) > 0 {
		applyResourceBlocking(page, m.cfg.ResourceBlocking)
	}

	navCtx, cancel := context.WithTimeout(ctx, m.cfg.NavigateTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		page.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		m.cfg.Logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}

	return &Tab{Page: page, PageURL: pageURL, mgr: m}, nil
}

// Document wraps the tab's main frame. ctx bounds the lifetime of the
// mutation listener.
func (t *Tab) Document(ctx context.Context) *Document {
	return newDocument(ctx, t.Page, t.mgr.cfg.Logger)
}

// Close closes the tab.
func (t *Tab) Close() error {
	if t.Page != nil {
		return t.Page.Close()
	}
	return nil
}
