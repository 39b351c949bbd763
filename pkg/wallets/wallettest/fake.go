// Package wallettest provides recording fakes of playwright pages and
// locators for testing wallet automation without a browser.
package wallettest

import (
	"fmt"
	"strings"
	"sync"

	"github.com/playwright-community/playwright-go"
)

// Page is a fake playwright.Page. Only the methods used by the wallet
// automation are implemented; calling any other method panics through the nil
// embedded interface.
type Page struct {
	playwright.Page

	mu      sync.Mutex
	url     string
	closed  bool
	actions []string

	// Errors maps an action ("click testid=foo") to the error it returns.
	Errors map[string]error
	// Texts maps a locator key to its text content.
	Texts map[string]string
	// Visible maps a locator key to IsVisible's answer; default false.
	Visible map[string]bool
	// Counts maps a locator key to the number of elements All returns.
	Counts map[string]int

	// EvaluateFunc answers Evaluate when set.
	EvaluateFunc func(expression string, arg ...interface{}) (interface{}, error)
}

// NewPage returns a fake page currently at url.
func NewPage(url string) *Page {
	return &Page{
		url:     url,
		Errors:  map[string]error{},
		Texts:   map[string]string{},
		Visible: map[string]bool{},
		Counts:  map[string]int{},
	}
}

// Actions returns the recorded actions in order.
func (p *Page) Actions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.actions...)
}

// Did reports whether action was recorded.
func (p *Page) Did(action string) bool {
	for _, a := range p.Actions() {
		if a == action {
			return true
		}
	}
	return false
}

func (p *Page) record(action string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.actions = append(p.actions, action)
	return p.Errors[action]
}

func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

// SetURL changes the page URL as a navigation would.
func (p *Page) SetURL(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = url
}

func (p *Page) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Page) Close(options ...playwright.PageCloseOptions) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return p.record("close")
}

func (p *Page) Goto(url string, options ...playwright.PageGotoOptions) (playwright.Response, error) {
	p.SetURL(url)
	return nil, p.record("goto " + url)
}

func (p *Page) BringToFront() error {
	return p.record("front")
}

func (p *Page) Evaluate(expression string, arg ...interface{}) (interface{}, error) {
	if err := p.record("evaluate"); err != nil {
		return nil, err
	}
	if p.EvaluateFunc != nil {
		return p.EvaluateFunc(expression, arg...)
	}
	return nil, nil
}

func (p *Page) GetByTestId(testID interface{}) playwright.Locator {
	return p.locator(fmt.Sprintf("testid=%v", testID))
}

func (p *Page) Locator(selector string, options ...playwright.PageLocatorOptions) playwright.Locator {
	return p.locator("css=" + selector)
}

func (p *Page) GetByRole(role playwright.AriaRole, options ...playwright.PageGetByRoleOptions) playwright.Locator {
	key := "role=" + string(role)
	if len(options) > 0 && options[0].Name != nil {
		key += fmt.Sprintf("[%v]", options[0].Name)
	}
	return p.locator(key)
}

func (p *Page) GetByText(text interface{}, options ...playwright.PageGetByTextOptions) playwright.Locator {
	return p.locator(fmt.Sprintf("text=%v", text))
}

func (p *Page) locator(key string) *Locator {
	return &Locator{page: p, Key: key}
}

// pwLocator renames the embedded interface so it does not clash with the
// Locator method.
type pwLocator = playwright.Locator

// Locator is a fake playwright.Locator bound to a Page.
type Locator struct {
	pwLocator

	page *Page
	Key  string
}

func (l *Locator) child(suffix string) *Locator {
	return &Locator{page: l.page, Key: l.Key + " >> " + suffix}
}

func (l *Locator) WaitFor(options ...playwright.LocatorWaitForOptions) error {
	return l.page.record("wait " + l.Key)
}

func (l *Locator) Click(options ...playwright.LocatorClickOptions) error {
	return l.page.record("click " + l.Key)
}

func (l *Locator) Fill(value string, options ...playwright.LocatorFillOptions) error {
	return l.page.record("fill " + l.Key + "=" + value)
}

func (l *Locator) Press(key string, options ...playwright.LocatorPressOptions) error {
	return l.page.record("press " + l.Key + " " + key)
}

func (l *Locator) IsEnabled(options ...playwright.LocatorIsEnabledOptions) (bool, error) {
	return true, l.page.record("enabled " + l.Key)
}

func (l *Locator) IsVisible(options ...playwright.LocatorIsVisibleOptions) (bool, error) {
	l.page.mu.Lock()
	defer l.page.mu.Unlock()
	return l.page.Visible[l.Key], nil
}

func (l *Locator) TextContent(options ...playwright.LocatorTextContentOptions) (string, error) {
	l.page.mu.Lock()
	defer l.page.mu.Unlock()
	return l.page.Texts[l.Key], nil
}

func (l *Locator) First() playwright.Locator { return l.child("first") }

func (l *Locator) Nth(index int) playwright.Locator { return l.child(fmt.Sprintf("nth=%d", index)) }

func (l *Locator) Locator(selector interface{}, options ...playwright.LocatorLocatorOptions) playwright.Locator {
	return l.child(fmt.Sprintf("css=%v", selector))
}

func (l *Locator) GetByRole(role playwright.AriaRole, options ...playwright.LocatorGetByRoleOptions) playwright.Locator {
	key := "role=" + string(role)
	if len(options) > 0 && options[0].Name != nil {
		key += fmt.Sprintf("[%v]", options[0].Name)
	}
	return l.child(key)
}

func (l *Locator) All() ([]playwright.Locator, error) {
	l.page.mu.Lock()
	n := l.page.Counts[l.Key]
	l.page.mu.Unlock()
	out := make([]playwright.Locator, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, l.child(fmt.Sprintf("nth=%d", i)))
	}
	return out, nil
}

// Filter returns the recorded actions that start with prefix.
func Filter(actions []string, prefix string) []string {
	var out []string
	for _, a := range actions {
		if strings.HasPrefix(a, prefix) {
			out = append(out, a)
		}
	}
	return out
}
