package marketplace

import (
	"context"
	"sync"
	"time"

	"github.com/CarsonReik/Compr-sub000/internal/domain/platform"
)

// fakePage is a scripted Page for adapter tests. Selector visibility, element
// text and URL transitions are primed up front; every interaction is recorded
// so tests can assert on what the adapter actually drove.
type fakePage struct {
	mu sync.Mutex

	url        string
	existing   map[string]bool
	texts      map[string]string
	evals      map[string]string
	urlOnClick map[string]string
	errOn      map[string]error

	cookies     []platform.Cookie
	navigations []string
	waited      []string
	clicks      []string
	typed       map[string]string
	values      map[string]string
	uploads     []string
}

func newFakePage() *fakePage {
	return &fakePage{
		existing:   map[string]bool{},
		texts:      map[string]string{},
		evals:      map[string]string{},
		urlOnClick: map[string]string{},
		errOn:      map[string]error{},
		typed:      map[string]string{},
		values:     map[string]string{},
	}
}

// fail forces the next and every call of op on target to return err.
// Targets are selectors, URLs, or filenames depending on the operation.
func (p *fakePage) fail(op, target string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errOn[op+" "+target] = err
}

func (p *fakePage) forced(op, target string) error {
	return p.errOn[op+" "+target]
}

func (p *fakePage) clickCount(selector string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.clicks {
		if c == selector {
			n++
		}
	}
	return n
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigations = append(p.navigations, url)
	if err := p.forced("navigate", url); err != nil {
		return err
	}
	p.url = url
	return nil
}

func (p *fakePage) CurrentURL(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url, nil
}

func (p *fakePage) WaitForElement(ctx context.Context, selector string, timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.waited = append(p.waited, selector)
	return p.forced("wait", selector)
}

func (p *fakePage) Exists(ctx context.Context, selector string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.forced("exists", selector); err != nil {
		return false, err
	}
	return p.existing[selector], nil
}

func (p *fakePage) Text(ctx context.Context, selector string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.forced("text", selector); err != nil {
		return "", err
	}
	return p.texts[selector], nil
}

func (p *fakePage) Click(ctx context.Context, selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clicks = append(p.clicks, selector)
	if err := p.forced("click", selector); err != nil {
		return err
	}
	if next, ok := p.urlOnClick[selector]; ok {
		p.url = next
	}
	return nil
}

func (p *fakePage) TypeText(ctx context.Context, selector, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.forced("type", selector); err != nil {
		return err
	}
	p.typed[selector] = text
	return nil
}

func (p *fakePage) SetValue(ctx context.Context, selector, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.forced("setvalue", selector); err != nil {
		return err
	}
	p.values[selector] = value
	return nil
}

func (p *fakePage) UploadFile(ctx context.Context, selector, filename, contentType string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.uploads = append(p.uploads, filename)
	return p.forced("upload", filename)
}

func (p *fakePage) Eval(ctx context.Context, expr string, out any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.forced("eval", expr); err != nil {
		return err
	}
	if s, ok := out.(*string); ok {
		*s = p.evals[expr]
	}
	return nil
}

func (p *fakePage) SetCookies(ctx context.Context, cookies []platform.Cookie) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.forced("setcookies", ""); err != nil {
		return err
	}
	p.cookies = append(p.cookies, cookies...)
	return nil
}

func (p *fakePage) Cookies(ctx context.Context) ([]platform.Cookie, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]platform.Cookie, len(p.cookies))
	copy(out, p.cookies)
	return out, nil
}

func (p *fakePage) Hesitate(ctx context.Context, min, max time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.forced("hesitate", "")
}

func (p *fakePage) Settle(ctx context.Context, d time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.forced("settle", "")
}

var _ platform.Page = (*fakePage)(nil)
