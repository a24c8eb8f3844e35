package automation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/CarsonReik/Compr-sub000/internal/domain/platform"
)

// Page is one isolated browser context bound to a single job. All methods
// respect the caller's context and the engine's default action timeout,
// whichever is tighter.
type Page struct {
	ctx            context.Context
	mode           Mode
	defaultTimeout time.Duration
	logger         *zap.Logger
}

// Mode returns the execution mode the page was opened with
func (p *Page) Mode() Mode {
	return p.mode
}

// run executes chromedp actions against the page, bounded by timeout and
// cancelled together with the caller's context
func (p *Page) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if timeout <= 0 {
		timeout = p.defaultTimeout
	}
	if deadline, ok := ctx.Deadline(); ok {
		if until := time.Until(deadline); until < timeout {
			timeout = until
		}
	}

	runCtx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

// Navigate loads the URL and waits for the navigation to commit
func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := p.run(ctx, 0, chromedp.Navigate(url)); err != nil {
		return classifyPageError(err, fmt.Sprintf("navigate to %s", url))
	}
	return nil
}

// CurrentURL returns the page's current location
func (p *Page) CurrentURL(ctx context.Context) (string, error) {
	var loc string
	if err := p.run(ctx, 0, chromedp.Location(&loc)); err != nil {
		return "", classifyPageError(err, "read location")
	}
	return loc, nil
}

// Exists reports whether the selector matches right now, without waiting
func (p *Page) Exists(ctx context.Context, selector string) (bool, error) {
	var found bool
	expr := fmt.Sprintf("document.querySelector(%s) !== null", jsString(selector))
	if err := p.run(ctx, 0, chromedp.Evaluate(expr, &found)); err != nil {
		return false, classifyPageError(err, "probe "+selector)
	}
	return found, nil
}

// Text returns the trimmed text content of the first match, or empty when
// nothing matches. Like Exists, it never waits.
func (p *Page) Text(ctx context.Context, selector string) (string, error) {
	var text string
	expr := fmt.Sprintf(
		"(() => { const el = document.querySelector(%s); return el ? el.textContent.trim() : ''; })()",
		jsString(selector))
	if err := p.run(ctx, 0, chromedp.Evaluate(expr, &text)); err != nil {
		return "", classifyPageError(err, "read text of "+selector)
	}
	return text, nil
}

// Eval evaluates the expression in page context, awaiting promises, and
// unmarshals the result into out when out is non-nil
func (p *Page) Eval(ctx context.Context, expr string, out any) error {
	action := chromedp.Evaluate(expr, out, func(params *runtime.EvaluateParams) *runtime.EvaluateParams {
		return params.WithAwaitPromise(true)
	})
	if err := p.run(ctx, 0, action); err != nil {
		return classifyPageError(err, "evaluate expression")
	}
	return nil
}

// WaitForElement resolves as soon as the selector matches. An element
// already present returns immediately; otherwise a MutationObserver watches
// the document, so detection is event-driven rather than polled. Timeout
// yields a classified element_not_found failure.
func (p *Page) WaitForElement(ctx context.Context, selector string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = p.defaultTimeout
	}

	var appeared bool
	err := p.run(ctx, timeout+time.Second,
		chromedp.Evaluate(waitForElementScript(selector, timeout), &appeared,
			func(params *runtime.EvaluateParams) *runtime.EvaluateParams {
				return params.WithAwaitPromise(true)
			}))
	if err != nil {
		if isDeadline(err) || strings.Contains(err.Error(), "wait timed out") {
			return platform.NewElementNotFound(selector, err)
		}
		return classifyPageError(err, "wait for "+selector)
	}
	if !appeared {
		return platform.NewElementNotFound(selector, nil)
	}
	return nil
}

// waitForElementScript builds the observer promise for one selector. The
// script resolves true on a match and rejects on its own timer, which fires
// just inside the Go-side deadline.
func waitForElementScript(selector string, timeout time.Duration) string {
	sel := jsString(selector)
	ms := timeout.Milliseconds()
	return fmt.Sprintf(`new Promise((resolve, reject) => {
	if (document.querySelector(%[1]s)) { resolve(true); return; }
	const observer = new MutationObserver(() => {
		if (document.querySelector(%[1]s)) {
			observer.disconnect();
			clearTimeout(timer);
			resolve(true);
		}
	});
	const timer = setTimeout(() => {
		observer.disconnect();
		reject(new Error('wait timed out'));
	}, %[2]d);
	observer.observe(document.documentElement, { childList: true, subtree: true, attributes: true });
})`, sel, ms)
}

// classifyPageError maps transport and deadline problems onto the failure
// taxonomy so callers never see raw chromedp errors
func classifyPageError(err error, operation string) error {
	if err == nil {
		return nil
	}
	if isDeadline(err) {
		return platform.NewNetworkError(operation+" timed out", err)
	}
	return platform.NewNetworkError(operation+" failed", err)
}

// isDeadline reports whether err stems from a context deadline or cancellation
func isDeadline(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
		strings.Contains(err.Error(), context.DeadlineExceeded.Error())
}

// jsString renders s as a JavaScript string literal
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// Ensure Page implements the domain port
var _ platform.Page = (*Page)(nil)
