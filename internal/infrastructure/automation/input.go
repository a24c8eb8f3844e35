package automation

import (
	"context"
	"encoding/base64"
	"fmt"
	"math/rand"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/CarsonReik/Compr-sub000/internal/domain/platform"
)

// Inter-key cadence for interactive typing. Real typists land between these
// bounds; anything tighter trips bot heuristics on the picky platforms.
const (
	minKeyDelay = 45 * time.Millisecond
	maxKeyDelay = 140 * time.Millisecond
)

// Click scrolls the element into view and clicks it
func (p *Page) Click(ctx context.Context, selector string) error {
	err := p.run(ctx, 0,
		chromedp.ScrollIntoView(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	)
	if err != nil {
		if isDeadline(err) {
			return platform.NewElementNotFound(selector, err)
		}
		return classifyPageError(err, "click "+selector)
	}
	return nil
}

// TypeText fills the element. Interactive pages type keystroke by keystroke
// with a randomized cadence; background pages set the value in one step and
// fire the input and change events the page's framework listens for. Both
// paths produce the same end state.
func (p *Page) TypeText(ctx context.Context, selector, text string) error {
	if p.mode == ModeInteractive {
		return p.typeInteractive(ctx, selector, text)
	}
	return p.setValueDirect(ctx, selector, text)
}

// typeInteractive focuses the field and sends individual key events
func (p *Page) typeInteractive(ctx context.Context, selector, text string) error {
	err := p.run(ctx, 0,
		chromedp.ScrollIntoView(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	)
	if err != nil {
		if isDeadline(err) {
			return platform.NewElementNotFound(selector, err)
		}
		return classifyPageError(err, "focus "+selector)
	}

	for _, r := range text {
		if err := p.run(ctx, 0, chromedp.KeyEvent(string(r))); err != nil {
			return classifyPageError(err, "type into "+selector)
		}
		if err := sleepCtx(ctx, randomDelay(minKeyDelay, maxKeyDelay)); err != nil {
			return err
		}
	}
	return nil
}

// setValueDirect assigns the value through the element's native setter so
// framework-controlled inputs observe the change, then dispatches the
// events a keystroke would have produced
func (p *Page) setValueDirect(ctx context.Context, selector, text string) error {
	var ok bool
	if err := p.run(ctx, 0, chromedp.Evaluate(setValueScript(selector, text), &ok)); err != nil {
		return classifyPageError(err, "fill "+selector)
	}
	if !ok {
		return platform.NewElementNotFound(selector, nil)
	}
	return nil
}

// SetValue sets a form control's value directly in both modes. Used for
// select elements and other controls where keystrokes make no sense.
func (p *Page) SetValue(ctx context.Context, selector, value string) error {
	return p.setValueDirect(ctx, selector, value)
}

// UploadFile injects the bytes into a file input as if the user had picked
// the file, without touching disk. The input receives exactly this file;
// platforms that accumulate photos track earlier uploads on their side.
func (p *Page) UploadFile(ctx context.Context, selector, filename, contentType string, data []byte) error {
	if len(data) == 0 {
		return platform.NewUploadFailure("empty file: "+filename, nil)
	}

	var ok bool
	script := uploadFileScript(selector, filename, contentType, base64.StdEncoding.EncodeToString(data))
	if err := p.run(ctx, 2*p.defaultTimeout, chromedp.Evaluate(script, &ok)); err != nil {
		return platform.NewUploadFailure("inject file "+filename, err)
	}
	if !ok {
		return platform.NewElementNotFound(selector, nil)
	}
	return nil
}

// Hesitate pauses for a random duration in the given range on interactive
// pages. Background pages skip humanization pauses entirely.
func (p *Page) Hesitate(ctx context.Context, min, max time.Duration) error {
	if p.mode != ModeInteractive {
		return nil
	}
	return sleepCtx(ctx, randomDelay(min, max))
}

// Settle pauses for the full duration in every mode. Meant for waits the
// platform requires to register state, which skipping would break.
func (p *Page) Settle(ctx context.Context, d time.Duration) error {
	return sleepCtx(ctx, d)
}

// setValueScript assigns value via the native property setter and fires
// input and change
func setValueScript(selector, value string) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (!el) return false;
	const proto = el.tagName === 'TEXTAREA' ? window.HTMLTextAreaElement.prototype :
		el.tagName === 'SELECT' ? window.HTMLSelectElement.prototype : window.HTMLInputElement.prototype;
	const desc = Object.getOwnPropertyDescriptor(proto, 'value');
	if (desc && desc.set) { desc.set.call(el, %s); } else { el.value = %s; }
	el.dispatchEvent(new Event('input', { bubbles: true }));
	el.dispatchEvent(new Event('change', { bubbles: true }));
	return true;
})()`, jsString(selector), jsString(value), jsString(value))
}

// uploadFileScript decodes the payload in page context, wraps it in a File
// and assigns it to the input through a DataTransfer
func uploadFileScript(selector, filename, contentType, b64 string) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (!el) return false;
	const bin = atob(%s);
	const bytes = new Uint8Array(bin.length);
	for (let i = 0; i < bin.length; i++) bytes[i] = bin.charCodeAt(i);
	const file = new File([bytes], %s, { type: %s });
	const dt = new DataTransfer();
	dt.items.add(file);
	el.files = dt.files;
	el.dispatchEvent(new Event('input', { bubbles: true }));
	el.dispatchEvent(new Event('change', { bubbles: true }));
	return true;
})()`, jsString(selector), jsString(b64), jsString(filename), jsString(contentType))
}

// randomDelay picks a uniform duration in [min, max]
func randomDelay(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

// sleepCtx sleeps for d or until the context ends
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
