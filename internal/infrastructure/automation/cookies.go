package automation

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"

	"github.com/CarsonReik/Compr-sub000/internal/domain/platform"
)

// SetCookies installs the session cookies into the page's cookie jar.
// Called before the first navigation so the platform sees an authenticated
// browser from the start.
func (p *Page) SetCookies(ctx context.Context, cookies []platform.Cookie) error {
	err := p.run(ctx, 0, chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range cookies {
			params := network.SetCookie(c.Name, c.Value).
				WithDomain(c.Domain).
				WithPath(c.Path).
				WithHTTPOnly(c.HTTPOnly).
				WithSecure(c.Secure)
			if !c.Expires.IsZero() {
				expires := cdp.TimeSinceEpoch(c.Expires)
				params = params.WithExpires(&expires)
			}
			if c.SameSite != "" {
				params = params.WithSameSite(network.CookieSameSite(c.SameSite))
			}
			if err := params.Do(ctx); err != nil {
				return err
			}
		}
		return nil
	}))
	if err != nil {
		return classifyPageError(err, "install cookies")
	}
	return nil
}

// Cookies harvests the page's full cookie jar, typically right after a
// successful login
func (p *Page) Cookies(ctx context.Context) ([]platform.Cookie, error) {
	var raw []*network.Cookie
	err := p.run(ctx, 0, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		raw, err = storage.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, classifyPageError(err, "read cookies")
	}

	cookies := make([]platform.Cookie, 0, len(raw))
	for _, c := range raw {
		cookies = append(cookies, fromNetworkCookie(c))
	}
	return cookies, nil
}

// fromNetworkCookie converts a devtools cookie into the domain shape
func fromNetworkCookie(c *network.Cookie) platform.Cookie {
	cookie := platform.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		HTTPOnly: c.HTTPOnly,
		Secure:   c.Secure,
		SameSite: string(c.SameSite),
	}
	if c.Expires > 0 {
		cookie.Expires = time.Unix(int64(c.Expires), 0).UTC()
	}
	return cookie
}
