package interact

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hazeltoft/browsercore/internal/errs"
)

// Cookie mirrors a CDP Network.Cookie.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	Size     int     `json:"size,omitempty"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

// SetCookieInput is the caller-supplied form of a cookie to set. URL is
// required by CDP to determine the domain unless Domain is given explicitly.
type SetCookieInput struct {
	Name          string
	Value         string
	URL           string
	Domain        string
	Path          string
	Secure        bool
	HTTPOnly      bool
	SameSite      string
	MaxAgeSeconds int
}

// ListCookies retrieves all cookies visible to the session via
// Network.getCookies.
func (it *Interactor) ListCookies(ctx context.Context, sessionID string) ([]Cookie, error) {
	raw, err := it.sender.SendToSession(ctx, sessionID, "Network.getCookies", map[string]any{})
	if err != nil {
		return nil, errs.Wrap(errs.CDPError, err, "get cookies failed")
	}

	var resp struct {
		Cookies []Cookie `json:"cookies"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, errs.Wrap(errs.CDPError, err, "parse cookies response")
	}
	return resp.Cookies, nil
}

// SetCookie sets a cookie via Network.setCookie.
func (it *Interactor) SetCookie(ctx context.Context, sessionID string, in SetCookieInput) error {
	if in.Name == "" {
		return errs.New(errs.BrowserError, "cookie name is required")
	}

	params := map[string]any{
		"name":  in.Name,
		"value": in.Value,
	}
	if in.URL != "" {
		params["url"] = in.URL
	}
	if in.Domain != "" {
		params["domain"] = in.Domain
	}
	if in.Path != "" {
		params["path"] = in.Path
	}
	if in.Secure {
		params["secure"] = true
	}
	if in.HTTPOnly {
		params["httpOnly"] = true
	}
	if in.SameSite != "" {
		params["sameSite"] = in.SameSite
	}
	if in.MaxAgeSeconds > 0 {
		params["expires"] = float64(time.Now().Unix() + int64(in.MaxAgeSeconds))
	}

	raw, err := it.sender.SendToSession(ctx, sessionID, "Network.setCookie", params)
	if err != nil {
		return errs.Wrap(errs.CDPError, err, "set cookie failed")
	}

	var resp struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return errs.Wrap(errs.CDPError, err, "parse setCookie response")
	}
	if !resp.Success {
		return errs.New(errs.BrowserError, "browser rejected the cookie")
	}
	return nil
}

// DeleteCookie removes the cookie(s) matching name, optionally narrowed
// to domain when more than one cookie shares the name. Deleting a
// non-existent cookie is idempotent success.
func (it *Interactor) DeleteCookie(ctx context.Context, sessionID, name, domain string) error {
	cookies, err := it.ListCookies(ctx, sessionID)
	if err != nil {
		return err
	}

	var matches []Cookie
	for _, c := range cookies {
		if c.Name == name {
			matches = append(matches, c)
		}
	}
	if len(matches) == 0 {
		return nil
	}

	target := &matches[0]
	if len(matches) > 1 {
		if domain == "" {
			return errs.New(errs.BrowserError, "multiple cookies named %q found, specify a domain", name)
		}
		target = nil
		for i := range matches {
			if matches[i].Domain == domain {
				target = &matches[i]
				break
			}
		}
		if target == nil {
			return errs.New(errs.BrowserError, "no cookie named %q found with domain %q", name, domain)
		}
	}

	_, err = it.sender.SendToSession(ctx, sessionID, "Network.deleteCookies", map[string]any{
		"name":   target.Name,
		"domain": target.Domain,
	})
	if err != nil {
		return errs.Wrap(errs.CDPError, err, "delete cookie failed")
	}
	return nil
}

// ClearCookies removes every cookie in the browser via
// Network.clearBrowserCookies.
func (it *Interactor) ClearCookies(ctx context.Context, sessionID string) error {
	_, err := it.sender.SendToSession(ctx, sessionID, "Network.clearBrowserCookies", map[string]any{})
	if err != nil {
		return errs.Wrap(errs.CDPError, err, "clear cookies failed")
	}
	return nil
}
