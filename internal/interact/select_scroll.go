package interact

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/hazeltoft/browsercore/internal/errs"
)

const selectFunction = `function(value) {
	if (this.tagName !== 'SELECT') return 'not_select';
	this.value = value;
	this.dispatchEvent(new Event('change', {bubbles: true}));
	return 'ok';
}`

// Select sets a <select> element's value by ref and fires a change event.
func (it *Interactor) Select(ctx context.Context, sessionID, tabID, ref, value string) error {
	backendID, err := it.backendNodeID(tabID, ref)
	if err != nil {
		return err
	}

	objectID, err := it.resolveObjectID(ctx, sessionID, backendID)
	if err != nil {
		return err
	}

	raw, err := it.sender.SendToSession(ctx, sessionID, "Runtime.callFunctionOn", map[string]any{
		"objectId":            objectID,
		"functionDeclaration": selectFunction,
		"arguments":           []map[string]any{{"value": value}},
		"returnByValue":       true,
	})
	if err != nil {
		return errs.Wrap(errs.CDPError, err, "select failed")
	}

	var resp struct {
		Result struct {
			Value string `json:"value"`
		} `json:"result"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return errs.Wrap(errs.CDPError, err, "parse select response")
	}

	switch resp.Result.Value {
	case "ok":
		return nil
	case "not_select":
		return errs.New(errs.ElementNotFound, "element %q is not a <select>", ref)
	default:
		return errs.New(errs.BrowserError, "unexpected select result %q", resp.Result.Value)
	}
}

// ScrollMode selects what Scroll targets.
type ScrollMode string

const (
	ScrollToElement ScrollMode = "element"
	ScrollToPosition ScrollMode = "to"
	ScrollByOffset   ScrollMode = "by"
)

const scrollIntoViewFunction = `function() {
	this.scrollIntoView({block: 'center', behavior: 'instant'});
	return true;
}`

// Scroll scrolls the page into view of ref (ScrollToElement), to an
// absolute position (ScrollToPosition), or by a relative offset
// (ScrollByOffset).
func (it *Interactor) Scroll(ctx context.Context, sessionID, tabID string, mode ScrollMode, ref string, x, y int) error {
	switch mode {
	case ScrollToElement:
		backendID, err := it.backendNodeID(tabID, ref)
		if err != nil {
			return err
		}
		objectID, err := it.resolveObjectID(ctx, sessionID, backendID)
		if err != nil {
			return err
		}
		_, err = it.sender.SendToSession(ctx, sessionID, "Runtime.callFunctionOn", map[string]any{
			"objectId":            objectID,
			"functionDeclaration": scrollIntoViewFunction,
			"returnByValue":       true,
		})
		if err != nil {
			return errs.Wrap(errs.CDPError, err, "scroll into view failed")
		}
		return nil

	case ScrollToPosition:
		return it.evaluateScroll(ctx, sessionID, "window.scrollTo", x, y)

	case ScrollByOffset:
		return it.evaluateScroll(ctx, sessionID, "window.scrollBy", x, y)

	default:
		return errs.New(errs.BrowserError, "invalid scroll mode %q", mode)
	}
}

func (it *Interactor) evaluateScroll(ctx context.Context, sessionID, fn string, x, y int) error {
	expr := fn + "({left: " + strconv.Itoa(x) + ", top: " + strconv.Itoa(y) + ", behavior: 'instant'})"
	_, err := it.sender.SendToSession(ctx, sessionID, "Runtime.evaluate", map[string]any{
		"expression":    expr,
		"returnByValue": true,
	})
	if err != nil {
		return errs.Wrap(errs.CDPError, err, "scroll failed")
	}
	return nil
}
