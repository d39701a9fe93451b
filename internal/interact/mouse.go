package interact

import (
	"context"

	"github.com/hazeltoft/browsercore/internal/errs"
)

// Click resolves ref to a backend node, reads its box model, and dispatches
// a left-button mousePressed/mouseReleased pair at its content-box center.
func (it *Interactor) Click(ctx context.Context, sessionID, tabID, ref string) error {
	backendID, err := it.backendNodeID(tabID, ref)
	if err != nil {
		return err
	}

	x, y, err := it.centerPoint(ctx, sessionID, backendID)
	if err != nil {
		return err
	}

	if err := it.dispatchMouse(ctx, sessionID, "mousePressed", x, y); err != nil {
		return err
	}
	return it.dispatchMouse(ctx, sessionID, "mouseReleased", x, y)
}

func (it *Interactor) dispatchMouse(ctx context.Context, sessionID, eventType string, x, y float64) error {
	_, err := it.sender.SendToSession(ctx, sessionID, "Input.dispatchMouseEvent", map[string]any{
		"type":       eventType,
		"x":          x,
		"y":          y,
		"button":     "left",
		"clickCount": 1,
	})
	if err != nil {
		return errs.Wrap(errs.CDPError, err, "dispatch mouse event failed")
	}
	return nil
}

// Focus resolves ref to a backend node and focuses it via DOM.focus.
func (it *Interactor) Focus(ctx context.Context, sessionID, tabID, ref string) error {
	backendID, err := it.backendNodeID(tabID, ref)
	if err != nil {
		return err
	}

	_, err = it.sender.SendToSession(ctx, sessionID, "DOM.focus", map[string]any{
		"backendNodeId": backendID,
	})
	if err != nil {
		return errs.Wrap(errs.CDPError, err, "focus failed")
	}
	return nil
}
