// Package interact implements element-ref-addressed page interactions —
// click, focus, type, key, select, scroll, and cookie CRUD — on top of the
// CDP methods named in the wire-protocol surface (DOM.resolveNode,
// DOM.getBoxModel, DOM.focus, Input.dispatchMouseEvent,
// Input.dispatchKeyEvent, Network.{getCookies,setCookie,clearBrowserCookies}).
// Generalizes the teacher's internal/daemon/handlers_interaction.go, which
// addresses elements by CSS selector via Runtime.evaluate, to the element
// refs the Element Ref Registry issues, resolving a ref to a stable CDP
// backend node id instead of re-querying the DOM by selector on every call.
package interact

import (
	"context"
	"encoding/json"

	"github.com/hazeltoft/browsercore/internal/errs"
)

// Sender is the narrow slice of *cdp.Client used to issue commands.
type Sender interface {
	SendToSession(ctx context.Context, sessionID, method string, params interface{}) (json.RawMessage, error)
}

// RefResolver is the narrow slice of *refs.Registry used to turn a ref
// into the backend node id CDP commands address.
type RefResolver interface {
	LookupRef(tabID, ref string) (int64, bool)
}

// Interactor drives element interactions against a single CDP session.
type Interactor struct {
	sender Sender
	refs   RefResolver
}

// New builds an Interactor over the given sender and ref resolver.
func New(sender Sender, refs RefResolver) *Interactor {
	return &Interactor{sender: sender, refs: refs}
}

func (it *Interactor) backendNodeID(tabID, ref string) (int64, error) {
	id, ok := it.refs.LookupRef(tabID, ref)
	if !ok {
		return 0, errs.New(errs.ElementNotFound, "unknown ref %q", ref)
	}
	return id, nil
}

// resolveObjectID resolves a backend node id to a Runtime remote object id,
// needed by operations that evaluate JavaScript against the element
// (Select, element-mode Scroll).
func (it *Interactor) resolveObjectID(ctx context.Context, sessionID string, backendNodeID int64) (string, error) {
	raw, err := it.sender.SendToSession(ctx, sessionID, "DOM.resolveNode", map[string]any{
		"backendNodeId": backendNodeID,
	})
	if err != nil {
		return "", errs.Wrap(errs.CDPError, err, "resolve node failed")
	}

	var resp struct {
		Object struct {
			ObjectID string `json:"objectId"`
		} `json:"object"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", errs.Wrap(errs.CDPError, err, "parse resolveNode response")
	}
	if resp.Object.ObjectID == "" {
		return "", errs.New(errs.ElementNotFound, "element could not be resolved")
	}
	return resp.Object.ObjectID, nil
}

// centerPoint resolves a backend node id's box model and returns the
// coordinates of its content box center, for mouse dispatch.
func (it *Interactor) centerPoint(ctx context.Context, sessionID string, backendNodeID int64) (x, y float64, err error) {
	raw, err := it.sender.SendToSession(ctx, sessionID, "DOM.getBoxModel", map[string]any{
		"backendNodeId": backendNodeID,
	})
	if err != nil {
		return 0, 0, errs.Wrap(errs.CDPError, err, "get box model failed")
	}

	var resp struct {
		Model struct {
			Content []float64 `json:"content"`
		} `json:"model"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return 0, 0, errs.Wrap(errs.CDPError, err, "parse getBoxModel response")
	}
	if len(resp.Model.Content) < 8 {
		return 0, 0, errs.New(errs.ElementNotFound, "element has no box model (not rendered)")
	}

	quad := resp.Model.Content
	x = (quad[0] + quad[2] + quad[4] + quad[6]) / 4
	y = (quad[1] + quad[3] + quad[5] + quad[7]) / 4
	return x, y, nil
}
