package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hazeltoft/browsercore/internal/refs"
)

// Sender is the subset of *cdp.Client the engine needs: a session-scoped
// command send. Kept as an interface so tests can fake CDP responses without
// a real client or browser.
type Sender interface {
	SendToSession(ctx context.Context, sessionID, method string, params interface{}) (json.RawMessage, error)
}

// Node is one entry in a produced snapshot: the caller-facing view combining
// ref-registry metadata with depth and role information.
type Node struct {
	Ref           string `json:"ref"`
	BackendNodeID int64  `json:"backendNodeId"`
	Role          string `json:"role"`
	Name          string `json:"name"`
	Value         string `json:"value"`
	Depth         int    `json:"depth"`
	Focused       bool   `json:"focused"`
	Disabled      bool   `json:"disabled"`
}

// Snapshot is one captured, filtered, ref-assigned view of a tab's
// accessibility tree.
type Snapshot struct {
	TabID     string
	URL       string
	Title     string
	Nodes     []Node
	Truncated bool
}

// TakeOptions controls filtering and the token budget for one capture.
type TakeOptions struct {
	Profile   Profile
	MaxTokens int
	Format    Format
}

// Engine owns the ref Registry and the last-captured snapshot per tab.
type Engine struct {
	registry *refs.Registry

	mu   sync.Mutex
	last map[string]Snapshot
}

// NewEngine constructs an Engine backed by registry.
func NewEngine(registry *refs.Registry) *Engine {
	return &Engine{registry: registry, last: make(map[string]Snapshot)}
}

// TakeSnapshot captures, filters, and ref-assigns the accessibility tree for
// tabID via sessionID, storing the result as the new last snapshot for the
// tab regardless of how the caller intends to use it.
func (e *Engine) TakeSnapshot(ctx context.Context, sender Sender, sessionID, tabID, url, title string, opts TakeOptions) (Snapshot, error) {
	raw, err := sender.SendToSession(ctx, sessionID, "Accessibility.getFullAXTree", map[string]any{})
	if err != nil {
		return Snapshot{}, fmt.Errorf("getFullAXTree: %w", err)
	}

	var result axTreeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return Snapshot{}, fmt.Errorf("decode AXTree: %w", err)
	}

	internalNodes := buildInternalNodes(result.Nodes)
	internalNodes = filterBaseline(internalNodes)
	internalNodes = filterProfile(internalNodes, opts.Profile)

	regNodes := make([]refs.Node, len(internalNodes))
	for i, n := range internalNodes {
		regNodes[i] = refs.Node{
			BackendNodeID: n.BackendNodeID,
			Role:          n.Role,
			Name:          n.Name,
			Value:         n.Value,
			Depth:         n.Depth,
			Focused:       n.Focused,
			Disabled:      n.Disabled,
		}
	}
	assigned := e.registry.AssignRefs(tabID, regNodes)

	nodes := make([]Node, len(assigned))
	for i, a := range assigned {
		nodes[i] = Node{
			Ref:           a.Ref,
			BackendNodeID: a.BackendNodeID,
			Role:          a.Role,
			Name:          a.Name,
			Value:         a.Value,
			Depth:         a.Depth,
			Focused:       a.Focused,
			Disabled:      a.Disabled,
		}
	}

	snap := Snapshot{TabID: tabID, URL: url, Title: title}
	snap.Nodes, snap.Truncated = applyTokenCap(nodes, opts.MaxTokens, opts.Format)

	e.mu.Lock()
	e.last[tabID] = snap
	e.mu.Unlock()

	return snap, nil
}

// LastSnapshot returns the most recently stored snapshot for tabID.
func (e *Engine) LastSnapshot(tabID string) (Snapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	snap, ok := e.last[tabID]
	return snap, ok
}

// ClearTab drops any stored snapshot and ref mapping for tabID.
func (e *Engine) ClearTab(tabID string) {
	e.mu.Lock()
	delete(e.last, tabID)
	e.mu.Unlock()
	e.registry.ClearTab(tabID)
}
