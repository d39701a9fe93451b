package watcher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hazeltoft/browsercore/internal/browser"
	"github.com/hazeltoft/browsercore/internal/cdp"
)

// Supervisor is the subset of *browser.Supervisor a PageTargetResolver
// needs: the live target list and the currently active tab.
type Supervisor interface {
	Targets(ctx context.Context) ([]browser.Target, error)
	GetStatus() browser.Status
}

// PageTargetResolver implements Resolver against a real Supervisor and CDP
// Client: prefer the current tab if it still exists and is a page,
// otherwise the first page target, otherwise create one. Always attaches,
// enables the Page domain, and navigates before returning.
type PageTargetResolver struct {
	supervisor Supervisor
	client     *cdp.Client
}

// NewPageTargetResolver constructs a PageTargetResolver.
func NewPageTargetResolver(supervisor Supervisor, client *cdp.Client) *PageTargetResolver {
	return &PageTargetResolver{supervisor: supervisor, client: client}
}

// ResolvePage implements Resolver.
func (r *PageTargetResolver) ResolvePage(ctx context.Context, url string) (PageContext, error) {
	targets, err := r.supervisor.Targets(ctx)
	if err != nil {
		return PageContext{}, fmt.Errorf("list targets: %w", err)
	}

	status := r.supervisor.GetStatus()
	target := findTarget(targets, func(t browser.Target) bool {
		return t.ID == status.ActiveTabID && t.Type == "page"
	})
	if target == nil {
		target = findTarget(targets, func(t browser.Target) bool { return t.Type == "page" })
	}
	if target == nil {
		created, err := r.createTarget(ctx)
		if err != nil {
			return PageContext{}, err
		}
		target = created
	}

	sessionID, err := r.attach(ctx, target.ID)
	if err != nil {
		return PageContext{}, err
	}

	if _, err := r.client.SendToSession(ctx, sessionID, "Page.enable", map[string]any{}); err != nil {
		return PageContext{}, fmt.Errorf("enable page domain: %w", err)
	}
	if url != "" {
		if _, err := r.client.SendToSession(ctx, sessionID, "Page.navigate", map[string]any{"url": url}); err != nil {
			return PageContext{}, fmt.Errorf("navigate: %w", err)
		}
	}

	return PageContext{SessionID: sessionID, TabID: target.ID, URL: target.URL, Title: target.Title}, nil
}

func findTarget(targets []browser.Target, match func(browser.Target) bool) *browser.Target {
	for i := range targets {
		if match(targets[i]) {
			return &targets[i]
		}
	}
	return nil
}

func (r *PageTargetResolver) createTarget(ctx context.Context) (*browser.Target, error) {
	raw, err := r.client.SendContext(ctx, "Target.createTarget", map[string]any{"url": "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("create target: %w", err)
	}
	var result struct {
		TargetID string `json:"targetId"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode created target: %w", err)
	}
	return &browser.Target{ID: result.TargetID, Type: "page"}, nil
}

func (r *PageTargetResolver) attach(ctx context.Context, targetID string) (string, error) {
	raw, err := r.client.SendContext(ctx, "Target.attachToTarget", map[string]any{
		"targetId": targetID,
		"flatten":  true,
	})
	if err != nil {
		return "", fmt.Errorf("attach to target: %w", err)
	}
	var result struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("decode attach result: %w", err)
	}
	return result.SessionID, nil
}
