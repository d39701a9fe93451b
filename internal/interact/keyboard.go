package interact

import (
	"context"
	"strings"

	"github.com/hazeltoft/browsercore/internal/errs"
)

// KeyModifiers mirrors the modifier keys a dispatched key event may carry.
type KeyModifiers struct {
	Alt   bool
	Ctrl  bool
	Meta  bool
	Shift bool
}

func (m KeyModifiers) bitmap() int {
	modifiers := 0
	if m.Alt {
		modifiers |= 1
	}
	if m.Ctrl {
		modifiers |= 2
	}
	if m.Meta {
		modifiers |= 4
	}
	if m.Shift {
		modifiers |= 8
	}
	return modifiers
}

// Key dispatches a keyDown/keyUp pair for the named key (e.g. "Enter",
// "ArrowDown", or a single character) with the given modifiers.
func (it *Interactor) Key(ctx context.Context, sessionID, key string, mods KeyModifiers) error {
	info := keyInfoFor(key)
	modifiers := mods.bitmap()

	_, err := it.sender.SendToSession(ctx, sessionID, "Input.dispatchKeyEvent", map[string]any{
		"type":                  "keyDown",
		"key":                   info.key,
		"code":                  info.code,
		"windowsVirtualKeyCode": info.keyCode,
		"modifiers":             modifiers,
	})
	if err != nil {
		return errs.Wrap(errs.CDPError, err, "dispatch keyDown failed")
	}

	_, err = it.sender.SendToSession(ctx, sessionID, "Input.dispatchKeyEvent", map[string]any{
		"type":                  "keyUp",
		"key":                   info.key,
		"code":                  info.code,
		"windowsVirtualKeyCode": info.keyCode,
		"modifiers":             modifiers,
	})
	if err != nil {
		return errs.Wrap(errs.CDPError, err, "dispatch keyUp failed")
	}
	return nil
}

// TypeOptions controls Type's behavior before inserting text.
type TypeOptions struct {
	// Clear selects all existing content and deletes it before typing.
	Clear bool
	// Key, if non-empty, is dispatched after the text is inserted (e.g. "Enter").
	Key string
}

// Type focuses ref, optionally clears its current value, inserts text, and
// optionally dispatches a trailing key.
func (it *Interactor) Type(ctx context.Context, sessionID, tabID, ref, text string, opts TypeOptions) error {
	if err := it.Focus(ctx, sessionID, tabID, ref); err != nil {
		return err
	}

	if opts.Clear {
		selectAll := KeyModifiers{Ctrl: true}
		if isDarwinSelectAll() {
			selectAll = KeyModifiers{Meta: true}
		}
		if err := it.Key(ctx, sessionID, "a", selectAll); err != nil {
			return err
		}
		if err := it.Key(ctx, sessionID, "Backspace", KeyModifiers{}); err != nil {
			return err
		}
	}

	if text != "" {
		_, err := it.sender.SendToSession(ctx, sessionID, "Input.insertText", map[string]any{
			"text": text,
		})
		if err != nil {
			return errs.Wrap(errs.CDPError, err, "insert text failed")
		}
	}

	if opts.Key != "" {
		if err := it.Key(ctx, sessionID, opts.Key, KeyModifiers{}); err != nil {
			return err
		}
	}
	return nil
}

type keyInfo struct {
	key     string
	code    string
	keyCode int
}

// keyInfoFor maps a key name to the CDP key-event parameters it needs.
func keyInfoFor(key string) keyInfo {
	switch key {
	case "Enter":
		return keyInfo{key: "Enter", code: "Enter", keyCode: 13}
	case "Tab":
		return keyInfo{key: "Tab", code: "Tab", keyCode: 9}
	case "Escape":
		return keyInfo{key: "Escape", code: "Escape", keyCode: 27}
	case "Backspace":
		return keyInfo{key: "Backspace", code: "Backspace", keyCode: 8}
	case "Delete":
		return keyInfo{key: "Delete", code: "Delete", keyCode: 46}
	case "ArrowUp":
		return keyInfo{key: "ArrowUp", code: "ArrowUp", keyCode: 38}
	case "ArrowDown":
		return keyInfo{key: "ArrowDown", code: "ArrowDown", keyCode: 40}
	case "ArrowLeft":
		return keyInfo{key: "ArrowLeft", code: "ArrowLeft", keyCode: 37}
	case "ArrowRight":
		return keyInfo{key: "ArrowRight", code: "ArrowRight", keyCode: 39}
	case "Home":
		return keyInfo{key: "Home", code: "Home", keyCode: 36}
	case "End":
		return keyInfo{key: "End", code: "End", keyCode: 35}
	case "PageUp":
		return keyInfo{key: "PageUp", code: "PageUp", keyCode: 33}
	case "PageDown":
		return keyInfo{key: "PageDown", code: "PageDown", keyCode: 34}
	case "Space":
		return keyInfo{key: " ", code: "Space", keyCode: 32}
	default:
		if len(key) == 1 {
			keyCode := int(key[0])
			if key[0] >= 'a' && key[0] <= 'z' {
				keyCode = int(key[0]) - 32
			}
			return keyInfo{key: key, code: "Key" + strings.ToUpper(key), keyCode: keyCode}
		}
		return keyInfo{key: key, code: key, keyCode: 0}
	}
}
