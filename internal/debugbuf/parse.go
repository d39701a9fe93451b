package debugbuf

import (
	"encoding/json"

	"github.com/hazeltoft/browsercore/internal/cdp"
	"github.com/hazeltoft/browsercore/internal/ipc"
)

// parseConsoleMessage parses a Console.messageAdded event.
func parseConsoleMessage(evt cdp.Event) (ipc.ConsoleEntry, bool) {
	var params struct {
		Message struct {
			Source string `json:"source"`
			Level  string `json:"level"`
			Text   string `json:"text"`
			URL    string `json:"url"`
			Line   int    `json:"line"`
			Column int    `json:"column"`
		} `json:"message"`
	}
	if err := json.Unmarshal(evt.Params, &params); err != nil {
		return ipc.ConsoleEntry{}, false
	}

	return ipc.ConsoleEntry{
		Type:      params.Message.Level,
		Text:      params.Message.Text,
		Timestamp: nowMillis(),
		URL:       params.Message.URL,
		Line:      params.Message.Line,
		Column:    params.Message.Column,
	}, true
}

// parseExceptionThrown parses a Runtime.exceptionThrown event, preferring
// the thrown value's description when present over the bare exception text.
func parseExceptionThrown(evt cdp.Event) (ipc.ConsoleEntry, bool) {
	var params struct {
		Timestamp        float64 `json:"timestamp"`
		ExceptionDetails struct {
			Text      string `json:"text"`
			URL       string `json:"url"`
			LineNumber int    `json:"lineNumber"`
			ColumnNumber int `json:"columnNumber"`
			Exception *struct {
				Description string `json:"description"`
			} `json:"exception"`
		} `json:"exceptionDetails"`
	}
	if err := json.Unmarshal(evt.Params, &params); err != nil {
		return ipc.ConsoleEntry{}, false
	}

	text := params.ExceptionDetails.Text
	if params.ExceptionDetails.Exception != nil && params.ExceptionDetails.Exception.Description != "" {
		text = params.ExceptionDetails.Exception.Description
	}

	return ipc.ConsoleEntry{
		Type:      "error",
		Text:      text,
		Timestamp: nowMillis(),
		URL:       params.ExceptionDetails.URL,
		Line:      params.ExceptionDetails.LineNumber,
		Column:    params.ExceptionDetails.ColumnNumber,
	}, true
}

// parseResponseReceived parses a Network.responseReceived event.
func parseResponseReceived(evt cdp.Event) (ipc.NetworkEntry, bool) {
	var params struct {
		RequestID string `json:"requestId"`
		Type      string `json:"type"`
		Response  struct {
			URL        string            `json:"url"`
			Status     int               `json:"status"`
			StatusText string            `json:"statusText"`
			MimeType   string            `json:"mimeType"`
			Headers    map[string]string `json:"headers"`
		} `json:"response"`
	}
	if err := json.Unmarshal(evt.Params, &params); err != nil {
		return ipc.NetworkEntry{}, false
	}

	return ipc.NetworkEntry{
		RequestID:    params.RequestID,
		URL:          params.Response.URL,
		Type:         params.Type,
		Status:       params.Response.Status,
		StatusText:   params.Response.StatusText,
		MimeType:     params.Response.MimeType,
		Headers:      params.Response.Headers,
		ResponseTime: nowMillis(),
	}, true
}

// parseLoadingFailed parses a Network.loadingFailed event.
func parseLoadingFailed(evt cdp.Event) (ipc.NetworkEntry, bool) {
	var params struct {
		RequestID string `json:"requestId"`
		Type      string `json:"type"`
		ErrorText string `json:"errorText"`
		Canceled  bool   `json:"canceled"`
	}
	if err := json.Unmarshal(evt.Params, &params); err != nil {
		return ipc.NetworkEntry{}, false
	}

	errText := params.ErrorText
	if params.Canceled {
		errText = "canceled"
	}

	return ipc.NetworkEntry{
		RequestID:    params.RequestID,
		Type:         params.Type,
		Error:        errText,
		ResponseTime: nowMillis(),
	}, true
}
