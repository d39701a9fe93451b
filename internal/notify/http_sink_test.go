package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPSink_List_DecodesConversations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("orderBy") != "updated" || r.URL.Query().Get("limit") != "1" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode([]Conversation{{ID: "conv-1", UpdatedAt: 42}})
	}))
	defer srv.Close()

	sink := NewHTTPSink(srv.URL)
	convs, err := sink.List(context.Background(), ListOptions{OrderBy: "updated", Limit: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(convs) != 1 || convs[0].ID != "conv-1" {
		t.Errorf("unexpected conversations: %+v", convs)
	}
}

func TestHTTPSink_List_PropagatesNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sink := NewHTTPSink(srv.URL)
	if _, err := sink.List(context.Background(), ListOptions{}); err == nil {
		t.Fatal("expected error on non-OK status")
	}
}

func TestHTTPSink_AppendMessage_SendsJSONBody(t *testing.T) {
	var received struct {
		Role string `json:"role"`
		Body string `json:"body"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	sink := NewHTTPSink(srv.URL)
	if err := sink.AppendMessage(context.Background(), "conv-1", "system", "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if received.Role != "system" || received.Body != "hello" {
		t.Errorf("unexpected body sent: %+v", received)
	}
}

func TestHTTPSink_AppendMessage_PropagatesNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	sink := NewHTTPSink(srv.URL)
	if err := sink.AppendMessage(context.Background(), "conv-1", "system", "hello"); err == nil {
		t.Fatal("expected error on non-OK status")
	}
}
