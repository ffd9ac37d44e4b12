package appium

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestOpen_SessionLifecycle(t *testing.T) {
	var quit bool
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		switch {
		case r.URL.Path == "/session/s-1/source":
			writeJSON(w, map[string]interface{}{"value": "<hierarchy><node text=\"Balance\"/></hierarchy>"})
		case r.URL.Path == "/session" && r.Method == http.MethodPost:
			writeJSON(w, map[string]interface{}{
				"value": map[string]interface{}{"sessionId": "s-1"},
			})
		case r.URL.Path == "/session/s-1" && r.Method == http.MethodDelete:
			quit = true
			writeJSON(w, map[string]interface{}{"value": nil})
		case r.URL.Path == "/session/s-1/element":
			writeJSON(w, map[string]interface{}{"value": map[string]interface{}{w3cElementKey: "el"}})
		default:
			writeJSON(w, map[string]interface{}{"value": nil})
		}
	}))
	defer server.Close()

	sess, err := Open(context.Background(), server.URL, map[string]interface{}{"platformName": "Android"})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if sess.SessionID() != "s-1" {
		t.Errorf("SessionID() = %q", sess.SessionID())
	}
	if sess.Client().ServerURL() != server.URL {
		t.Errorf("ServerURL() = %q", sess.Client().ServerURL())
	}
	if err := sess.SetImplicitWait(5 * time.Second); err != nil {
		t.Errorf("SetImplicitWait: %v", err)
	}
	id, err := sess.FindElement("id", "username")
	if err != nil || id != "el" {
		t.Errorf("FindElement() = %q, %v", id, err)
	}
	source, err := sess.PageSource()
	if err != nil || !strings.Contains(source, "Balance") {
		t.Errorf("PageSource() = %q, %v", source, err)
	}
	if err := sess.Back(); err != nil {
		t.Errorf("Back: %v", err)
	}
	if err := sess.HideKeyboard(); err != nil {
		t.Errorf("HideKeyboard: %v", err)
	}
	for _, want := range []string{"POST /session/s-1/back", "POST /session/s-1/appium/device/hide_keyboard"} {
		if !containsString(paths, want) {
			t.Errorf("missing request %s in %v", want, paths)
		}
	}
	if err := sess.Quit(); err != nil {
		t.Fatalf("Quit failed: %v", err)
	}
	if !quit {
		t.Error("Quit did not delete the session")
	}
}

func TestOpen_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	if _, err := Open(context.Background(), url, nil); err == nil {
		t.Fatal("Expected error for unreachable server")
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
