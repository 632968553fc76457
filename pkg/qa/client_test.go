package qa

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/ask" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
}

func TestAskResponseShapes(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantKind    AnswerKind
		wantContent string
		wantSources int
	}{
		{
			name:        "synthesis with results",
			body:        `{"synthesis":"Go is a language.","results":[{"title":"Go docs","link":"https://go.dev"}]}`,
			wantKind:    KindSynthesis,
			wantContent: "Go is a language.",
			wantSources: 1,
		},
		{
			name:        "synthesis without results gets empty slice",
			body:        `{"synthesis":"Just an answer."}`,
			wantKind:    KindSynthesis,
			wantContent: "Just an answer.",
			wantSources: 0,
		},
		{
			name:        "plain message",
			body:        `{"message":"I cannot answer that."}`,
			wantKind:    KindPlain,
			wantContent: "I cannot answer that.",
		},
		{
			name:        "unknown shape falls back",
			body:        `{"something":"else"}`,
			wantKind:    KindUnrecognized,
			wantContent: FallbackUnrecognized,
		},
		{
			name:        "non-json body falls back",
			body:        "<html>gateway error</html>",
			wantKind:    KindUnrecognized,
			wantContent: FallbackUnrecognized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, http.StatusOK, tt.body)
			defer srv.Close()

			c := NewClient(srv.URL)
			answer, err := c.Ask(context.Background(), "anything")
			if err != nil {
				t.Fatalf("Ask returned error: %v", err)
			}
			if answer.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", answer.Kind, tt.wantKind)
			}
			if answer.Content != tt.wantContent {
				t.Errorf("Content = %q, want %q", answer.Content, tt.wantContent)
			}
			if len(answer.Sources) != tt.wantSources {
				t.Errorf("len(Sources) = %d, want %d", len(answer.Sources), tt.wantSources)
			}
			if answer.Kind == KindSynthesis && answer.Sources == nil {
				t.Error("synthesis answer must carry a non-nil sources slice")
			}
		})
	}
}

func TestAskNon2xxIsError(t *testing.T) {
	srv := newTestServer(t, http.StatusBadGateway, "oops")
	defer srv.Close()

	c := NewClient(srv.URL)
	if _, err := c.Ask(context.Background(), "anything"); err == nil {
		t.Fatal("expected error for 502 response")
	}
}

func TestAskTransportFailureIsError(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, "{}")
	srv.Close() // refuse connections

	c := NewClient(srv.URL)
	if _, err := c.Ask(context.Background(), "anything"); err == nil {
		t.Fatal("expected error when the service is unreachable")
	}
}
