package qa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"agentmsa-be/internal/entity"
)

// AnswerKind tags the three response shapes the QA service is known to
// produce. The shape is decided once here; callers switch on the tag and
// never inspect raw payloads.
type AnswerKind int

const (
	// KindSynthesis is a synthesized answer with ranked source citations.
	KindSynthesis AnswerKind = iota
	// KindPlain is a bare message with no sources.
	KindPlain
	// KindUnrecognized is any payload carrying neither field.
	KindUnrecognized
)

const (
	// FallbackUnrecognized is the content used when the service answered
	// with a shape we cannot interpret.
	FallbackUnrecognized = "I received a response but couldn't process it correctly."
	// FallbackError is the content used when the request itself failed.
	FallbackError = "I apologize, but I encountered an error while processing your request. Please try again."
)

type Answer struct {
	Kind    AnswerKind
	Content string
	Sources []entity.Source
}

type Client interface {
	Ask(ctx context.Context, query string) (*Answer, error)
}

type client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) Client {
	return &client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type askRequest struct {
	Query string `json:"query"`
}

type askResponse struct {
	Synthesis string          `json:"synthesis"`
	Results   []entity.Source `json:"results"`
	Message   string          `json:"message"`
}

// Ask sends the raw query to the QA service and maps the response into a
// tagged Answer. Transport failures and non-2xx statuses are returned as
// errors; the caller decides how to degrade.
func (c *client) Ask(ctx context.Context, query string) (*Answer, error) {
	body, err := json.Marshal(askRequest{Query: query})
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/ask", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qa request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("qa service returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read qa response: %w", err)
	}

	var parsed askResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		// Not JSON at all. Treat like an unrecognized shape rather than a
		// transport failure: the service did answer.
		return &Answer{Kind: KindUnrecognized, Content: FallbackUnrecognized}, nil
	}

	switch {
	case parsed.Synthesis != "":
		sources := parsed.Results
		if sources == nil {
			sources = []entity.Source{}
		}
		return &Answer{Kind: KindSynthesis, Content: parsed.Synthesis, Sources: sources}, nil
	case parsed.Message != "":
		return &Answer{Kind: KindPlain, Content: parsed.Message}, nil
	default:
		return &Answer{Kind: KindUnrecognized, Content: FallbackUnrecognized}, nil
	}
}
