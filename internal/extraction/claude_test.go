package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/vcms/internal/model"
	"github.com/sells-group/vcms/internal/resilience"
	"github.com/sells-group/vcms/pkg/anthropic"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
	}
}

const validatedJSON = `{
  "status": "Validated",
  "notes": "",
  "contact": {"first_name": "Ana", "last_name": "Ruiz", "email": "Ana@X.com"},
  "company": {"company_name": "Acme Plumbing", "industry_synonyms": ["plumber"]}
}`

func TestClaudeExtractor_Validated(t *testing.T) {
	mc := new(mockClient)
	mc.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.Model == "claude-test" &&
			len(req.Messages) == 1 &&
			len(req.Messages[0].ImageURLs) == 1 &&
			req.Messages[0].ImageURLs[0] == "https://img/card.jpg"
	})).Return(textResponse("```json\n"+validatedJSON+"\n```"), nil)

	e := NewClaudeExtractor(mc, "claude-test", 512)
	c, err := e.Extract(context.Background(), "https://img/card.jpg")
	require.NoError(t, err)
	assert.Equal(t, model.ExtractionValidated, c.Status)
	assert.Equal(t, "Ana", c.Contact.FirstName)
	assert.Equal(t, "Ana@X.com", c.Contact.Email)
	assert.Equal(t, "Acme Plumbing", c.Company.CompanyName)
	mc.AssertExpectations(t)
}

func TestClaudeExtractor_EmptyURL(t *testing.T) {
	e := NewClaudeExtractor(new(mockClient), "m", 0)
	_, err := e.Extract(context.Background(), "  ")
	require.Error(t, err)
}

func TestClaudeExtractor_GarbageIsUnreadable(t *testing.T) {
	mc := new(mockClient)
	mc.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse("I cannot read this card."), nil)

	e := NewClaudeExtractor(mc, "m", 0)
	_, err := e.Extract(context.Background(), "https://img/x.jpg")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnreadable))
	assert.False(t, resilience.IsTransient(err))
}

func TestClaudeExtractor_ClientErrorWrapped(t *testing.T) {
	mc := new(mockClient)
	mc.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, errors.New("bad request"))

	e := NewClaudeExtractor(mc, "m", 0)
	_, err := e.Extract(context.Background(), "https://img/x.jpg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad request")
	assert.False(t, resilience.IsTransient(err))
}

func TestClaudeExtractor_TransientStatusRetried(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			w.WriteHeader(529)
			_, _ = w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"busy"}}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"id":          "msg_1",
			"type":        "message",
			"role":        "assistant",
			"model":       "claude-test",
			"stop_reason": "end_turn",
			"content":     []map[string]any{{"type": "text", "text": validatedJSON}},
			"usage":       map[string]any{"input_tokens": 10, "output_tokens": 5},
		})
	}))
	defer ts.Close()

	client := anthropic.NewClient("k", option.WithBaseURL(ts.URL))
	svc := NewRetrying(NewClaudeExtractor(client, "claude-test", 256), resilience.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	})

	c, err := svc.Extract(context.Background(), "https://img/card.jpg")
	require.NoError(t, err)
	assert.Equal(t, "Ana", c.Contact.FirstName)
	assert.Equal(t, int32(2), calls.Load())
}

func TestParseCandidate(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantStatus model.ExtractionStatus
		wantErr    bool
		wantNotes  string
	}{
		{
			name:       "plain json",
			text:       validatedJSON,
			wantStatus: model.ExtractionValidated,
		},
		{
			name:       "prose around json",
			text:       "Here you go:\n" + `{"status":"Ambiguous","notes":"blurry"}` + "\nDone.",
			wantStatus: model.ExtractionAmbiguous,
			wantNotes:  "blurry",
		},
		{
			name:       "failed status kept",
			text:       `{"status":"Failed","notes":"not a card"}`,
			wantStatus: model.ExtractionFailed,
			wantNotes:  "not a card",
		},
		{
			name:       "validated without company downgraded",
			text:       `{"status":"Validated","contact":{"first_name":"Bo"},"company":{}}`,
			wantStatus: model.ExtractionAmbiguous,
			wantNotes:  "missing company_name",
		},
		{
			name:    "unknown status",
			text:    `{"status":"Sure"}`,
			wantErr: true,
		},
		{
			name:    "empty",
			text:    "",
			wantErr: true,
		},
		{
			name:    "broken json",
			text:    `{"status": "Validated",`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := parseCandidate(tt.text)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrUnreadable))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, c.Status)
			if tt.wantNotes != "" {
				assert.Equal(t, tt.wantNotes, c.Notes)
			}
		})
	}
}

func TestCleanJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, cleanJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanJSON("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":{"b":2}}`, cleanJSON(`x {"a":{"b":2}} y`))
	assert.Equal(t, "", cleanJSON("no braces"))
}
