package moderation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReviewAllowsCleanText(t *testing.T) {
	engine := NewEngine(NewRules(nil), nil)

	decision := engine.Review(context.Background(), "good game everyone", 5)

	assert.Equal(t, VerdictAllow, decision.Verdict)
	assert.Equal(t, 0, decision.Score)
}

func TestReviewWarnsAtSensitivity(t *testing.T) {
	engine := NewEngine(NewRules(nil), nil)

	// spam_phrase (3) + url (2) = 5, exactly the default sensitivity.
	decision := engine.Review(context.Background(), "free robux at www.scam.example", 5)

	assert.Equal(t, VerdictWarn, decision.Verdict)
	assert.Equal(t, 5, decision.Score)
	assert.Equal(t, ReasonAuto, decision.Reason)
}

func TestReviewMutesAtSevereThreshold(t *testing.T) {
	engine := NewEngine(NewRules(nil), nil)

	// profanity (3) + self_harm (4) + char_flood (2) = 9 >= 5+3.
	decision := engine.Review(context.Background(), "kys you shitty player!!!!!!!!", 5)

	assert.Equal(t, VerdictMute, decision.Verdict)
	assert.Equal(t, ReasonAutoSevere, decision.Reason)
}

func TestReviewStricterSensitivityWarnsEarlier(t *testing.T) {
	engine := NewEngine(NewRules(nil), nil)

	// url alone (2) is below the default threshold but not below 2.
	assert.Equal(t, VerdictAllow, engine.Review(context.Background(), "see https://example.com", 5).Verdict)
	assert.Equal(t, VerdictWarn, engine.Review(context.Background(), "see https://example.com", 2).Verdict)
}

func TestReviewExternalFlagShortCircuits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"flagged": true, "categories": map[string]bool{"harassment": true}},
			},
		})
	}))
	defer srv.Close()

	engine := NewEngine(NewRules(nil), NewExternalClient(srv.URL, "test-key", 0))

	decision := engine.Review(context.Background(), "totally clean locally", 5)

	assert.Equal(t, VerdictMute, decision.Verdict)
	assert.Contains(t, decision.Reason, "harassment")
}

func TestReviewExternalFailureFallsBackToRules(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	engine := NewEngine(NewRules(nil), NewExternalClient(srv.URL, "test-key", 0))

	decision := engine.Review(context.Background(), "good game everyone", 5)

	assert.Equal(t, VerdictAllow, decision.Verdict)
}
