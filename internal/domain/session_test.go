package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_Expired(t *testing.T) {
	expiry := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	s := &Session{ExpiresAt: expiry}

	assert.False(t, s.Expired(expiry.Add(-time.Second)))
	// Expiry is inclusive at the instant itself
	assert.True(t, s.Expired(expiry))
	assert.True(t, s.Expired(expiry.Add(time.Second)))
}

func TestSession_JSONShape(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	s := &Session{
		Token:                  "tok",
		UserID:                 7,
		ConversationHistory:    []Message{{Role: RoleUser, Content: "hi", Timestamp: now}},
		LearningProgress:       Attrs{"concepts": Number(2)},
		CurrentStoryContext:    Attrs{},
		PersonalityAdaptations: Attrs{},
		CreatedAt:              now,
		LastActivity:           now,
		ExpiresAt:              now.Add(24 * time.Hour),
	}

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &m))
	for _, key := range []string{
		"token", "user_id", "conversation_history", "learning_progress",
		"current_story_context", "personality_adaptations",
		"created_at", "last_activity", "expires_at",
	} {
		assert.Contains(t, m, key)
	}

	// Message metadata is omitted when empty
	assert.NotContains(t, string(m["conversation_history"]), "metadata")

	var decoded Session
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, s, &decoded)
}
