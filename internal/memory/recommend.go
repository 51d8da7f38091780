package memory

import "github.com/minervalabs/minerva/internal/domain"

// Learning-progress keys the recommendation engine reads.
const (
	KeyStrugglesIdentified   = "struggles_identified"
	KeyFastLearnerIndicators = "fast_learner_indicators"
)

// shortMessageLength marks a user message as low-engagement for the
// open-ended-questions strategy.
const shortMessageLength = 50

// Engagement strategy texts, grouped by the adaptation value that selects
// them.
var (
	inquisitiveStrategies = []string{
		"Include more interactive questions",
		"Provide opportunities for exploration",
		"Encourage hypothesis formation",
	}
	declarativeStrategies = []string{
		"Provide clear, definitive explanations",
		"Use more direct instruction",
		"Include summary statements",
	}
	needsSupportStrategies = []string{
		"Provide more encouragement",
		"Break down complex concepts further",
		"Celebrate small wins",
	}
	optimisticStrategies = []string{
		"Introduce more challenges",
		"Provide advanced extensions",
		"Encourage peer collaboration",
	}
)

// buildRecommendations maps the session's adaptations and learning progress
// onto actionable preference hints. Pure rule tables over the keys the
// analyzer produces; no heuristics of its own.
func buildRecommendations(adaptations, progress domain.Attrs, history []domain.Message) domain.RecommendationBundle {
	return domain.RecommendationBundle{
		StoryPreferences:     recommendStoryPreferences(adaptations),
		InteractionStyle:     recommendInteractionStyle(adaptations),
		ContentDelivery:      recommendContentDelivery(adaptations, progress),
		EngagementStrategies: recommendEngagementStrategies(adaptations, history),
	}
}

func recommendStoryPreferences(adaptations domain.Attrs) domain.StoryPreferences {
	prefs := domain.StoryPreferences{
		Pace:                 "moderate",
		DetailLevel:          "balanced",
		InteractionFrequency: "moderate",
	}

	switch adaptations.GetString(KeyCommunicationPreference) {
	case "detailed":
		prefs.DetailLevel = "high"
		prefs.InteractionFrequency = "high"
	case "concise":
		prefs.DetailLevel = "low"
		prefs.Pace = "fast"
	}

	switch adaptations.GetString(KeyEngagementStyle) {
	case "inquisitive":
		prefs.InteractionFrequency = "high"
	case "declarative":
		prefs.InteractionFrequency = "low"
	}

	switch adaptations.GetString(KeyPacingPreference) {
	case "fast":
		prefs.Pace = "fast"
	case "thoughtful":
		prefs.Pace = "slow"
		prefs.DetailLevel = "high"
	}

	return prefs
}

func recommendInteractionStyle(adaptations domain.Attrs) domain.InteractionStyle {
	style := domain.InteractionStyle{
		Tone:              "encouraging",
		ExplanationDepth:  "moderate",
		QuestionFrequency: "balanced",
	}

	switch adaptations.GetString(KeyEmotionalTone) {
	case "needs_support":
		style.Tone = "supportive"
		style.ExplanationDepth = "detailed"
	case "optimistic":
		style.Tone = "enthusiastic"
		style.QuestionFrequency = "high"
	}

	switch adaptations.GetString(KeyInferredLearningStyle) {
	case "visual":
		style.VisualElements = "high"
	case "analytical":
		style.ExplanationDepth = "detailed"
		style.LogicalStructure = "high"
	case "practical":
		style.Examples = "high"
		style.HandsOnActivities = "high"
	}

	return style
}

func recommendContentDelivery(adaptations, progress domain.Attrs) domain.ContentDelivery {
	delivery := domain.ContentDelivery{
		ChunkSize:             "medium",
		RepetitionFrequency:   "moderate",
		ComplexityProgression: "gradual",
	}

	if truthy(progress[KeyStrugglesIdentified]) {
		delivery.ChunkSize = "small"
		delivery.RepetitionFrequency = "high"
	}
	if truthy(progress[KeyFastLearnerIndicators]) {
		delivery.ChunkSize = "large"
		delivery.ComplexityProgression = "accelerated"
	}

	switch adaptations.GetString(KeyCommunicationPreference) {
	case "concise":
		delivery.ChunkSize = "small"
	case "detailed":
		delivery.ChunkSize = "large"
	}

	return delivery
}

func recommendEngagementStrategies(adaptations domain.Attrs, history []domain.Message) []string {
	strategies := []string{}

	switch adaptations.GetString(KeyEngagementStyle) {
	case "inquisitive":
		strategies = append(strategies, inquisitiveStrategies...)
	case "declarative":
		strategies = append(strategies, declarativeStrategies...)
	}

	switch adaptations.GetString(KeyEmotionalTone) {
	case "needs_support":
		strategies = append(strategies, needsSupportStrategies...)
	case "optimistic":
		strategies = append(strategies, optimisticStrategies...)
	}

	// A stretch of only terse user replies suggests the conversation is
	// losing the user.
	if len(history) > 10 {
		recent := history[len(history)-10:]
		allShort := true
		for _, m := range recent {
			if m.Role == domain.RoleUser && len(m.Content) >= shortMessageLength {
				allShort = false
				break
			}
		}
		if allShort {
			strategies = append(strategies, "Try more engaging, open-ended questions")
		}
	}

	return strategies
}

// truthy reports whether a progress value should count as set: true
// booleans, nonzero numbers, and nonempty strings or lists.
func truthy(v domain.Value) bool {
	switch v.Kind() {
	case domain.KindBool:
		b, _ := v.AsBool()
		return b
	case domain.KindNumber:
		n, _ := v.AsNumber()
		return n != 0
	case domain.KindString:
		s, _ := v.AsString()
		return s != ""
	case domain.KindStringList:
		l, _ := v.AsStringList()
		return len(l) > 0
	default:
		return false
	}
}
