package domain

// StoryPreferences tunes narrative pacing and density for a session
type StoryPreferences struct {
	Pace                 string `json:"pace"`
	DetailLevel          string `json:"detail_level"`
	InteractionFrequency string `json:"interaction_frequency"`
}

// InteractionStyle tunes how the tutor addresses the user. The optional
// fields are only set when the matching learning style has been inferred.
type InteractionStyle struct {
	Tone              string `json:"tone"`
	ExplanationDepth  string `json:"explanation_depth"`
	QuestionFrequency string `json:"question_frequency"`
	VisualElements    string `json:"visual_elements,omitempty"`
	LogicalStructure  string `json:"logical_structure,omitempty"`
	Examples          string `json:"examples,omitempty"`
	HandsOnActivities string `json:"hands_on_activities,omitempty"`
}

// ContentDelivery tunes how learning material is chunked and repeated
type ContentDelivery struct {
	ChunkSize             string `json:"chunk_size"`
	RepetitionFrequency   string `json:"repetition_frequency"`
	ComplexityProgression string `json:"complexity_progression"`
}

// RecommendationBundle is the full set of preference hints derived from a
// session's adaptations and learning progress
type RecommendationBundle struct {
	StoryPreferences     StoryPreferences `json:"story_preferences"`
	InteractionStyle     InteractionStyle `json:"interaction_style"`
	ContentDelivery      ContentDelivery  `json:"content_delivery"`
	EngagementStrategies []string         `json:"engagement_strategies"`
}
