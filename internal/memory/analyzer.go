package memory

import (
	"strings"
	"time"

	"github.com/minervalabs/minerva/internal/domain"
)

// Adaptation keys produced by the analyzer and read back by the
// recommendation engine.
const (
	KeyCommunicationPreference = "communication_preference"
	KeyEngagementStyle         = "engagement_style"
	KeyEmotionalTone           = "emotional_tone"
	KeyInferredLearningStyle   = "inferred_learning_style"
	KeyPacingPreference        = "pacing_preference"
	KeyAnalysisTimestamp       = "analysis_timestamp"
	KeyMessageCountAnalyzed    = "message_count_analyzed"
)

// Message metadata key carrying the seconds the user took to respond.
const metaResponseTime = "response_time"

// Heuristic thresholds. Fixed; the analyzer's outputs are part of the
// store's observable behavior and tests depend on them.
const (
	detailedLengthThreshold = 200 // avg chars above which the user prefers detail
	conciseLengthThreshold  = 50  // avg chars below which the user prefers brevity

	inquisitiveRatio = 0.3 // question ratio above which the user is inquisitive
	declarativeRatio = 0.1 // question ratio below which the user is declarative

	fastResponseSeconds       = 5
	thoughtfulResponseSeconds = 30
)

var (
	positiveWords = []string{"great", "awesome", "love", "excellent", "amazing", "fantastic"}
	negativeWords = []string{"difficult", "hard", "confused", "stuck", "frustrated", "challenging"}

	visualWords     = []string{"see", "show", "picture", "diagram", "visual", "image"}
	analyticalWords = []string{"analyze", "break down", "step by step", "detailed", "systematic"}
	practicalWords  = []string{"example", "practice", "try", "hands-on", "apply", "use"}
)

// analyzeInteractionPatterns derives an adaptation record from the given
// user messages. Deterministic apart from the timestamp; messages with
// missing or malformed metadata simply contribute nothing to the pacing
// heuristic.
func analyzeInteractionPatterns(messages []domain.Message, now time.Time) domain.Attrs {
	adaptations := domain.Attrs{}
	if len(messages) == 0 {
		return adaptations
	}

	total := len(messages)

	// Communication preference from average message length
	var totalLength int
	for _, m := range messages {
		totalLength += len(m.Content)
	}
	avgLength := float64(totalLength) / float64(total)
	switch {
	case avgLength > detailedLengthThreshold:
		adaptations[KeyCommunicationPreference] = domain.String("detailed")
	case avgLength < conciseLengthThreshold:
		adaptations[KeyCommunicationPreference] = domain.String("concise")
	default:
		adaptations[KeyCommunicationPreference] = domain.String("balanced")
	}

	// Engagement style from how often the user asks questions
	var questions int
	for _, m := range messages {
		if strings.Contains(m.Content, "?") {
			questions++
		}
	}
	questionRatio := float64(questions) / float64(total)
	switch {
	case questionRatio > inquisitiveRatio:
		adaptations[KeyEngagementStyle] = domain.String("inquisitive")
	case questionRatio < declarativeRatio:
		adaptations[KeyEngagementStyle] = domain.String("declarative")
	default:
		adaptations[KeyEngagementStyle] = domain.String("balanced")
	}

	// Emotional tone from positive vs negative word hits
	positive := countWordHits(messages, positiveWords)
	negative := countWordHits(messages, negativeWords)
	switch {
	case positive > negative*2:
		adaptations[KeyEmotionalTone] = domain.String("optimistic")
	case negative > positive*2:
		adaptations[KeyEmotionalTone] = domain.String("needs_support")
	default:
		adaptations[KeyEmotionalTone] = domain.String("neutral")
	}

	// Inferred learning style: highest-scoring keyword set wins, ties
	// broken in fixed order visual, analytical, practical. Omitted when
	// no set scores at all.
	visualScore := countWordHits(messages, visualWords)
	analyticalScore := countWordHits(messages, analyticalWords)
	practicalScore := countWordHits(messages, practicalWords)
	maxScore := max(visualScore, max(analyticalScore, practicalScore))
	if maxScore > 0 {
		switch maxScore {
		case visualScore:
			adaptations[KeyInferredLearningStyle] = domain.String("visual")
		case analyticalScore:
			adaptations[KeyInferredLearningStyle] = domain.String("analytical")
		default:
			adaptations[KeyInferredLearningStyle] = domain.String("practical")
		}
	}

	// Pacing preference from response_time metadata, where present
	var responseTotal float64
	var responseCount int
	for _, m := range messages {
		if t, ok := m.Metadata[metaResponseTime].AsNumber(); ok {
			responseTotal += t
			responseCount++
		}
	}
	if responseCount > 0 {
		avgResponse := responseTotal / float64(responseCount)
		switch {
		case avgResponse < fastResponseSeconds:
			adaptations[KeyPacingPreference] = domain.String("fast")
		case avgResponse > thoughtfulResponseSeconds:
			adaptations[KeyPacingPreference] = domain.String("thoughtful")
		default:
			adaptations[KeyPacingPreference] = domain.String("moderate")
		}
	}

	adaptations[KeyAnalysisTimestamp] = domain.String(now.UTC().Format(time.RFC3339))
	adaptations[KeyMessageCountAnalyzed] = domain.Number(float64(total))

	return adaptations
}

// countWordHits counts, across all messages, how many of the given words
// appear in each message's content. Matching is a case-insensitive
// substring check; a word counts once per message it appears in.
func countWordHits(messages []domain.Message, words []string) int {
	var hits int
	for _, m := range messages {
		content := strings.ToLower(m.Content)
		for _, w := range words {
			if strings.Contains(content, w) {
				hits++
			}
		}
	}
	return hits
}
