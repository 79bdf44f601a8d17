package engagement

import "strings"

// Category is a content class a chat message may fall into. A message can be in several.
type Category string

const (
	CategoryEvent         Category = "event"
	CategoryHelp          Category = "help"
	CategoryCollaboration Category = "collaboration"
	CategoryPositive      Category = "positive"
)

// Categories lists every category in reporting order.
func Categories() []Category {
	return []Category{CategoryEvent, CategoryHelp, CategoryCollaboration, CategoryPositive}
}

// DefaultKeywords are matched as substrings of the lowercased message body.
var DefaultKeywords = map[Category][]string{
	CategoryEvent: {
		"event", "workshop", "competition", "hackathon", "meeting", "session",
		"practice", "performance", "show", "concert", "exhibition", "contest",
		"audition", "registration", "register", "participate", "join",
	},
	CategoryHelp: {
		"help", "doubt", "question", "problem", "issue", "stuck", "confused",
		"clarification", "explain", "how to", "can someone", "need assistance",
	},
	CategoryCollaboration: {
		"collab", "collaboration", "together", "team up", "joint", "partner",
		"work with", "combine", "merge", "cross-club", "inter-club",
	},
	CategoryPositive: {
		"great", "awesome", "excellent", "amazing", "love", "like", "thanks",
		"thank you", "good", "nice", "cool", "interested", "excited",
	},
}

// questionWords mark a message as question-like alongside a literal '?'.
var questionWords = []string{"help", "doubt", "how"}

// Classifier holds the keyword lists for content classification.
type Classifier struct {
	keywords map[Category][]string
}

// NewClassifier creates a classifier with the default keywords plus extras per category.
func NewClassifier(extra map[Category][]string) *Classifier {
	keywords := make(map[Category][]string, len(DefaultKeywords))
	for cat, kws := range DefaultKeywords {
		all := make([]string, 0, len(kws)+len(extra[cat]))
		all = append(all, kws...)
		all = append(all, extra[cat]...)

		// Lowercase all keywords for case-insensitive matching.
		for i, kw := range all {
			all[i] = strings.ToLower(kw)
		}
		keywords[cat] = all
	}
	return &Classifier{keywords: keywords}
}

// Matches reports whether lower, an already lowercased body, contains any keyword of cat.
func (c *Classifier) Matches(cat Category, lower string) bool {
	return containsAny(lower, c.keywords[cat])
}

// IsQuestion reports whether a message body reads as a question or a help request.
func IsQuestion(body string) bool {
	if strings.Contains(body, "?") {
		return true
	}
	return containsAny(strings.ToLower(body), questionWords)
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
