package scoring

import "openccp/internal/model"

// Allowed reports whether a keyword expecting `expected` may score a text labelled `observed`.
// Unknown or neutral observations only pass keywords that accept any sentiment.
func Allowed(expected, observed model.Sentiment) bool {
	switch expected {
	case model.SentimentAny, model.SentimentUnknown:
		return true
	case model.SentimentPositive, model.SentimentNegative:
		return observed == expected
	}
	return false
}
