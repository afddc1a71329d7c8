package model

import "strings"

// Sentiment is either an expected sentiment on a keyword (positive, negative, any)
// or an observed label on a text (positive, negative, neutral, or unknown).
type Sentiment string

const (
	SentimentUnknown  Sentiment = ""
	SentimentAny      Sentiment = "any"
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// ParseExpected parses a keyword's expected sentiment. Empty input means any.
func ParseExpected(s string) (Sentiment, error) {
	switch Sentiment(strings.ToLower(strings.TrimSpace(s))) {
	case "", SentimentAny:
		return SentimentAny, nil
	case SentimentPositive:
		return SentimentPositive, nil
	case SentimentNegative:
		return SentimentNegative, nil
	}
	return SentimentUnknown, &ConfigError{Field: "sentiment", Reason: "must be positive, negative or any"}
}

// ParseObserved normalizes an observed label; anything unrecognized is unknown.
func ParseObserved(s string) Sentiment {
	switch v := Sentiment(strings.ToLower(strings.TrimSpace(s))); v {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return v
	}
	return SentimentUnknown
}

// FromScore buckets a compound polarity score into a label using a symmetric threshold.
func FromScore(score, threshold float64) Sentiment {
	switch {
	case score >= threshold:
		return SentimentPositive
	case score <= -threshold:
		return SentimentNegative
	}
	return SentimentNeutral
}

// ObservedSentiment returns the tweet's label, falling back to its score when no label is set.
func (t Tweet) ObservedSentiment(threshold float64) Sentiment {
	if s := ParseObserved(string(t.Sentiment)); s != SentimentUnknown {
		return s
	}
	if t.SentimentScore != nil {
		return FromScore(*t.SentimentScore, threshold)
	}
	return SentimentUnknown
}
