package scoring

import "openccp/internal/model"

// Policy holds the tunable knobs of the calculator.
type Policy struct {
	// BioMultiplier scales the bio score. 1.0 keeps bio and tweet matches on equal footing.
	BioMultiplier float64
	// TweetMultiplier scales every tweet score.
	TweetMultiplier float64
	// MaxMatchesPerKeyword caps how many occurrences of one keyword count per text. 0 means uncapped.
	MaxMatchesPerKeyword int
	// SentimentThreshold buckets a tweet's compound score into a label when no label is set.
	SentimentThreshold float64
}

// DefaultPolicy is linear and uncapped.
func DefaultPolicy() Policy {
	return Policy{BioMultiplier: 1, TweetMultiplier: 1, SentimentThreshold: 0.3}
}

// TweetScore is the score of one tweet against a camp.
type TweetScore struct {
	TweetID string
	Score   float64
	// Terms lists, in keyword order, the keywords whose gate and matcher both passed.
	Terms []string
}

// Breakdown is the structured result of scoring one account for one camp.
type Breakdown struct {
	BioScore     float64
	TweetScore   float64
	Total        float64
	BioMatches   []model.TermCount
	TweetMatches []model.TermCount
	// Tweets holds only tweets with a positive score.
	Tweets []TweetScore
}

// Calculator scores accounts against a fixed keyword set.
type Calculator struct {
	keywords []model.Keyword
	policy   Policy
}

// NewCalculator returns a calculator for keywords under policy p.
func NewCalculator(keywords []model.Keyword, p Policy) *Calculator {
	return &Calculator{keywords: keywords, policy: p}
}

// count applies the per-keyword cap to a raw match count.
func (c *Calculator) count(text, term string) int {
	n := CountMatches(text, term)
	if c.policy.MaxMatchesPerKeyword > 0 && n > c.policy.MaxMatchesPerKeyword {
		n = c.policy.MaxMatchesPerKeyword
	}
	return n
}

// scoreText sums weight x matches over every keyword the sentiment gate allows.
func (c *Calculator) scoreText(text string, observed model.Sentiment) (float64, []model.TermCount) {
	if text == "" {
		return 0, nil
	}
	var sum float64
	var hits []model.TermCount
	for _, k := range c.keywords {
		if !Allowed(k.Sentiment, observed) {
			continue
		}
		n := c.count(text, k.Term)
		if n == 0 {
			continue
		}
		sum += k.Weight * float64(n)
		hits = append(hits, model.TermCount{Term: k.Term, Count: n, Weight: k.Weight})
	}
	return sum, hits
}

// ScoreBio scores an account's description. Without a tracked bio sentiment only
// keywords expecting any sentiment can fire.
func (c *Calculator) ScoreBio(a model.Account) (float64, []model.TermCount) {
	s, hits := c.scoreText(a.Description, model.ParseObserved(string(a.BioSentiment)))
	return s * c.policy.BioMultiplier, hits
}

// ScoreTweets scores each tweet independently and sums them into the account's tweet score.
func (c *Calculator) ScoreTweets(tweets []model.Tweet) (float64, []TweetScore, []model.TermCount) {
	var total float64
	var scored []TweetScore
	agg := make(map[string]int)
	var order []model.TermCount
	for _, t := range tweets {
		s, hits := c.scoreText(t.Text, t.ObservedSentiment(c.policy.SentimentThreshold))
		s *= c.policy.TweetMultiplier
		if s <= 0 {
			continue
		}
		total += s
		terms := make([]string, 0, len(hits))
		for _, h := range hits {
			terms = append(terms, h.Term)
			if i, ok := agg[h.Term]; ok {
				order[i].Count += h.Count
				continue
			}
			agg[h.Term] = len(order)
			order = append(order, h)
		}
		scored = append(scored, TweetScore{TweetID: t.ID, Score: s, Terms: terms})
	}
	return total, scored, order
}

// Score computes the full breakdown for one account. Missing bio or tweets contribute 0.
func (c *Calculator) Score(a model.Account, tweets []model.Tweet) Breakdown {
	bio, bioHits := c.ScoreBio(a)
	tw, perTweet, tweetHits := c.ScoreTweets(tweets)
	return Breakdown{
		BioScore:     bio,
		TweetScore:   tw,
		Total:        bio + tw,
		BioMatches:   bioHits,
		TweetMatches: tweetHits,
		Tweets:       perTweet,
	}
}
