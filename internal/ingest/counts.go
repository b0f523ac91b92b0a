package ingest

// Bigram is one observed word pair, in reading order.
type Bigram struct {
	Prev string
	Word string
}

// Trigram is one observed word triple, in reading order.
type Trigram struct {
	PrevPrev string
	Prev     string
	Word     string
}

// Counts accumulates word and ngram frequencies from a corpus. Observe
// feeds it one sentence at a time; Merge folds parallel workers together.
type Counts struct {
	Words     map[string]int
	Bigrams   map[Bigram]int
	Trigrams  map[Trigram]int
	BosWords  map[string]int
	Sentences int
}

func NewCounts() *Counts {
	return &Counts{
		Words:    make(map[string]int),
		Bigrams:  make(map[Bigram]int),
		Trigrams: make(map[Trigram]int),
		BosWords: make(map[string]int),
	}
}

// Observe folds one sentence of tokens into the counts.
func (c *Counts) Observe(sentence []string) {
	if len(sentence) == 0 {
		return
	}
	c.Sentences++
	for i, w := range sentence {
		c.Words[w]++
		if i == 0 {
			c.BosWords[w]++
		}
		if i >= 1 {
			c.Bigrams[Bigram{sentence[i-1], w}]++
		}
		if i >= 2 {
			c.Trigrams[Trigram{sentence[i-2], sentence[i-1], w}]++
		}
	}
}

// Merge adds another count set into this one.
func (c *Counts) Merge(other *Counts) {
	for w, n := range other.Words {
		c.Words[w] += n
	}
	for bg, n := range other.Bigrams {
		c.Bigrams[bg] += n
	}
	for tg, n := range other.Trigrams {
		c.Trigrams[tg] += n
	}
	for w, n := range other.BosWords {
		c.BosWords[w] += n
	}
	c.Sentences += other.Sentences
}
