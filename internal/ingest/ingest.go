package ingest

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/sync/errgroup"

	"github.com/bastiangx/wordvault/pkg/dict"
)

// FromReader tokenizes plain text and returns its counts.
func FromReader(r io.Reader, tok Tokenizer) (*Counts, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}
	counts := NewCounts()
	for _, sentence := range tok.Sentences(string(data)) {
		counts.Observe(sentence)
	}
	return counts, nil
}

// FromHTML extracts the readable article text from an HTML document and
// counts that. pageURL may be empty for local files.
func FromHTML(r io.Reader, pageURL string, tok Tokenizer) (*Counts, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		u = &url.URL{}
	}
	article, err := readability.FromReader(r, u)
	if err != nil {
		return nil, fmt.Errorf("failed to extract article: %w", err)
	}
	return FromReader(strings.NewReader(article.TextContent), tok)
}

// FromFiles tokenizes many files concurrently and merges their counts.
// Files ending in .html or .htm go through article extraction first.
func FromFiles(ctx context.Context, paths []string, tok Tokenizer, workers int) (*Counts, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var mu sync.Mutex
	total := NewCounts()
	for _, path := range paths {
		path := path
		g.Go(func() error {
			counts, err := fromFile(path, tok)
			if err != nil {
				return err
			}
			mu.Lock()
			total.Merge(counts)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return total, nil
}

func fromFile(path string, tok Tokenizer) (*Counts, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return FromHTML(f, "", tok)
	default:
		return FromReader(f, tok)
	}
}

// ApplyOptions bound what Apply writes into a session.
type ApplyOptions struct {
	MaxWords int // 0 means no cap
	MinCount int // observations below this are noise; min 1
	Bigrams  bool
	Trigrams bool
}

// Applied reports what Apply added.
type Applied struct {
	Words    int
	Bigrams  int
	Trigrams int
}

// Apply scales counts into 1..255 probabilities and writes them through an
// open session. Ngrams are only added between words that made the cut, so
// a MaxWords cap trims the associations with it.
func (c *Counts) Apply(d *dict.Dictionary, opt ApplyOptions) (Applied, error) {
	var applied Applied
	if opt.MinCount < 1 {
		opt.MinCount = 1
	}

	type wordCount struct {
		word  string
		count int
	}
	ranked := make([]wordCount, 0, len(c.Words))
	maxCount := 0
	for w, n := range c.Words {
		if n < opt.MinCount {
			continue
		}
		ranked = append(ranked, wordCount{w, n})
		if n > maxCount {
			maxCount = n
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].word < ranked[j].word
	})
	if opt.MaxWords > 0 && len(ranked) > opt.MaxWords {
		ranked = ranked[:opt.MaxWords]
	}

	kept := make(map[string]bool, len(ranked))
	for _, wc := range ranked {
		if err := d.AddUnigram(wc.word, scaleProbability(wc.count, maxCount), dict.UnigramOptions{}); err != nil {
			return applied, err
		}
		if d.GetFrequency(wc.word) == dict.NotAProbability {
			continue
		}
		kept[wc.word] = true
		applied.Words++
	}

	if opt.Bigrams {
		maxBi := 0
		for _, n := range c.Bigrams {
			if n > maxBi {
				maxBi = n
			}
		}
		for bg, n := range c.Bigrams {
			if n < opt.MinCount || !kept[bg.Prev] || !kept[bg.Word] {
				continue
			}
			ctx := dict.BigramContext(bg.Prev)
			if err := d.AddNgram(ctx, bg.Word, scaleProbability(n, maxBi), 0); err != nil {
				return applied, err
			}
			if d.IsValidNgram(ctx, bg.Word) {
				applied.Bigrams++
			}
		}
		// sentence-initial words ride on the beginning-of-sentence marker
		maxBos := 0
		for _, n := range c.BosWords {
			if n > maxBos {
				maxBos = n
			}
		}
		for w, n := range c.BosWords {
			if n < opt.MinCount || !kept[w] {
				continue
			}
			ctx := dict.BeginningOfSentenceContext()
			if err := d.AddNgram(ctx, w, scaleProbability(n, maxBos), 0); err != nil {
				return applied, err
			}
			if d.IsValidNgram(ctx, w) {
				applied.Bigrams++
			}
		}
	}

	if opt.Trigrams {
		maxTri := 0
		for _, n := range c.Trigrams {
			if n > maxTri {
				maxTri = n
			}
		}
		for tg, n := range c.Trigrams {
			if n < opt.MinCount || !kept[tg.PrevPrev] || !kept[tg.Prev] || !kept[tg.Word] {
				continue
			}
			ctx := dict.TrigramContext(tg.Prev, tg.PrevPrev)
			if err := d.AddNgram(ctx, tg.Word, scaleProbability(n, maxTri), 0); err != nil {
				return applied, err
			}
			if d.IsValidNgram(ctx, tg.Word) {
				applied.Trigrams++
			}
		}
	}

	log.Debug("Applied corpus counts",
		"words", applied.Words,
		"bigrams", applied.Bigrams,
		"trigrams", applied.Trigrams)
	return applied, nil
}

// scaleProbability maps a raw count onto 1..255 relative to the most
// frequent entry.
func scaleProbability(count, maxCount int) int {
	if maxCount <= 0 {
		return 1
	}
	p := count * dict.MaxProbability / maxCount
	if p < 1 {
		p = 1
	}
	return p
}
