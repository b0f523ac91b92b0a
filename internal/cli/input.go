// Package cli handles cmd line input against a live dictionary session for DBG and testing various features
package cli

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bastiangx/wordvault/pkg/dict"
	"github.com/charmbracelet/log"
)

// InputHandler processes user commands from stdin, editing and querying one
// open dictionary session. Every mutation stays in memory until an explicit
// flush or gc command.
type InputHandler struct {
	dict         *dict.Dictionary
	requestCount int
}

// NewInputHandler handles initialization of the InputHandler over an open session
func NewInputHandler(d *dict.Dictionary) *InputHandler {
	return &InputHandler{dict: d}
}

// Start begins the interface loop.
// It continuously prompts for input, reads a line from stdin,
// and passes the trimmed input to the handleInput() for processing.
// Loop terminates if an error occurs while reading from stdin
func (h *InputHandler) Start() error {
	log.Print("WordVault CLI [BETA]")
	reader := bufio.NewReader(os.Stdin)
	log.Print("type 'help' for commands, Ctrl+C to exit:")

	for {
		log.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		h.handleInput(line)
	}
}

// handleInput processes a single command line.
// It splits the command word off, dispatches to the matching handler and
// periodically triggers a compacting flush when the session wants one.
func (h *InputHandler) handleInput(line string) {
	h.requestCount++
	if h.requestCount%50 == 0 && h.dict.NeedsGC(true) {
		if err := h.dict.FlushWithGC(); err != nil {
			log.Warnf("GC failed: %v", err)
		}
	}

	fields := strings.Fields(line)
	cmd := fields[0]
	args := fields[1:]

	start := time.Now()
	switch cmd {
	case "help":
		printHelp()
	case "add":
		h.cmdAdd(args)
	case "rm":
		h.cmdRemove(args)
	case "freq":
		h.cmdFreq(args)
	case "prop":
		h.cmdProp(args)
	case "bi":
		h.cmdBigram(args)
	case "tri":
		h.cmdTrigram(args)
	case "bos":
		h.cmdBos(args)
	case "q":
		h.cmdQuery(args)
	case "words":
		h.cmdWords()
	case "stats":
		h.cmdStats()
	case "flush":
		h.cmdFlush(false)
	case "gc":
		h.cmdFlush(true)
	case "migrate":
		h.cmdMigrate(args)
	default:
		log.Errorf("Unknown command: %s (try 'help')", cmd)
	}
	log.Debugf("Took [ %v ] for '%s'", time.Since(start), cmd)
}

func printHelp() {
	log.Print("add <word> <prob> [ts]      insert or overwrite a word")
	log.Print("rm <word>                   remove a word")
	log.Print("freq <word>                 stored and case-folded max probability")
	log.Print("prop <word>                 full entry dump")
	log.Print("bi <prev> <word> <prob>     add a bigram")
	log.Print("tri <w1> <w2> <word> <prob> add a trigram for the phrase 'w1 w2'")
	log.Print("bos <word> <prob>           add a sentence-initial bigram")
	log.Print("q <prev> <word>             bigram probability")
	log.Print("words                       list every live word")
	log.Print("stats                       counters and capacities")
	log.Print("flush / gc                  persist, with or without compaction")
	log.Print("migrate <version>           rewrite the file at another format version")
}

func (h *InputHandler) cmdAdd(args []string) {
	if len(args) < 2 || len(args) > 3 {
		log.Errorf("usage: add <word> <prob> [ts]")
		return
	}
	prob, err := strconv.Atoi(args[1])
	if err != nil {
		log.Errorf("Bad probability: %s", args[1])
		return
	}
	var opts dict.UnigramOptions
	if len(args) == 3 {
		ts, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			log.Errorf("Bad timestamp: %s", args[2])
			return
		}
		opts.Timestamp = ts
	}
	if err := h.dict.AddUnigram(args[0], prob, opts); err != nil {
		log.Errorf("add failed: %v", err)
		return
	}
	if h.dict.GetFrequency(args[0]) == dict.NotAProbability {
		log.Warnf("'%s' was rejected (too long?)", args[0])
		return
	}
	log.Printf("ok: %s (prob: %d)", args[0], prob)
}

func (h *InputHandler) cmdRemove(args []string) {
	if len(args) != 1 {
		log.Errorf("usage: rm <word>")
		return
	}
	if err := h.dict.RemoveUnigram(args[0]); err != nil {
		log.Errorf("rm failed: %v", err)
		return
	}
	log.Printf("ok: removed %s", args[0])
}

func (h *InputHandler) cmdFreq(args []string) {
	if len(args) != 1 {
		log.Errorf("usage: freq <word>")
		return
	}
	prob := h.dict.GetFrequency(args[0])
	if prob == dict.NotAProbability {
		log.Warnf("No entry for '%s'", args[0])
		return
	}
	log.Printf("%s: prob %d, exact-max %d", args[0], prob, h.dict.GetMaxFrequencyOfExactMatches(args[0]))
}

func (h *InputHandler) cmdProp(args []string) {
	if len(args) != 1 {
		log.Errorf("usage: prop <word>")
		return
	}
	p := h.dict.GetWordProperty(args[0], false)
	if !p.Valid {
		log.Warnf("No entry for '%s'", args[0])
		return
	}
	printProperty(p)
}

// printProperty dumps one word snapshot over several lines
func printProperty(p dict.WordProperty) {
	clWord := fmt.Sprintf("\033[38;5;75m%s\033[0m", p.Word)
	log.Printf("%s (prob: %d)", clWord, p.Probability)
	if p.NotAWord {
		log.Print("  flag: not-a-word")
	}
	if p.PossiblyOffensive {
		log.Print("  flag: possibly-offensive")
	}
	if p.BeginningOfSentence {
		log.Print("  flag: beginning-of-sentence")
	}
	if p.HasHistory() {
		log.Printf("  history: ts=%d level=%d count=%d", p.Timestamp, p.Level, p.Count)
	}
	for _, sc := range p.Shortcuts {
		log.Printf("  shortcut: %s (prob: %d)", sc.Target, sc.Probability)
	}
	for _, ng := range p.Ngrams {
		log.Printf("  ngram: %s -> %s (prob: %d)", renderContext(ng.Context), ng.Target, ng.Probability)
	}
}

// renderContext prints a context in phrase order, with <s> for the
// beginning-of-sentence marker
func renderContext(ctx dict.NgramContext) string {
	parts := make([]string, 0, len(ctx.Words)+1)
	if ctx.BeginningOfSentence {
		parts = append(parts, "<s>")
	}
	for i := len(ctx.Words) - 1; i >= 0; i-- {
		parts = append(parts, ctx.Words[i])
	}
	return strings.Join(parts, " ")
}

func (h *InputHandler) cmdBigram(args []string) {
	if len(args) != 3 {
		log.Errorf("usage: bi <prev> <word> <prob>")
		return
	}
	prob, err := strconv.Atoi(args[2])
	if err != nil {
		log.Errorf("Bad probability: %s", args[2])
		return
	}
	h.addNgram(dict.BigramContext(args[0]), args[1], prob)
}

func (h *InputHandler) cmdTrigram(args []string) {
	if len(args) != 4 {
		log.Errorf("usage: tri <w1> <w2> <word> <prob>")
		return
	}
	prob, err := strconv.Atoi(args[3])
	if err != nil {
		log.Errorf("Bad probability: %s", args[3])
		return
	}
	h.addNgram(dict.TrigramContext(args[1], args[0]), args[2], prob)
}

func (h *InputHandler) cmdBos(args []string) {
	if len(args) != 2 {
		log.Errorf("usage: bos <word> <prob>")
		return
	}
	prob, err := strconv.Atoi(args[1])
	if err != nil {
		log.Errorf("Bad probability: %s", args[1])
		return
	}
	h.addNgram(dict.BeginningOfSentenceContext(), args[0], prob)
}

func (h *InputHandler) addNgram(ctx dict.NgramContext, target string, prob int) {
	if err := h.dict.AddNgram(ctx, target, prob, 0); err != nil {
		log.Errorf("ngram failed: %v", err)
		return
	}
	if !h.dict.IsValidNgram(ctx, target) {
		log.Warnf("ngram was rejected (unknown words or unsupported by this format?)")
		return
	}
	log.Printf("ok: %s -> %s (prob: %d)", renderContext(ctx), target, prob)
}

func (h *InputHandler) cmdQuery(args []string) {
	if len(args) != 2 {
		log.Errorf("usage: q <prev> <word>")
		return
	}
	prob := h.dict.GetNgramProbability(dict.BigramContext(args[0]), args[1])
	if prob == dict.NotAProbability {
		log.Warnf("No bigram %s -> %s", args[0], args[1])
		return
	}
	log.Printf("%s -> %s: prob %d", args[0], args[1], prob)
}

func (h *InputHandler) cmdWords() {
	count := 0
	token := 0
	for {
		p, next := h.dict.GetNextWordProperty(token)
		if !p.Valid {
			break
		}
		count++
		clWord := fmt.Sprintf("\033[38;5;75m%s\033[0m", p.Word)
		log.Printf("%4d. %-40s (prob: %3d)", count, clWord, p.Probability)
		if next == 0 {
			break
		}
		token = next
	}
	log.Printf("%s words total", formatWithCommas(count))
}

func (h *InputHandler) cmdStats() {
	log.Printf("version:      %d", h.dict.FormatVersion())
	log.Printf("words:        %s", formatWithCommas(statInt(h.dict, dict.StatUnigramCount)))
	log.Printf("bigrams:      %s", formatWithCommas(statInt(h.dict, dict.StatBigramCount)))
	log.Printf("trigrams:     %s", formatWithCommas(statInt(h.dict, dict.StatTrigramCount)))
	log.Printf("max words:    %s", formatWithCommas(statInt(h.dict, dict.StatMaxUnigramCount)))
	log.Printf("max ngrams:   %s", formatWithCommas(statInt(h.dict, dict.StatMaxNgramCount)))
	log.Printf("needs gc:     %v", h.dict.NeedsGC(false))
}

func statInt(d *dict.Dictionary, key string) int {
	n, err := strconv.Atoi(d.Stat(key))
	if err != nil {
		return 0
	}
	return n
}

func (h *InputHandler) cmdFlush(gc bool) {
	var err error
	if gc {
		err = h.dict.FlushWithGC()
	} else {
		err = h.dict.Flush()
	}
	if err != nil {
		log.Errorf("flush failed: %v", err)
		return
	}
	log.Printf("ok: wrote %s", h.dict.Path())
}

func (h *InputHandler) cmdMigrate(args []string) {
	if len(args) != 1 {
		log.Errorf("usage: migrate <version>")
		return
	}
	v, err := strconv.Atoi(args[0])
	if err != nil {
		log.Errorf("Bad version: %s", args[0])
		return
	}
	if err := h.dict.MigrateTo(dict.Version(v)); err != nil {
		log.Errorf("migrate failed: %v", err)
		return
	}
	log.Printf("ok: now at version %d", h.dict.FormatVersion())
}

// formatWithCommas formats an integer with comma separators
func formatWithCommas(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	str := fmt.Sprintf("%d", n)
	result := ""
	for i, char := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(char)
	}
	return result
}
