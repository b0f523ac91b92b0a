package server

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/bastiangx/wordvault/pkg/config"
	"github.com/bastiangx/wordvault/pkg/dict"
)

// Server handles the IPC for one dictionary session
type Server struct {
	mu         sync.Mutex
	dict       *dict.Dictionary
	cfg        *config.Config
	configPath string
	dec        *msgpack.Decoder
	enc        *msgpack.Encoder
	mutations  int
	watcher    *fsnotify.Watcher
}

// NewServer creates a dictionary server using stdin/stdout for IPC
func NewServer(d *dict.Dictionary, cfg *config.Config, configPath string) *Server {
	return NewServerWithIO(d, cfg, configPath, os.Stdin, os.Stdout)
}

// NewServerWithIO builds a server over arbitrary streams, mainly for tests
func NewServerWithIO(d *dict.Dictionary, cfg *config.Config, configPath string, r io.Reader, w io.Writer) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Server{
		dict:       d,
		cfg:        cfg,
		configPath: configPath,
		dec:        msgpack.NewDecoder(r),
		enc:        msgpack.NewEncoder(w),
	}
}

// Start begins listening for IPC requests
func (s *Server) Start() error {
	log.Debug("Starting server.")

	if s.configPath != "" {
		if err := s.watchConfig(); err != nil {
			log.Warnf("Config watcher unavailable: %v", err)
		}
	}
	defer s.stopWatcher()

	// Signal that the server is ready
	s.send(map[string]string{"status": "ready"})

	// incoming requests stdin
	for {
		var req Request
		if err := s.dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			log.Errorf("Reading from stdin: %v", err)
			return err
		}
		s.handleRequest(req)
		s.maybeCollect()
	}
}

// handleRequest dispatches one decoded request
func (s *Server) handleRequest(req Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	switch req.Op {
	case "add_word":
		s.ack(req, start, s.dict.AddUnigram(req.Word, req.Prob, dict.UnigramOptions{
			Timestamp:           req.Timestamp,
			NotAWord:            req.NotAWord,
			PossiblyOffensive:   req.Offensive,
			BeginningOfSentence: req.Bos,
			ShortcutTarget:      req.Shortcut,
			ShortcutProb:        req.ShortcutProb,
		}), true)
	case "remove_word":
		s.ack(req, start, s.dict.RemoveUnigram(req.Word), true)
	case "freq":
		s.value(req, start, s.dict.GetFrequency(req.Word))
	case "exact_max_freq":
		s.value(req, start, s.dict.GetMaxFrequencyOfExactMatches(req.Word))
	case "add_ngram":
		s.ack(req, start, s.dict.AddNgram(requestContext(req), req.Word, req.Prob, req.Timestamp), true)
	case "remove_ngram":
		s.ack(req, start, s.dict.RemoveNgram(requestContext(req), req.Word), true)
	case "ngram_prob":
		s.value(req, start, s.dict.GetNgramProbability(requestContext(req), req.Word))
	case "valid_ngram":
		s.truth(req, start, s.dict.IsValidNgram(requestContext(req), req.Word))
	case "word_prop":
		prop := s.dict.GetWordProperty(req.Word, req.Bos)
		s.word(req, start, prop, 0)
	case "next_word":
		prop, next := s.dict.GetNextWordProperty(req.Token)
		s.word(req, start, prop, next)
	case "needs_gc":
		s.truth(req, start, s.dict.NeedsGC(s.cfg.Server.RespectGCWindow))
	case "stat":
		value := s.dict.Stat(req.Key)
		s.send(StatResponse{
			ID:        req.ID,
			Status:    "ok",
			Key:       req.Key,
			Value:     value,
			TimeTaken: time.Since(start).Microseconds(),
		})
	case "flush":
		s.ack(req, start, s.dict.Flush(), false)
	case "flush_gc":
		s.flushGC(req, start)
	case "migrate":
		s.ack(req, start, s.dict.MigrateTo(dict.Version(req.Version)), false)
	case "ping":
		s.send(Ack{ID: req.ID, Status: "ok", TimeTaken: time.Since(start).Microseconds()})
	default:
		s.sendError(req.ID, fmt.Sprintf("Unknown op: %s", req.Op), 400)
	}
}

// requestContext builds the ngram context from the wire fields
func requestContext(req Request) dict.NgramContext {
	return dict.NgramContext{Words: req.Context, BeginningOfSentence: req.Bos}
}

// ack answers a mutation request. Successful dictionary edits count toward
// the auto-flush threshold.
func (s *Server) ack(req Request, start time.Time, err error, mutation bool) {
	elapsed := time.Since(start).Microseconds()
	if err != nil {
		s.send(Ack{ID: req.ID, Status: "error", Error: err.Error(), TimeTaken: elapsed})
		return
	}
	if mutation {
		s.mutations++
		s.maybeFlush()
	}
	s.send(Ack{ID: req.ID, Status: "ok", TimeTaken: elapsed})
}

func (s *Server) value(req Request, start time.Time, prob int) {
	s.send(ValueResponse{
		ID:        req.ID,
		Status:    "ok",
		Prob:      prob,
		Truth:     prob != dict.NotAProbability,
		TimeTaken: time.Since(start).Microseconds(),
	})
}

func (s *Server) truth(req Request, start time.Time, truth bool) {
	s.send(ValueResponse{
		ID:        req.ID,
		Status:    "ok",
		Prob:      dict.NotAProbability,
		Truth:     truth,
		TimeTaken: time.Since(start).Microseconds(),
	})
}

func (s *Server) word(req Request, start time.Time, prop dict.WordProperty, next int) {
	resp := WordResponse{
		ID:        req.ID,
		Status:    "ok",
		Found:     prop.Valid,
		NextToken: next,
		TimeTaken: time.Since(start).Microseconds(),
	}
	if prop.Valid {
		resp.Word = wordInfoOf(prop)
	}
	s.send(resp)
}

// wordInfoOf flattens a property snapshot into wire form. History fields
// stay zero for plain entries so they drop off the wire.
func wordInfoOf(p dict.WordProperty) *WordInfo {
	info := &WordInfo{
		Word:      p.Word,
		Prob:      p.Probability,
		NotAWord:  p.NotAWord,
		Offensive: p.PossiblyOffensive,
		Bos:       p.BeginningOfSentence,
	}
	if p.HasHistory() {
		info.Timestamp = p.Timestamp
		info.Level = p.Level
		info.Count = p.Count
	}
	for _, sc := range p.Shortcuts {
		info.Shortcuts = append(info.Shortcuts, ShortcutInfo{Target: sc.Target, Prob: sc.Probability})
	}
	for _, ng := range p.Ngrams {
		ni := NgramInfo{
			Context: ng.Context.Words,
			Bos:     ng.Context.BeginningOfSentence,
			Target:  ng.Target,
			Prob:    ng.Probability,
		}
		if ng.Timestamp != dict.NotAValidTimestamp {
			ni.Timestamp = ng.Timestamp
			ni.Level = ng.Level
			ni.Count = ng.Count
		}
		info.Ngrams = append(info.Ngrams, ni)
	}
	return info
}

func (s *Server) flushGC(req Request, start time.Time) {
	if err := s.dict.FlushWithGC(); err != nil {
		s.send(GCResponse{
			ID:        req.ID,
			Status:    "error",
			Error:     err.Error(),
			TimeTaken: time.Since(start).Microseconds(),
		})
		return
	}
	s.mutations = 0
	s.send(GCResponse{
		ID:        req.ID,
		Status:    "ok",
		Unigrams:  s.statInt(dict.StatUnigramCount),
		Bigrams:   s.statInt(dict.StatBigramCount),
		Trigrams:  s.statInt(dict.StatTrigramCount),
		TimeTaken: time.Since(start).Microseconds(),
	})
}

func (s *Server) statInt(key string) int {
	n, err := strconv.Atoi(s.dict.Stat(key))
	if err != nil {
		return 0
	}
	return n
}

// maybeFlush persists the session once enough mutations piled up
func (s *Server) maybeFlush() {
	threshold := s.cfg.Server.AutoFlushOps
	if threshold <= 0 || s.mutations < threshold {
		return
	}
	if err := s.dict.Flush(); err != nil {
		log.Warnf("Auto-flush failed: %v", err)
		return
	}
	log.Debugf("Auto-flushed after %d mutations", s.mutations)
	s.mutations = 0
}

// maybeCollect runs a compacting flush between requests when the session
// asks for one
func (s *Server) maybeCollect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dict.Updatable() || !s.dict.NeedsGC(s.cfg.Server.RespectGCWindow) {
		return
	}
	if err := s.dict.FlushWithGC(); err != nil {
		log.Warnf("Background GC failed: %v", err)
		return
	}
	s.mutations = 0
	log.Debug("Collected garbage between requests",
		"words", s.dict.Stat(dict.StatUnigramCount),
		"bigrams", s.dict.Stat(dict.StatBigramCount))
}

// watchConfig reloads server knobs when the config file changes on disk.
// Watches the directory since editors usually replace the file.
func (s *Server) watchConfig() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(s.configPath)); err != nil {
		watcher.Close()
		return err
	}
	s.watcher = watcher
	go s.reloadLoop(watcher)
	log.Debugf("Watching config file: %s", s.configPath)
	return nil
}

func (s *Server) reloadLoop(watcher *fsnotify.Watcher) {
	target := filepath.Clean(s.configPath)
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			s.reloadConfig()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Warnf("Config watcher error: %v", err)
		}
	}
}

func (s *Server) reloadConfig() {
	cfg, err := config.LoadConfig(s.configPath)
	if err != nil {
		log.Warnf("Config reload failed, keeping previous settings: %v", err)
		return
	}
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	log.Debug("Reloaded config",
		"auto_flush_ops", cfg.Server.AutoFlushOps,
		"respect_gc_window", cfg.Server.RespectGCWindow)
}

func (s *Server) stopWatcher() {
	if s.watcher != nil {
		s.watcher.Close()
		s.watcher = nil
	}
}

// send encodes one response onto the wire
func (s *Server) send(response interface{}) {
	if err := s.enc.Encode(response); err != nil {
		log.Errorf("Encoding response: %v", err)
	}
}

// sendError sends an error response
func (s *Server) sendError(id, message string, code int) {
	s.send(RequestError{ID: id, Error: message, Code: code})
}
