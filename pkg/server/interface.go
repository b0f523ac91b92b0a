/*
Package server implements msgpack IPC for dictionary sessions.

The server package provides a minimal interface for mutating and querying a
word dictionary using msgpack serialization over stdin/stdout.

The protocol uses binary msgpack encoding and supports unigram and ngram
edits, probability queries, word property lookups, maintenance ops and
format migration. Messages are processed synchronously with timing info
included in responses.

# IPC

The server operates on a request response model where clients send structured
messages via stdin and receive responses through stdout. Each message
contains an ID field, an op field and other fields based on the operation
type.

Unigram edits use mainly this structure:

	{"id": "req_001", "op": "add_word", "w": "hello", "p": 180}

The server acknowledges with status and timing:

	{"id": "req_001", "status": "ok", "t": 86}

Probability queries return the stored score, -1 when the word or the
association is unknown:

	{"id": "req_002", "op": "freq", "w": "hello"}
	{"id": "req_002", "status": "ok", "p": 180, "t": 21}

Ngram ops carry their context as the list of preceding words, most recent
first, with an optional beginning-of-sentence flag:

	{"id": "req_003", "op": "add_ngram", "ctx": ["hello"], "w": "world", "p": 140}
	{"id": "req_004", "op": "ngram_prob", "ctx": ["world", "hello"], "w": "again"}

Maintenance ops (flush, flush_gc, needs_gc, stat, migrate) manage the
session without restarting the host process:

	{"id": "m_001", "op": "stat", "k": "UNIGRAM_COUNT"}
	{"id": "m_002", "op": "migrate", "v": 402}

Response structures include status information and error details when an op
fails.

The server counts mutations for periodic auto-flushing and runs garbage
collection between requests whenever the session asks for it. The config
file is watched and reloaded on change, so capacity and flush knobs adjust
without restart.

# Message Types

Request is the envelope for every operation; unused fields are simply
omitted from the wire message.

Ack acknowledges mutations. ValueResponse carries probability and boolean
query results. WordResponse returns full word snapshots for property
lookups and iteration. StatResponse answers counter queries and GCResponse
reports post-collection counts.

msgpack encoding has ~30 to 50% smaller message sizes compared to JSON.
binary format enables faster parsing and generation, less errors and
reducing latency in most cases.
*/
package server

// Request is the envelope for every dictionary operation.
type Request struct {
	ID           string   `msgpack:"id"`
	Op           string   `msgpack:"op"`
	Word         string   `msgpack:"w,omitempty"`
	Prob         int      `msgpack:"p,omitempty"`
	Context      []string `msgpack:"ctx,omitempty"`
	Bos          bool     `msgpack:"bos,omitempty"`
	Timestamp    int64    `msgpack:"ts,omitempty"`
	NotAWord     bool     `msgpack:"naw,omitempty"`
	Offensive    bool     `msgpack:"off,omitempty"`
	Shortcut     string   `msgpack:"sc,omitempty"`
	ShortcutProb int      `msgpack:"scp,omitempty"`
	Key          string   `msgpack:"k,omitempty"`
	Token        int      `msgpack:"tok,omitempty"`
	Version      int      `msgpack:"v,omitempty"`
}

// Ack - status-only response for mutation ops
type Ack struct {
	ID        string `msgpack:"id"`
	Status    string `msgpack:"status"`
	Error     string `msgpack:"error,omitempty"`
	TimeTaken int64  `msgpack:"t"`
}

// ValueResponse - probability or boolean query response
type ValueResponse struct {
	ID        string `msgpack:"id"`
	Status    string `msgpack:"status"`
	Prob      int    `msgpack:"p"`
	Truth     bool   `msgpack:"b"`
	TimeTaken int64  `msgpack:"t"`
}

// StatResponse - counter / attribute query response
type StatResponse struct {
	ID        string `msgpack:"id"`
	Status    string `msgpack:"status"`
	Key       string `msgpack:"k"`
	Value     string `msgpack:"val"`
	TimeTaken int64  `msgpack:"t"`
}

// ShortcutInfo - one alternate spelling in a word snapshot
type ShortcutInfo struct {
	Target string `msgpack:"w"`
	Prob   int    `msgpack:"p"`
}

// NgramInfo - one association in a word snapshot
type NgramInfo struct {
	Context   []string `msgpack:"ctx"`
	Bos       bool     `msgpack:"bos,omitempty"`
	Target    string   `msgpack:"w"`
	Prob      int      `msgpack:"p"`
	Timestamp int64    `msgpack:"ts,omitempty"`
	Level     int      `msgpack:"lvl,omitempty"`
	Count     int      `msgpack:"cnt,omitempty"`
}

// WordInfo - full snapshot of one word entry
type WordInfo struct {
	Word      string         `msgpack:"w"`
	Prob      int            `msgpack:"p"`
	NotAWord  bool           `msgpack:"naw,omitempty"`
	Offensive bool           `msgpack:"off,omitempty"`
	Bos       bool           `msgpack:"bos,omitempty"`
	Timestamp int64          `msgpack:"ts,omitempty"`
	Level     int            `msgpack:"lvl,omitempty"`
	Count     int            `msgpack:"cnt,omitempty"`
	Shortcuts []ShortcutInfo `msgpack:"sc,omitempty"`
	Ngrams    []NgramInfo    `msgpack:"ng,omitempty"`
}

// WordResponse - word property / iteration response
type WordResponse struct {
	ID        string    `msgpack:"id"`
	Status    string    `msgpack:"status"`
	Found     bool      `msgpack:"found"`
	Word      *WordInfo `msgpack:"word,omitempty"`
	NextToken int       `msgpack:"tok"`
	TimeTaken int64     `msgpack:"t"`
}

// GCResponse - flush_gc response with post-collection counts
type GCResponse struct {
	ID        string `msgpack:"id"`
	Status    string `msgpack:"status"`
	Error     string `msgpack:"error,omitempty"`
	Unigrams  int    `msgpack:"uni"`
	Bigrams   int    `msgpack:"bi"`
	Trigrams  int    `msgpack:"tri"`
	TimeTaken int64  `msgpack:"t"`
}

// RequestError holds basic error information for failed requests
type RequestError struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}
