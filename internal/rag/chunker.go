// Package rag binds retrieval assets to prompt context slots and prepares
// document text for embedding.
package rag

import (
	"strings"
	"sync"
	"unicode"

	"github.com/pkoukk/tiktoken-go"
)

var (
	encoder     *tiktoken.Tiktoken
	encoderOnce sync.Once
)

func tokenizer() *tiktoken.Tiktoken {
	encoderOnce.Do(func() {
		var err error
		encoder, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			panic("failed to load tiktoken encoding: " + err.Error())
		}
	})
	return encoder
}

func countTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(tokenizer().Encode(text, nil, nil))
}

// ChunkerConfig bounds chunk size in tokens. Overlap carries trailing
// sentences of one chunk into the next so passages keep their lead-in.
type ChunkerConfig struct {
	MaxTokens     int
	OverlapTokens int
}

// DefaultChunkerConfig fits the context windows of the supported embedding
// models.
func DefaultChunkerConfig() ChunkerConfig {
	return ChunkerConfig{MaxTokens: 400, OverlapTokens: 50}
}

// ChunkText splits text into sentence-aligned chunks of at most
// cfg.MaxTokens tokens. Sentences longer than the limit are sliced at
// token boundaries.
func ChunkText(text string, cfg ChunkerConfig) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	sentences := splitSentences(text)

	var chunks []string
	var current strings.Builder
	currentTokens := 0

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
			currentTokens = 0
		}
	}

	for i, sentence := range sentences {
		tokens := countTokens(sentence)

		if tokens > cfg.MaxTokens {
			flush()
			chunks = append(chunks, sliceByTokens(sentence, cfg.MaxTokens)...)
			continue
		}

		if currentTokens+tokens > cfg.MaxTokens && current.Len() > 0 {
			flush()
			overlap := trailingSentences(sentences, i, cfg.OverlapTokens)
			current.WriteString(overlap)
			currentTokens = countTokens(overlap)
		}

		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sentence)
		currentTokens += tokens
	}
	flush()

	return chunks
}

// sliceByTokens cuts text at raw token boundaries, for sentences that
// exceed the chunk limit on their own.
func sliceByTokens(text string, maxTokens int) []string {
	enc := tokenizer()
	tokens := enc.Encode(text, nil, nil)

	var out []string
	for i := 0; i < len(tokens); i += maxTokens {
		end := i + maxTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		out = append(out, strings.TrimSpace(enc.Decode(tokens[i:end])))
	}
	return out
}

var sentenceEnders = map[rune]bool{
	'.': true, '!': true, '?': true,
	'。': true, '！': true, '？': true, '…': true,
}

// splitSentences breaks text into sentences, paragraph by paragraph.
// Single newlines inside a paragraph are treated as soft wraps.
func splitSentences(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var sentences []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(strings.ReplaceAll(para, "\n", " "))
		if para == "" {
			continue
		}

		var current strings.Builder
		runes := []rune(para)
		for i, r := range runes {
			current.WriteRune(r)
			if sentenceEnders[r] && (i+1 >= len(runes) || unicode.IsSpace(runes[i+1])) {
				if s := strings.TrimSpace(current.String()); s != "" {
					sentences = append(sentences, s)
				}
				current.Reset()
			}
		}
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
	}

	if len(sentences) == 0 {
		return []string{text}
	}
	return sentences
}

// trailingSentences collects whole sentences preceding index i until the
// overlap token target is met.
func trailingSentences(sentences []string, i, targetTokens int) string {
	if i == 0 || targetTokens <= 0 {
		return ""
	}
	var overlap []string
	tokens := 0
	for j := i - 1; j >= 0 && tokens < targetTokens; j-- {
		overlap = append([]string{sentences[j]}, overlap...)
		tokens += countTokens(sentences[j])
	}
	return strings.Join(overlap, " ")
}
