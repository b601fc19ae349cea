package tokenizer

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/armon/go-radix"
)

// WordPiece is a greedy longest-match-first subword tokenizer backed by a
// vocab.txt file (one token per line, line number = id). Longest-prefix
// lookups go through a patricia tree so matching a piece is O(k) in the piece
// length rather than a scan over candidate substrings.
type WordPiece struct {
	vocab     map[string]int64
	inverse   []string
	tree      *radix.Tree
	lowercase bool
	unkID     int64
	clsID     int64
	sepID     int64
}

// maxCharsPerWord mirrors the usual WordPiece guard: absurdly long "words"
// (URLs, run-together garbage) go straight to [UNK].
const maxCharsPerWord = 100

// LoadWordPieceFromVocab reads a vocab.txt and builds the tokenizer.
func LoadWordPieceFromVocab(path string, lowercase bool) (*WordPiece, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocab: %w", err)
	}
	defer f.Close()

	vocab := make(map[string]int64, 60000)
	inverse := make([]string, 0, 60000)
	tree := radix.New()
	var idx int64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		tok := strings.TrimRight(scanner.Text(), "\r\n")
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		vocab[tok] = idx
		inverse = append(inverse, tok)
		tree.Insert(tok, idx)
		idx++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read vocab: %w", err)
	}
	if len(vocab) == 0 {
		return nil, fmt.Errorf("%w: empty vocabulary at %s", ErrUnsupported, path)
	}

	wp := &WordPiece{vocab: vocab, inverse: inverse, tree: tree, lowercase: lowercase}
	// Defaults match the standard BERT vocab layout when the markers are absent.
	wp.unkID = lookupOr(vocab, UnkToken, 100)
	wp.clsID = lookupOr(vocab, ClsToken, 101)
	wp.sepID = lookupOr(vocab, SepToken, 102)
	return wp, nil
}

func lookupOr(vocab map[string]int64, token string, fallback int64) int64 {
	if id, ok := vocab[token]; ok {
		return id
	}
	return fallback
}

// Tokenize splits text on whitespace and punctuation, then decomposes each
// word into greedy longest-match subword pieces. A word with no matching
// prefix collapses to a single [UNK].
func (w *WordPiece) Tokenize(text string) []string {
	words := w.pretokenize(text)
	pieces := make([]string, 0, len(words))
	for _, word := range words {
		pieces = append(pieces, w.wordToPieces(word)...)
	}
	return pieces
}

// ConvertTokensToIDs maps tokens through the vocabulary; unknown tokens map
// to the [UNK] id.
func (w *WordPiece) ConvertTokensToIDs(tokens []string) []int64 {
	ids := make([]int64, len(tokens))
	for i, tok := range tokens {
		if id, ok := w.vocab[tok]; ok {
			ids[i] = id
		} else {
			ids[i] = w.unkID
		}
	}
	return ids
}

// ConvertIDsToTokens is the inverse vocabulary lookup. Out-of-range ids map
// to [UNK].
func (w *WordPiece) ConvertIDsToTokens(ids []int64) []string {
	tokens := make([]string, len(ids))
	for i, id := range ids {
		if id >= 0 && id < int64(len(w.inverse)) {
			tokens[i] = w.inverse[id]
		} else {
			tokens[i] = UnkToken
		}
	}
	return tokens
}

// pretokenize performs BERT-style basic tokenization: strip control runes,
// optional case folding, and splitting punctuation into standalone words.
func (w *WordPiece) pretokenize(text string) []string {
	var b strings.Builder
	b.Grow(len(text) + 16)
	for _, r := range text {
		switch {
		case r == 0 || r == unicode.ReplacementChar || unicode.IsControl(r):
			continue
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			b.WriteRune(' ')
			b.WriteRune(r)
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	s := b.String()
	if w.lowercase {
		s = strings.ToLower(s)
	}
	return strings.Fields(s)
}

func (w *WordPiece) wordToPieces(word string) []string {
	if len([]rune(word)) > maxCharsPerWord {
		return []string{UnkToken}
	}
	var pieces []string
	rest := word
	for len(rest) > 0 {
		query := rest
		if len(pieces) > 0 {
			query = "##" + rest
		}
		match, _, ok := w.tree.LongestPrefix(query)
		// A bare "##" continuation marker is not a real piece.
		if !ok || match == "" || match == "##" {
			return []string{UnkToken}
		}
		consumed := len(match)
		if len(pieces) > 0 {
			consumed -= len("##")
		}
		if consumed <= 0 {
			return []string{UnkToken}
		}
		pieces = append(pieces, match)
		rest = rest[consumed:]
	}
	return pieces
}
