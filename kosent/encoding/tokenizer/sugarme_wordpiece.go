package tokenizer

import (
	"fmt"
	"os"
	"path/filepath"

	tk "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/model/wordpiece"
	"github.com/sugarme/tokenizer/normalizer"
	"github.com/sugarme/tokenizer/pretokenizer"
)

// SugarWordPiece wraps sugarme/tokenizer WordPiece (BERT-style). Useful when
// the vocab ships with a HuggingFace checkpoint and normalization parity with
// the Python tokenizer matters more than the in-tree implementation.
type SugarWordPiece struct {
	t *tk.Tokenizer
}

// NewSugarWordPiece loads vocab.txt and builds a BERT WordPiece tokenizer.
// vocabPath may be the vocab file itself or a directory containing vocab.txt.
func NewSugarWordPiece(vocabPath string, lowercase bool) (*SugarWordPiece, error) {
	file := vocabPath
	if fi, err := os.Stat(vocabPath); err == nil && fi.IsDir() {
		file = filepath.Join(vocabPath, "vocab.txt")
	}
	if _, err := os.Stat(file); err != nil {
		return nil, fmt.Errorf("%w: vocab not found at %s", ErrUnsupported, file)
	}

	var wp wordpiece.WordPiece
	if nw, err := wordpiece.NewWordPieceFromFile(file, UnkToken); err == nil {
		wp = nw
	} else {
		builder := wordpiece.NewWordPieceBuilder().Files(file)
		wp = builder.Build()
	}

	t := tk.NewTokenizer(wp)
	t.WithNormalizer(normalizer.NewBertNormalizer(true, lowercase, true, true))
	t.WithPreTokenizer(pretokenizer.NewBertPreTokenizer())
	return &SugarWordPiece{t: t}, nil
}

// Tokenize produces subword tokens without boundary markers; the sequence
// encoder owns [CLS]/[SEP] placement.
func (s *SugarWordPiece) Tokenize(text string) []string {
	enc, err := s.t.Encode(tk.NewSingleEncodeInput(tk.NewInputSequence(text)), false)
	if err != nil {
		return nil
	}
	return enc.GetTokens()
}

func (s *SugarWordPiece) ConvertTokensToIDs(tokens []string) []int64 {
	unkID := int64(100)
	if id, ok := s.t.TokenToId(UnkToken); ok {
		unkID = int64(id)
	}
	ids := make([]int64, len(tokens))
	for i, tok := range tokens {
		if id, ok := s.t.TokenToId(tok); ok {
			ids[i] = int64(id)
		} else {
			ids[i] = unkID
		}
	}
	return ids
}

func (s *SugarWordPiece) ConvertIDsToTokens(ids []int64) []string {
	tokens := make([]string, len(ids))
	for i, id := range ids {
		if tok, ok := s.t.IdToToken(int(id)); ok {
			tokens[i] = tok
		} else {
			tokens[i] = UnkToken
		}
	}
	return tokens
}

// New selects a tokenizer implementation by name ("wordpiece" or "sugarme").
// Unknown names fall back to the in-tree WordPiece.
func New(name string, cfg Config) (Tokenizer, error) {
	switch name {
	case "sugarme":
		return NewSugarWordPiece(cfg.VocabPath, cfg.Lowercase)
	default:
		return LoadWordPieceFromVocab(cfg.VocabPath, cfg.Lowercase)
	}
}
