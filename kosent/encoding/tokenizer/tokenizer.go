package tokenizer

import (
	"fmt"
)

// Reserved vocabulary entries consumed by the encoder's classification
// convention. Padding is id 0 across all supported vocabularies.
const (
	PadToken = "[PAD]"
	UnkToken = "[UNK]"
	ClsToken = "[CLS]"
	SepToken = "[SEP]"
)

// Tokenizer converts raw text to subword tokens and maps tokens to vocabulary
// ids. The vocabulary and normalization behavior must match the pretrained
// encoder the ids are fed into.
type Tokenizer interface {
	Tokenize(text string) []string
	ConvertTokensToIDs(tokens []string) []int64
	ConvertIDsToTokens(ids []int64) []string
}

// Config holds basic tokenizer settings
type Config struct {
	VocabPath string
	Lowercase bool
}

// ErrUnsupported indicates the tokenizer could not be initialized
var ErrUnsupported = fmt.Errorf("unsupported tokenizer configuration")
