package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimpleTokenizer_Tokenize(t *testing.T) {
	tok := &SimpleTokenizer{}
	ids, attn, types := tok.Tokenize("Hello world", 10)
	assert.Len(t, ids, 10)
	assert.Len(t, types, 10)
	assert.Equal(t, int64(tokenCLS), ids[0])
	assert.Equal(t, int64(tokenSEP), ids[3])
	assert.Equal(t, []int64{1, 1, 1, 1, 0, 0, 0, 0, 0, 0}, attn)
	for _, id := range ids[1:3] {
		assert.GreaterOrEqual(t, id, int64(1000))
		assert.Less(t, id, int64(vocabLimit))
	}
}

func TestSimpleTokenizer_Truncates(t *testing.T) {
	tok := &SimpleTokenizer{}
	ids, attn, _ := tok.Tokenize("a b c d e f g h", 4)
	assert.Len(t, ids, 4)
	assert.Equal(t, int64(tokenSEP), ids[3])
	assert.Equal(t, []int64{1, 1, 1, 1}, attn)
}

func TestSplitWords(t *testing.T) {
	assert.Equal(t, []string{"class_name", "UserRepo", "get", "save"}, SplitWords("class_name: UserRepo\nget, save"))
	assert.Empty(t, SplitWords("  \t\n"))
}

func TestHashString(t *testing.T) {
	assert.Equal(t, HashString("abc"), HashString("abc"))
	assert.NotEqual(t, HashString("abc"), HashString("abd"))
	assert.GreaterOrEqual(t, HashString("a very long string that overflows the accumulator many times"), 0)
}
