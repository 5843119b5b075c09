package lsh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/neardup/pkg/alg/shingle"
)

func newTestComputer(t *testing.T, k int) *Computer {
	t.Helper()

	sh, err := shingle.NewWord(k)
	require.NoError(t, err)

	l, err := NewForThreshold(DefaultStages, SimplifiedDictSize, DefaultSeed, NewsTopicModelThreshold)
	require.NoError(t, err)

	return NewComputer(sh, l)
}

func TestPresets(t *testing.T) {
	t.Parallel()

	dedup, err := NewIndexDeduplication()
	require.NoError(t, err)
	assert.Equal(t, DefaultStages, dedup.Stages())
	assert.Equal(t, DefaultWordK, dedup.K())
	assert.Equal(t, 450, dedup.LSH().SignatureSize())

	news, err := NewNewsTopicModel()
	require.NoError(t, err)
	assert.Equal(t, 110, news.LSH().SignatureSize())
}

func TestComputer_SignatureNeedsMoreThanKShingles(t *testing.T) {
	t.Parallel()

	c := newTestComputer(t, 2)

	// Three words give two bigrams, which is not more than k.
	assert.Nil(t, c.Signature("one two three"))

	sig := c.Signature("one two three four")
	require.Len(t, sig, DefaultStages)
	assert.Equal(t, sig, c.Signature("one, two  three. four"))
}

func TestComputer_SignatureOfWords(t *testing.T) {
	t.Parallel()

	c := newTestComputer(t, 3)

	assert.Nil(t, c.SignatureOfWords([]string{"a", "b"}))
	assert.Nil(t, c.SignatureOfWords([]string{"a", "a", "b", "b"}))

	sig := c.SignatureOfWords([]string{"alpha", "beta", "gamma"})
	require.Len(t, sig, DefaultStages)

	assert.Equal(t, sig, c.SignatureOfWords([]string{"gamma", "alpha", "beta", "beta"}))
}

func TestComputer_Converters(t *testing.T) {
	t.Parallel()

	c := newTestComputer(t, 2)

	full, err := c.Sig64Converter()
	require.NoError(t, err)
	assert.Equal(t, 45, full.Stage64Bit())

	reduced, err := c.ReducedSig64Converter(6, 3)
	require.NoError(t, err)
	assert.Equal(t, 12, reduced.Stage64Bit())

	_, err = c.ReducedSig64Converter(11, 0)
	require.ErrorIs(t, err, ErrReducedStages)
}
