package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeLenient(t *testing.T) {
	type doc struct {
		Summary string `json:"summary"`
	}

	t.Run("plain JSON passes through", func(t *testing.T) {
		var d doc
		require.NoError(t, DecodeLenient(`{"summary":"ok"}`, &d))
		assert.Equal(t, "ok", d.Summary)
	})

	t.Run("strips markdown fences", func(t *testing.T) {
		var d doc
		require.NoError(t, DecodeLenient("```json\n{\"summary\":\"ok\"}\n```", &d))
		assert.Equal(t, "ok", d.Summary)
	})

	t.Run("slices surrounding prose away", func(t *testing.T) {
		var d doc
		raw := "분석 결과는 다음과 같습니다: {\"summary\":\"ok\"} 이상입니다."
		require.NoError(t, DecodeLenient(raw, &d))
		assert.Equal(t, "ok", d.Summary)
	})

	t.Run("hopeless input fails", func(t *testing.T) {
		var d doc
		assert.Error(t, DecodeLenient("no json here", &d))
	})
}

func TestExtractObject(t *testing.T) {
	out, err := ExtractObject("```json\n{\"a\":1}\n```")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, out)

	out, err = ExtractObject("prefix {\"a\":1} suffix")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, out)

	_, err = ExtractObject("plain")
	assert.ErrorIs(t, err, ErrNotJSON)
}
