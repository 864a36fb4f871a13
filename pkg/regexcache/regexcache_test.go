package regexcache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCachesCompiledPattern(t *testing.T) {
	first, err := Get(`cache-[a-z]+`)
	require.NoError(t, err)
	second, err := Get(`cache-[a-z]+`)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestGetInvalidPattern(t *testing.T) {
	_, err := Get(`[unclosed`)
	assert.Error(t, err)
}

func TestMustGetPanicsOnInvalid(t *testing.T) {
	assert.Panics(t, func() { MustGet(`(`) })
}

func TestMatchFull(t *testing.T) {
	tests := []struct {
		pattern string
		value   string
		want    bool
	}{
		{`4[0-9]`, "42", true},
		{`4[0-9]`, "420", false},
		{`4[0-9]`, "142", false},
		{`99`, "42", false},
		{`.*`, "", true},
		{`a|b`, "ab", false},
		{`a|b`, "b", true},
		{`Rex`, "rex", false},
		{`(?i)Rex`, "rex", true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.value, func(t *testing.T) {
			got, err := MatchFull(tt.pattern, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchFullInvalidPattern(t *testing.T) {
	ok, err := MatchFull(`[`, "x")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestConcurrentGet(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := MatchFull(`id-[0-9]+`, "id-7")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}

func TestClear(t *testing.T) {
	_, err := Get(`clear-me`)
	require.NoError(t, err)
	require.Positive(t, Size())
	Clear()
	assert.Equal(t, 0, Size())
}
