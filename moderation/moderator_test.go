package moderation

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

const replacementChar = '*'

// The dictionary uses specific words to avoid partial collisions (e.g., "he" inside "The")
func TestModerator_Censor(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	dictionary := []string{"badger", "snake", "mushroom"}
	mod, err := NewModerator(dictionary, replacementChar, log)
	require.NoError(t, err)

	tests := []struct {
		name     string
		input    string
		expected string
		censored bool
	}{
		{"Simple word and space preservation", "The badger is here", "The ****** is here", true},
		{"Multiple occurrences and preserved spacing", "badger badger badger", "****** ****** ******", true},
		{"Leet speak and internal punctuation", "Look at B.4.d.g.€r !", "Look at ********** !", true},
		{"Uppercase and extreme noise", "S-N-A-K-E is a B.A.D.G.E.R", "********* is a ***********", true},
		{"Accents and special characters (UTF-8)", "Un été avec un badger", "Un été avec un ******", true},
		{"Word adjacent to trailing punctuation", "I love badger!", "I love ******!", true},
		{"Nothing to censor", "hello bob", "hello bob", false},
		{"Empty string", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			content, censored := mod.Censor(tt.input)
			req.Equal(tt.expected, content)
			req.Equal(tt.censored, censored)
		})
	}
}

func TestModerator_CornerCases(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	// Given real noise and not leet speak associated
	dictionary := []string{"...", ",,,", "", "badger"}

	mod, err := NewModerator(dictionary, replacementChar, log)
	req.NoError(err)

	// Then the sentence is censored
	content, censored := mod.Censor("The badger is safe")
	req.Equal("The ****** is safe", content)
	req.True(censored)

	// Then real noise is uncensored
	content, censored = mod.Censor("Hello ...")
	req.Equal("Hello ...", content)
	req.False(censored)
}

func TestModerator_NoUsableWords(t *testing.T) {
	_, err := NewModerator([]string{"", "  ", "..."}, replacementChar, logs.GetLoggerFromLevel(slog.LevelError))
	require.ErrorIs(t, err, ErrEmptyWords)
}

func TestModerator_SharedAcrossGoroutines(t *testing.T) {
	req := require.New(t)
	mod, err := NewModerator([]string{"badger"}, replacementChar, logs.GetLoggerFromLevel(slog.LevelError))
	req.NoError(err)

	var wg sync.WaitGroup
	results := make(chan string, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			content, _ := mod.Censor("a badger appears")
			results <- content
		}()
	}
	wg.Wait()
	close(results)

	for content := range results {
		req.Equal("a ****** appears", content)
	}
}
