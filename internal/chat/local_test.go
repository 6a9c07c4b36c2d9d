package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocalReply_Categories(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"math keyword", "can you help me with this math problem?", replyMath},
		{"calculate keyword", "calculate 15% of 200", replyMath},
		{"equation keyword", "solve the equation x+2=5", replyMath},
		{"code keyword", "my code won't compile", replyProgramming},
		{"python keyword", "how do I read a file in python", replyProgramming},
		{"study keyword", "how should I study for finals", replyLearning},
		{"productivity keyword", "any productivity tips?", replyLearning},
		{"science keyword", "explain this science concept", replyScience},
		{"physics keyword", "what is physics about", replyScience},
		{"essay keyword", "help me structure my essay", replyWriting},
		{"grammar keyword", "check my grammar please", replyWriting},
		{"hello greeting", "hello there", replyGreeting},
		{"no category match", "tell me about turtles", replyDefault},
		{"empty input", "", replyEmpty},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, LocalReply(tc.input))
		})
	}
}

func TestLocalReply_CaseInsensitive(t *testing.T) {
	t.Parallel()

	assert.Equal(t, replyMath, LocalReply("MATH HOMEWORK"))
	assert.Equal(t, replyGreeting, LocalReply("Hello!"))
}

func TestLocalReply_Deterministic(t *testing.T) {
	t.Parallel()

	// Same trailing text always selects the same category.
	input := "help me calculate something"
	first := LocalReply(input)
	for range 10 {
		assert.Equal(t, first, LocalReply(input))
	}
}

func TestLocalReply_PriorityOrder(t *testing.T) {
	t.Parallel()

	// Math is checked before programming when both keyword sets match.
	assert.Equal(t, replyMath, LocalReply("write code to calculate primes"))
}
