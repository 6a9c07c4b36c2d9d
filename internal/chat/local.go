package chat

import "strings"

// Canned replies for the local responder, keyed by topic.
const (
	replyMath = "I'd be happy to help you with math! Please share the specific problem or equation."

	replyProgramming = "I can help with programming questions. Share the code or error and I'll assist."

	replyLearning = "Staying on top of studying is easier with a plan. Tell me what you're working on and I'll help you break it down."

	replyScience = "Science questions are my favorite. Tell me the topic or concept and I'll explain it step by step."

	replyWriting = "I can help with writing — essays, summaries, grammar, or structure. Paste your draft or describe the assignment."

	replyGreeting = "Hello! I'm Nexus, your AI assistant. What can I help you with today?"

	replyDefault = "Thanks for your question — can you provide a bit more detail?"

	replyEmpty = "Hi — what can I help you with today?"
)

// localRule pairs a set of trigger keywords with a canned reply.
type localRule struct {
	keywords []string
	reply    string
}

// localRules are checked in order; the first rule with a matching keyword
// wins. The category set is fixed: math, programming, learning, science,
// writing, greeting, then a generic prompt for detail.
var localRules = []localRule{
	{[]string{"math", "calculate", "equation"}, replyMath},
	{[]string{"code", "programming", "python", "javascript"}, replyProgramming},
	{[]string{"study", "learn", "productivity"}, replyLearning},
	{[]string{"science", "physics", "chemistry", "biology"}, replyScience},
	{[]string{"write", "essay", "grammar"}, replyWriting},
	{[]string{"hello", "hi", "hey"}, replyGreeting},
}

// LocalReply computes a deterministic reply by matching the lowercased
// user text against the topic keyword rules. It is a pure function and
// always returns a non-empty string, so the fallback chain it terminates
// cannot fail.
func LocalReply(userText string) string {
	text := strings.ToLower(userText)
	if text == "" {
		return replyEmpty
	}

	for _, rule := range localRules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return rule.reply
			}
		}
	}

	return replyDefault
}
