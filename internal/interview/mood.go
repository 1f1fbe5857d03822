package interview

// Greetings and checkpoint intros adapt to the mental state chosen at the
// start of a session. Selection is deterministic so sessions replay the same.

var greetings = map[string][]string{
	"good": {
		"Great to hear. Let's build your profile.",
		"Glad you're feeling good. Here we go.",
	},
	"average": {
		"Thanks for telling me. We'll take it one question at a time.",
		"Understood. Answer what you can; you can skip anything.",
	},
	"bad": {
		"Sorry it's a rough day. Keep answers short if you like, and skip freely.",
		"No pressure today. Every question can be skipped.",
	},
	"not_specified": {
		"No problem. Let's get started.",
	},
}

var checkpointIntros = map[string]string{
	"good":          "Here's what I have so far:",
	"average":       "A quick look at what we covered:",
	"bad":           "Just a short recap, nothing to do unless something is wrong:",
	"not_specified": "Here is a summary of your answers so far:",
}

const defaultCheckpointIntro = "Here is a summary of your answers so far:"

// Greeting returns the greeting for mood, chosen by turn.
func Greeting(mood string, turn int) string {
	options, ok := greetings[mood]
	if !ok {
		options = greetings["not_specified"]
	}
	if turn < 0 {
		turn = -turn
	}
	return options[turn%len(options)]
}

// CheckpointIntro returns the line shown before a checkpoint summary.
func CheckpointIntro(mood string) string {
	if s, ok := checkpointIntros[mood]; ok {
		return s
	}
	return defaultCheckpointIntro
}
