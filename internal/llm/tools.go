package llm

import "strings"

// toolDenySubstrings marks model families known to lack reliable
// function-calling. Probed by name; there is no capability API.
var toolDenySubstrings = []string{
	"o1-",
	"instruct",
	"embedding",
	"whisper",
	"-lite",
}

// SupportsTools reports whether a model can be offered a tool schema.
// Unknown models are assumed capable; a failed call degrades gracefully
// through the batch coordinator's fan-out path anyway.
func SupportsTools(model string) bool {
	m := strings.ToLower(model)
	for _, deny := range toolDenySubstrings {
		if strings.Contains(m, deny) {
			return false
		}
	}
	return true
}
