package social

import "hash/fnv"

var agentColors = []string{
	"#10b981", "#3b82f6", "#ef4444", "#f59e0b",
	"#8b5cf6", "#ec4899", "#06b6d4", "#84cc16",
}

const fallbackColor = "#6b7280"

// colorFor assigns a display color from a stable hash of the name, so
// the same name maps to the same color on every run and host.
func colorFor(name string) string {
	h := fnv.New32a()
	h.Write([]byte(name))
	return agentColors[int(h.Sum32())%len(agentColors)]
}
