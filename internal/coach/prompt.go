package coach

import (
	"fmt"
	"strings"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/features"
)

// BuildPrompt renders a snapshot as text appended to a question. Joints are
// listed by name. An empty snapshot renders as "".
func BuildPrompt(snap features.Snapshot) string {
	if snap.Empty() {
		return ""
	}

	var b strings.Builder
	if names := snap.AngleNames(); len(names) > 0 {
		b.WriteString("\nJoint angles (degrees):\n")
		for _, name := range names {
			fmt.Fprintf(&b, "- %s: %.1f\n", name, snap.Angles[name])
		}
	}
	if names := snap.PositionNames(); len(names) > 0 {
		b.WriteString("\nPositions (normalized x, y, z):\n")
		for _, name := range names {
			p := snap.Positions[name]
			fmt.Fprintf(&b, "- %s: (%.3f, %.3f, %.3f)\n", name, p.X, p.Y, p.Z)
		}
	}
	return b.String()
}
