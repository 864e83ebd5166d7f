package models

import "fmt"

// knownAgents maps agent identifiers to display names. The mapping is
// cosmetic; unmapped identifiers render as a generic label.
var knownAgents = map[uint16]string{
	1: "CHUM-PRIME",
	2: "KAREN-BOT",
	3: "PLANKTON-JR",
}

// AgentLabel returns the display name for an agent identifier.
func AgentLabel(id uint16) string {
	if name, ok := knownAgents[id]; ok {
		return name
	}
	return fmt.Sprintf("AGENT-%d", id)
}
