package usecase

import (
	"ChumRoom/internal/domain/models"
)

// BuildRoomStats derives room statistics from a decoded message window.
// The function is pure: the same window always produces the same stats,
// including slice order, which follows first appearance in the window.
//
// A rally is active when the window holds a RALLY announcement with no
// EXIT carrying the same rally id anywhere in the window, regardless of
// message order. Rally ids are matched across all agents; the wire
// format scopes them per agent, so two agents reusing an id can close
// each other's rallies. Accepted as-is to stay consistent with what the
// agents actually post.
func BuildRoomStats(msgs []*models.ProtocolMessage) *models.RoomStats {
	agents := make([]models.AgentInfo, 0, 4)
	agentIdx := make(map[string]int, 4)
	for _, m := range msgs {
		if i, ok := agentIdx[m.Sender]; ok {
			agents[i].MessageCount++
			if m.BlockTime > agents[i].LastSeen {
				agents[i].LastSeen = m.BlockTime
			}
			continue
		}
		agentIdx[m.Sender] = len(agents)
		agents = append(agents, models.AgentInfo{
			Address:      m.Sender,
			MessageCount: 1,
			LastSeen:     m.BlockTime,
		})
	}

	exited := make(map[uint16]struct{})
	for _, m := range msgs {
		if p, ok := m.Payload.(*models.ExitPayload); ok {
			exited[p.RallyID] = struct{}{}
		}
	}

	rallies := make([]models.RallyInfo, 0, 4)
	seen := make(map[uint16]struct{})
	for _, m := range msgs {
		p, ok := m.Payload.(*models.RallyPayload)
		if !ok {
			continue
		}
		if _, closed := exited[p.RallyID]; closed {
			continue
		}
		if _, dup := seen[p.RallyID]; dup {
			continue
		}
		seen[p.RallyID] = struct{}{}

		info := models.RallyInfo{
			RallyID:     p.RallyID,
			TokenMint:   p.TokenMint,
			Action:      p.Action,
			EntryPrice:  p.EntryPrice,
			TargetPrice: p.TargetPrice,
		}
		if info.TokenMint == "" {
			info.TokenMint = "unknown"
		}
		if info.Action == 0 {
			info.Action = models.DirectionBuy
		}
		rallies = append(rallies, info)
	}

	return &models.RoomStats{
		TotalMessages: len(msgs),
		UniqueAgents:  len(agents),
		ActiveRallies: rallies,
		AgentList:     agents,
	}
}
