package usecase

import (
	"reflect"
	"testing"

	"ChumRoom/internal/domain/models"
)

func rallyMsg(sender string, blockTime int64, rallyID uint16, mint string) *models.ProtocolMessage {
	return &models.ProtocolMessage{
		Sender:    sender,
		BlockTime: blockTime,
		MsgType:   models.MsgRally,
		Payload: &models.RallyPayload{
			RallyID:     rallyID,
			TokenMint:   mint,
			Action:      models.DirectionBuy,
			EntryPrice:  100_000,
			TargetPrice: 150_000,
		},
	}
}

func exitMsg(sender string, blockTime int64, rallyID uint16) *models.ProtocolMessage {
	return &models.ProtocolMessage{
		Sender:    sender,
		BlockTime: blockTime,
		MsgType:   models.MsgExit,
		Payload:   &models.ExitPayload{RallyID: rallyID, Reason: models.ReasonTargetHit},
	}
}

func TestRoomStatsAgentActivity(t *testing.T) {
	msgs := []*models.ProtocolMessage{
		{Sender: "a", BlockTime: 300},
		{Sender: "b", BlockTime: 200},
		{Sender: "a", BlockTime: 100},
	}
	stats := BuildRoomStats(msgs)

	if stats.TotalMessages != 3 || stats.UniqueAgents != 2 {
		t.Fatalf("stats = %+v", stats)
	}
	want := []models.AgentInfo{
		{Address: "a", MessageCount: 2, LastSeen: 300},
		{Address: "b", MessageCount: 1, LastSeen: 200},
	}
	if !reflect.DeepEqual(stats.AgentList, want) {
		t.Fatalf("agents = %+v", stats.AgentList)
	}
}

func TestRoomStatsOpenRallies(t *testing.T) {
	msgs := []*models.ProtocolMessage{
		rallyMsg("a", 400, 100, "mintX"),
		rallyMsg("b", 300, 101, "mintY"),
		rallyMsg("a", 200, 102, "mintZ"),
		exitMsg("a", 100, 102),
	}
	stats := BuildRoomStats(msgs)

	if len(stats.ActiveRallies) != 2 {
		t.Fatalf("rallies = %+v", stats.ActiveRallies)
	}
	if stats.ActiveRallies[0].RallyID != 100 || stats.ActiveRallies[1].RallyID != 101 {
		t.Fatalf("rally order = %+v", stats.ActiveRallies)
	}
}

func TestRoomStatsExitClosesRallyRegardlessOfOrder(t *testing.T) {
	// Window order is newest first, so an exit usually precedes its rally.
	// Both orders must close the rally.
	exitFirst := []*models.ProtocolMessage{
		exitMsg("a", 200, 7),
		rallyMsg("a", 100, 7, "mintX"),
	}
	rallyFirst := []*models.ProtocolMessage{
		rallyMsg("a", 200, 7, "mintX"),
		exitMsg("a", 100, 7),
	}
	for _, msgs := range [][]*models.ProtocolMessage{exitFirst, rallyFirst} {
		if stats := BuildRoomStats(msgs); len(stats.ActiveRallies) != 0 {
			t.Fatalf("rally 7 must be closed, got %+v", stats.ActiveRallies)
		}
	}
}

func TestRoomStatsDuplicateRallyAnnouncement(t *testing.T) {
	msgs := []*models.ProtocolMessage{
		rallyMsg("a", 300, 9, "mintNew"),
		rallyMsg("a", 200, 9, "mintOld"),
	}
	stats := BuildRoomStats(msgs)
	if len(stats.ActiveRallies) != 1 || stats.ActiveRallies[0].TokenMint != "mintNew" {
		t.Fatalf("first announcement in window order must win, got %+v", stats.ActiveRallies)
	}
}

func TestRoomStatsMissingRallyFields(t *testing.T) {
	msgs := []*models.ProtocolMessage{
		{
			Sender:  "a",
			MsgType: models.MsgRally,
			Payload: &models.RallyPayload{RallyID: 5},
		},
	}
	stats := BuildRoomStats(msgs)
	r := stats.ActiveRallies[0]
	if r.TokenMint != "unknown" || r.Action != models.DirectionBuy {
		t.Fatalf("defaults not applied: %+v", r)
	}
}

func TestRoomStatsEmptyWindow(t *testing.T) {
	stats := BuildRoomStats(nil)
	if stats.TotalMessages != 0 || stats.UniqueAgents != 0 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.ActiveRallies == nil || stats.AgentList == nil {
		t.Fatalf("slices must be empty, not nil, for stable JSON output")
	}
}

func TestRoomStatsDeterministic(t *testing.T) {
	msgs := []*models.ProtocolMessage{
		rallyMsg("a", 500, 1, "m1"),
		rallyMsg("b", 400, 2, "m2"),
		exitMsg("c", 300, 3),
		rallyMsg("c", 200, 3, "m3"),
		{Sender: "d", BlockTime: 100},
	}
	first := BuildRoomStats(msgs)
	for i := 0; i < 20; i++ {
		if got := BuildRoomStats(msgs); !reflect.DeepEqual(got, first) {
			t.Fatalf("stats must be deterministic: %+v vs %+v", got, first)
		}
	}
}
