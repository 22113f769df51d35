package memory_test

import (
	"fmt"
	"testing"

	"github.com/wallscreet/iso-agent/core"
	"github.com/wallscreet/iso-agent/memory"
)

func makeTurn(n int) core.Turn {
	return core.Turn{
		ID:             fmt.Sprintf("turn-%d", n),
		ConversationID: "convo",
		TurnNumber:     n,
		Request:        core.NewMessage(core.RoleUser, "guest", fmt.Sprintf("request %d", n)),
		Response:       core.NewMessage(core.RoleAssistant, "host", fmt.Sprintf("response %d", n)),
	}
}

func TestTurnCache_FIFOCapacity(t *testing.T) {
	cases := []struct {
		capacity int
		inserts  int
		wantLen  int
	}{
		{capacity: 1, inserts: 1, wantLen: 1},
		{capacity: 3, inserts: 2, wantLen: 2},
		{capacity: 3, inserts: 3, wantLen: 3},
		{capacity: 3, inserts: 10, wantLen: 3},
		{capacity: 5, inserts: 100, wantLen: 5},
	}

	for _, tc := range cases {
		cache := memory.NewTurnCache(tc.capacity)
		for i := 1; i <= tc.inserts; i++ {
			cache.AddTurn(makeTurn(i))
		}

		if cache.Len() != tc.wantLen {
			t.Errorf("capacity=%d inserts=%d: len = %d, want %d",
				tc.capacity, tc.inserts, cache.Len(), tc.wantLen)
		}

		// Retained turns are exactly the last wantLen inserted, oldest first.
		turns := cache.GetNTurns(tc.wantLen)
		for i, turn := range turns {
			wantNumber := tc.inserts - tc.wantLen + i + 1
			if turn.TurnNumber != wantNumber {
				t.Errorf("capacity=%d inserts=%d: turn[%d].TurnNumber = %d, want %d",
					tc.capacity, tc.inserts, i, turn.TurnNumber, wantNumber)
			}
		}
	}
}

func TestTurnCache_GetNTurns(t *testing.T) {
	cache := memory.NewTurnCache(3)
	for i := 1; i <= 4; i++ {
		cache.AddTurn(makeTurn(i))
	}

	turns := cache.GetNTurns(2)
	if len(turns) != 2 {
		t.Fatalf("GetNTurns(2) returned %d turns", len(turns))
	}
	if turns[0].TurnNumber != 3 || turns[1].TurnNumber != 4 {
		t.Errorf("GetNTurns(2) = [%d, %d], want [3, 4]", turns[0].TurnNumber, turns[1].TurnNumber)
	}

	// Asking for more than cached returns everything.
	if got := len(cache.GetNTurns(10)); got != 3 {
		t.Errorf("GetNTurns(10) returned %d turns, want 3", got)
	}
	if cache.GetNTurns(0) != nil {
		t.Error("GetNTurns(0) should return nil")
	}
}

func TestTurnCache_ChatHistory(t *testing.T) {
	cache := memory.NewTurnCache(5)
	cache.AddTurn(makeTurn(1))
	cache.AddTurn(makeTurn(2))

	history := cache.ChatHistory()
	if len(history) != 4 {
		t.Fatalf("ChatHistory returned %d entries, want 4", len(history))
	}

	// Request then response per turn, oldest first.
	wantSubstrings := []string{"request 1", "response 1", "request 2", "response 2"}
	for i, want := range wantSubstrings {
		if !contains(history[i], want) {
			t.Errorf("history[%d] = %q, want it to contain %q", i, history[i], want)
		}
	}
}

func TestTurnCache_Replay(t *testing.T) {
	cache := memory.NewTurnCache(3)
	cache.AddTurn(makeTurn(99))

	var replayed []core.Turn
	for i := 1; i <= 5; i++ {
		replayed = append(replayed, makeTurn(i))
	}
	cache.Replay(replayed)

	if cache.Len() != 3 {
		t.Fatalf("len after replay = %d, want 3", cache.Len())
	}
	turns := cache.GetNTurns(3)
	for i, want := range []int{3, 4, 5} {
		if turns[i].TurnNumber != want {
			t.Errorf("turn[%d].TurnNumber = %d, want %d", i, turns[i].TurnNumber, want)
		}
	}
}

func TestTurnCache_ReplayIsAtomic(t *testing.T) {
	cache := memory.NewTurnCache(3)
	turns := make([]core.Turn, 5)
	for i := range turns {
		turns[i] = makeTurn(i + 1)
	}
	cache.Replay(turns)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			cache.Replay(turns)
		}
	}()

	// A full cache being replayed with a full turn list must never show
	// an intermediate length.
	for i := 0; i < 1000; i++ {
		if got := cache.Len(); got != 3 {
			t.Fatalf("observed partial replay: len = %d, want 3", got)
		}
	}
	<-done
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
