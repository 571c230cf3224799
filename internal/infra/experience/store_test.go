package experience

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/lunarfang/werewolf-arena/internal/infra/storage"
	"github.com/lunarfang/werewolf-arena/internal/platform/logger"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db, err := storage.InitSQLite(filepath.Join(t.TempDir(), "arena.db"))
	if err != nil {
		t.Fatalf("InitSQLite failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := NewStore(db, logger.New())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return store
}

func TestVoteExperienceEmptyStore(t *testing.T) {
	store := testStore(t)
	exp, err := store.VoteExperience(context.Background(), "s1", "Derek", "Villager")
	if err != nil {
		t.Fatalf("VoteExperience failed: %v", err)
	}
	if exp != nil {
		t.Errorf("empty store returned examples: %+v", exp)
	}
}

func TestVoteExperiencePicksStrongestAndWeakest(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	votes := []struct {
		agent      string
		round      int
		reflection string
		vote       string
		reward     int
	}{
		{"Derek", 0, "he dodged every question", "Scott", 1000},
		{"Mia", 1, "followed the sheriff", "Leah", 500},
		{"Paul", 2, "pure gut feeling", "Jacob", 0},
	}
	for _, v := range votes {
		if err := store.RecordVote(ctx, "s1", v.agent, "Villager", v.round, v.reflection, v.vote, v.reward); err != nil {
			t.Fatalf("RecordVote failed: %v", err)
		}
	}

	exp, err := store.VoteExperience(ctx, "s2", "Hao", "Villager")
	if err != nil {
		t.Fatalf("VoteExperience failed: %v", err)
	}
	if exp == nil {
		t.Fatal("no experience returned")
	}
	if len(exp.Good) != 2 {
		t.Fatalf("expected 2 good examples, got %d", len(exp.Good))
	}
	if exp.Good[0].Reward != 1000 || exp.Good[1].Reward != 500 {
		t.Errorf("good examples out of order: %+v", exp.Good)
	}
	if exp.Bad == nil || exp.Bad.Reward != 0 {
		t.Errorf("weakest ballot not surfaced: %+v", exp.Bad)
	}
}

func TestVoteExperienceScopedToRole(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.RecordVote(ctx, "s1", "Derek", "Werewolf", 0, "deflected onto the seer", "Jacob", 1000); err != nil {
		t.Fatal(err)
	}

	exp, err := store.VoteExperience(ctx, "s1", "Mia", "Villager")
	if err != nil {
		t.Fatal(err)
	}
	if exp != nil {
		t.Errorf("villager request surfaced werewolf experience: %+v", exp)
	}
}

func TestVoteExperienceSingleRecordHasNoBad(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.RecordVote(ctx, "s1", "Derek", "Villager", 0, "he lied", "Scott", 1000); err != nil {
		t.Fatal(err)
	}

	exp, err := store.VoteExperience(ctx, "s1", "Mia", "Villager")
	if err != nil {
		t.Fatal(err)
	}
	if exp == nil || len(exp.Good) != 1 {
		t.Fatalf("expected the single ballot as a good example: %+v", exp)
	}
	// The only ballot is also the weakest; it must not be held up as a
	// bad example against itself.
	if exp.Bad != nil {
		t.Errorf("single ballot doubled as a bad example: %+v", exp.Bad)
	}
}
