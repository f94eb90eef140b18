package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"papertrade/internal/explain"
	"papertrade/internal/models"
	"papertrade/internal/testutil"

	"gorm.io/gorm"
)

func countExplanations(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	db.Model(&models.Explanation{}).Count(&n)
	return n
}

func TestExplain(t *testing.T) {
	ctx := context.Background()

	t.Run("generates_then_serves_cached", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		gen := &testutil.FakeGenerator{Reply: "A short sale bets on a price drop."}
		svc := NewExplanationService(db, gen)

		first, err := svc.Explain(ctx, "Short Selling")
		testutil.AssertNoError(t, err)
		if first.Term != "short selling" {
			t.Errorf("expected normalized term, got %q", first.Term)
		}
		if first.Explanation != gen.Reply {
			t.Errorf("expected generated text, got %q", first.Explanation)
		}
		if !strings.Contains(gen.Prompts[0], "Short Selling") {
			t.Errorf("expected prompt to name the term, got %q", gen.Prompts[0])
		}

		second, err := svc.Explain(ctx, "  short selling ")
		testutil.AssertNoError(t, err)
		if second.ID != first.ID {
			t.Errorf("expected cached row %d, got %d", first.ID, second.ID)
		}
		if gen.Calls() != 1 {
			t.Errorf("expected 1 generator call, got %d", gen.Calls())
		}
		if countExplanations(t, db) != 1 {
			t.Errorf("expected 1 stored explanation, got %d", countExplanations(t, db))
		}
	})

	t.Run("quota_exceeded_stores_fallback", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		gen := &testutil.FakeGenerator{Err: fmt.Errorf("generate: %w", explain.ErrQuotaExceeded)}
		svc := NewExplanationService(db, gen)

		e, err := svc.Explain(ctx, "Dividend")
		testutil.AssertNoError(t, err)
		if e.Explanation != explain.Fallback("dividend") {
			t.Errorf("expected fallback text, got %q", e.Explanation)
		}
		if countExplanations(t, db) != 1 {
			t.Error("expected fallback to be stored")
		}

		_, err = svc.Explain(ctx, "dividend")
		testutil.AssertNoError(t, err)
		if gen.Calls() != 1 {
			t.Errorf("expected stored fallback to be reused, got %d calls", gen.Calls())
		}
	})

	t.Run("other_failure_not_stored", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		gen := &testutil.FakeGenerator{Err: errors.New("connection refused")}
		svc := NewExplanationService(db, gen)

		e, err := svc.Explain(ctx, "Beta")
		testutil.AssertNoError(t, err)
		if e.Explanation != explain.Unavailable("Beta") {
			t.Errorf("expected apology text, got %q", e.Explanation)
		}
		if countExplanations(t, db) != 0 {
			t.Error("expected nothing stored after a transient failure")
		}

		gen.Err = nil
		gen.Reply = "Beta measures volatility relative to the market."
		e, err = svc.Explain(ctx, "Beta")
		testutil.AssertNoError(t, err)
		if e.Explanation != gen.Reply {
			t.Errorf("expected retry to generate, got %q", e.Explanation)
		}
	})

	t.Run("empty_reply_not_stored", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExplanationService(db, &testutil.FakeGenerator{})

		_, err := svc.Explain(ctx, "alpha")
		testutil.AssertNoError(t, err)
		if countExplanations(t, db) != 0 {
			t.Error("expected empty reply to be discarded")
		}
	})

	t.Run("disabled_generator_uses_fallback", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExplanationService(db, nil)

		e, err := svc.Explain(ctx, "ETF")
		testutil.AssertNoError(t, err)
		if !strings.HasPrefix(e.Explanation, "ETF is an important financial concept") {
			t.Errorf("expected generic fallback, got %q", e.Explanation)
		}
		if e.ID == 0 {
			t.Error("expected fallback to be stored")
		}
	})

	t.Run("concurrent_first_requests_store_one_row", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		gen := &testutil.FakeGenerator{Reply: "Liquidity is ease of trading."}
		svc := NewExplanationService(db, gen)

		var wg sync.WaitGroup
		results := make([]string, 8)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				e, err := svc.Explain(ctx, "Liquidity")
				if err != nil {
					t.Errorf("explain failed: %v", err)
					return
				}
				results[i] = e.Explanation
			}(i)
		}
		wg.Wait()

		if n := countExplanations(t, db); n != 1 {
			t.Errorf("expected 1 stored row, got %d", n)
		}
		for i, r := range results {
			if r != gen.Reply {
				t.Errorf("caller %d got %q", i, r)
			}
		}
	})

	t.Run("invalid_terms", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExplanationService(db, &testutil.FakeGenerator{Reply: "x"})

		_, err := svc.Explain(ctx, "   ")
		testutil.AssertAppError(t, err, "INVALID_INPUT")

		_, err = svc.Explain(ctx, strings.Repeat("a", 201))
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}
