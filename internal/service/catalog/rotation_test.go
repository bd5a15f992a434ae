package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"slideshow/internal/logger"
	"slideshow/internal/model"
	"slideshow/internal/repository/sqlite"
	"slideshow/internal/service/notify"
)

func TestSelectNext_EmptyCatalog(t *testing.T) {
	c, _ := setupCatalog(t)

	img, err := c.SelectNext(context.Background())
	if !errors.Is(err, ErrNoImages) {
		t.Errorf("Expected ErrNoImages, got %v", err)
	}
	if img != nil {
		t.Errorf("Expected no image, got %+v", img)
	}
}

func TestSelectNext_AllHidden(t *testing.T) {
	c, _ := setupCatalog(t)
	ctx := context.Background()

	img := mustCreate(t, c, "a.jpg", baseTime)
	if _, err := c.SetShow(ctx, img.ID, false); err != nil {
		t.Fatalf("SetShow failed: %v", err)
	}

	if _, err := c.SelectNext(ctx); !errors.Is(err, ErrNoImages) {
		t.Errorf("Expected ErrNoImages with only hidden records, got %v", err)
	}
}

func TestSelectNext_NeverShownPriority(t *testing.T) {
	c, _ := setupCatalog(t)
	ctx := context.Background()

	b := mustCreate(t, c, "b.jpg", baseTime)
	a := mustCreate(t, c, "a.jpg", baseTime.Add(time.Hour))

	// B has been shown once and then had its counter reset to 0.
	viewed := baseTime
	if _, err := c.Mutate(ctx, b.ID, func(img *model.Image) {
		img.LastViewedDate = &viewed
		img.TotalViewCount = 1
	}); err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}
	if _, err := c.Mutate(ctx, a.ID, func(img *model.Image) { img.SortViewCount = 3 }); err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}

	got, err := c.SelectNext(ctx)
	if err != nil {
		t.Fatalf("SelectNext failed: %v", err)
	}
	if got.ID != a.ID {
		t.Errorf("Expected never-shown %s first, got %s", a.Filename, got.Filename)
	}
}

func TestSelectNext_NeverShownOldestFirst(t *testing.T) {
	c, _ := setupCatalog(t)
	ctx := context.Background()

	mustCreate(t, c, "new.jpg", baseTime.Add(2*time.Hour))
	old := mustCreate(t, c, "old.jpg", baseTime)
	mustCreate(t, c, "mid.jpg", baseTime.Add(time.Hour))

	got, err := c.SelectNext(ctx)
	if err != nil {
		t.Fatalf("SelectNext failed: %v", err)
	}
	if got.ID != old.ID {
		t.Errorf("Expected oldest unseen image, got %s", got.Filename)
	}
}

func TestSelectNext_RecordsView(t *testing.T) {
	c, n := setupCatalog(t)
	ctx := context.Background()
	mustCreate(t, c, "a.jpg", baseTime)

	sub := n.Subscribe()
	defer sub.Close()

	got, err := c.SelectNext(ctx)
	if err != nil {
		t.Fatalf("SelectNext failed: %v", err)
	}
	if got.SortViewCount != 1 || got.TotalViewCount != 1 || got.LastViewedDate == nil {
		t.Errorf("View not recorded on returned record: %+v", got)
	}

	stored, _ := c.FindByID(got.ID)
	if stored.SortViewCount != 1 || stored.TotalViewCount != 1 || stored.LastViewedDate == nil {
		t.Errorf("View not persisted: %+v", stored)
	}

	events := drain(sub)
	if len(events) != 1 || events[0].Kind != notify.Updated {
		t.Errorf("Expected one update event, got %+v", events)
	}
}

func TestSelectNext_TwoImageScenario(t *testing.T) {
	c, _ := setupCatalog(t)
	ctx := context.Background()

	a := mustCreate(t, c, "a.jpg", baseTime)
	b := mustCreate(t, c, "b.jpg", baseTime.Add(time.Minute))

	first, _ := c.SelectNext(ctx)
	if first.ID != a.ID {
		t.Fatalf("First pick: expected a.jpg, got %s", first.Filename)
	}
	if first.SortViewCount != 1 || first.TotalViewCount != 1 || first.LastViewedDate == nil {
		t.Errorf("First pick bookkeeping wrong: %+v", first)
	}

	second, _ := c.SelectNext(ctx)
	if second.ID != b.ID {
		t.Fatalf("Second pick: expected never-shown b.jpg, got %s", second.Filename)
	}

	third, _ := c.SelectNext(ctx)
	if third.ID != a.ID {
		t.Errorf("Third pick: expected a.jpg on createdDate tie-break, got %s", third.Filename)
	}
	if third.SortViewCount != 2 || third.TotalViewCount != 2 {
		t.Errorf("Third pick counters wrong: %+v", third)
	}
}

func TestSelectNext_Fairness(t *testing.T) {
	c, _ := setupCatalog(t)
	ctx := context.Background()

	for i, name := range []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg", "e.jpg"} {
		mustCreate(t, c, name, baseTime.Add(time.Duration(i)*time.Minute))
	}

	for round := 0; round < 40; round++ {
		before, _ := c.All()
		minVisible := -1
		for _, img := range before {
			if img.Show && (minVisible < 0 || img.SortViewCount < minVisible) {
				minVisible = img.SortViewCount
			}
		}

		picked, err := c.SelectNext(ctx)
		if err != nil {
			t.Fatalf("Round %d: SelectNext failed: %v", round, err)
		}

		for _, img := range before {
			if img.ID == picked.ID && img.SortViewCount > minVisible+1 {
				t.Fatalf("Round %d: picked %s at %d while minimum was %d",
					round, img.Filename, img.SortViewCount, minVisible)
			}
		}
	}

	after, _ := c.All()
	for _, img := range after {
		if img.TotalViewCount != 8 {
			t.Errorf("%s: expected 8 views after 40 rounds over 5 images, got %d", img.Filename, img.TotalViewCount)
		}
	}
}

func TestSelectNext_SkipsHidden(t *testing.T) {
	c, _ := setupCatalog(t)
	ctx := context.Background()

	hidden := mustCreate(t, c, "hidden.jpg", baseTime)
	visible := mustCreate(t, c, "visible.jpg", baseTime.Add(time.Hour))
	c.SetShow(ctx, hidden.ID, false)

	for i := 0; i < 3; i++ {
		got, err := c.SelectNext(ctx)
		if err != nil {
			t.Fatalf("SelectNext failed: %v", err)
		}
		if got.ID != visible.ID {
			t.Errorf("Pick %d: expected visible image, got %s", i, got.Filename)
		}
	}
}

func TestSetShow_FairnessReset(t *testing.T) {
	c, n := setupCatalog(t)
	ctx := context.Background()

	target := mustCreate(t, c, "target.jpg", baseTime)
	other := mustCreate(t, c, "other.jpg", baseTime)
	c.Mutate(ctx, target.ID, func(img *model.Image) { img.SortViewCount = 50 })
	c.Mutate(ctx, other.ID, func(img *model.Image) { img.SortViewCount = 5 })

	if _, err := c.SetShow(ctx, target.ID, false); err != nil {
		t.Fatalf("SetShow(false) failed: %v", err)
	}

	sub := n.Subscribe()
	defer sub.Close()

	got, err := c.SetShow(ctx, target.ID, true)
	if err != nil {
		t.Fatalf("SetShow(true) failed: %v", err)
	}
	if !got.Show || got.SortViewCount != 5 {
		t.Errorf("Expected visible with sort count 5, got show=%v sort=%d", got.Show, got.SortViewCount)
	}

	events := drain(sub)
	if len(events) != 1 {
		t.Errorf("Expected one notification for the toggle, got %d", len(events))
	}
}

func TestSetShow_IgnoresHiddenOthersForFloor(t *testing.T) {
	c, _ := setupCatalog(t)
	ctx := context.Background()

	target := mustCreate(t, c, "target.jpg", baseTime)
	visible := mustCreate(t, c, "visible.jpg", baseTime)
	hidden := mustCreate(t, c, "hidden.jpg", baseTime)
	c.Mutate(ctx, target.ID, func(img *model.Image) { img.SortViewCount = 50 })
	c.Mutate(ctx, visible.ID, func(img *model.Image) { img.SortViewCount = 9 })
	c.Mutate(ctx, hidden.ID, func(img *model.Image) { img.SortViewCount = 1 })
	c.SetShow(ctx, hidden.ID, false)
	c.SetShow(ctx, target.ID, false)

	got, _ := c.SetShow(ctx, target.ID, true)
	if got.SortViewCount != 9 {
		t.Errorf("Expected floor from visible records only (9), got %d", got.SortViewCount)
	}
}

func TestSetShow_NoOtherVisibleKeepsCount(t *testing.T) {
	c, _ := setupCatalog(t)
	ctx := context.Background()

	target := mustCreate(t, c, "target.jpg", baseTime)
	c.Mutate(ctx, target.ID, func(img *model.Image) { img.SortViewCount = 12 })
	c.SetShow(ctx, target.ID, false)

	got, _ := c.SetShow(ctx, target.ID, true)
	if got.SortViewCount != 12 {
		t.Errorf("Expected count unchanged at 12, got %d", got.SortViewCount)
	}
}

func TestSetShow_AlreadyVisibleIsNoop(t *testing.T) {
	c, n := setupCatalog(t)
	ctx := context.Background()

	target := mustCreate(t, c, "target.jpg", baseTime)
	other := mustCreate(t, c, "other.jpg", baseTime)
	c.Mutate(ctx, target.ID, func(img *model.Image) { img.SortViewCount = 50 })
	c.Mutate(ctx, other.ID, func(img *model.Image) { img.SortViewCount = 5 })

	sub := n.Subscribe()
	defer sub.Close()

	got, _ := c.SetShow(ctx, target.ID, true)
	if got.SortViewCount != 50 {
		t.Errorf("Setting show=true on a visible record must not reset, got %d", got.SortViewCount)
	}
	if events := drain(sub); len(events) != 0 {
		t.Errorf("Expected no notification, got %d", len(events))
	}
}

func TestSelectNext_ConcurrentCallsAreSerialized(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "catalog.db")
	repo, err := sqlite.Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	clock := &stepClock{t: baseTime}
	c := New(repo, t.TempDir(), "Test.catalog", notify.New(), logger.NewDiscard(),
		WithClock(clock.Now), WithIDGenerator(sequentialIDs()))
	defer c.Close()

	ctx := context.Background()
	for i, name := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		mustCreate(t, c, name, baseTime.Add(time.Duration(i)*time.Minute))
	}

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.SelectNext(ctx); err != nil {
				t.Errorf("SelectNext failed: %v", err)
			}
		}()
	}
	wg.Wait()

	images, _ := c.All()
	total := 0
	for _, img := range images {
		total += img.TotalViewCount
		if img.SortViewCount != 10 {
			t.Errorf("%s: expected sort count 10, got %d", img.Filename, img.SortViewCount)
		}
	}
	if total != 30 {
		t.Errorf("Expected 30 recorded views, got %d", total)
	}
}

func TestPickNext(t *testing.T) {
	viewed := baseTime
	tests := []struct {
		name     string
		images   []model.Image
		expected int
	}{
		{"empty", nil, -1},
		{"only hidden", []model.Image{{ID: "a", Show: false}}, -1},
		{
			"lowest sort count",
			[]model.Image{
				{ID: "a", Show: true, SortViewCount: 3, LastViewedDate: &viewed},
				{ID: "b", Show: true, SortViewCount: 1, LastViewedDate: &viewed},
			},
			1,
		},
		{
			"id breaks full tie",
			[]model.Image{
				{ID: "b", Show: true, CreatedDate: baseTime, LastViewedDate: &viewed},
				{ID: "a", Show: true, CreatedDate: baseTime, LastViewedDate: &viewed},
			},
			1,
		},
		{
			"hidden never-shown ignored",
			[]model.Image{
				{ID: "a", Show: false},
				{ID: "b", Show: true, SortViewCount: 9, LastViewedDate: &viewed},
			},
			1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pickNext(tt.images); got != tt.expected {
				t.Errorf("Expected index %d, got %d", tt.expected, got)
			}
		})
	}
}
