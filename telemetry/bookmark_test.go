package telemetry

import "testing"

func hasBookmark(bookmarks []Bookmark, typ BookmarkType) bool {
	for _, bm := range bookmarks {
		if bm.Type == typ {
			return true
		}
	}
	return false
}

func TestBookmarkDetector_ForageBreakthrough(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 5; i++ {
		bd.Check(GenerationStats{Generation: int32(i), SatiationMean: 1.0})
	}

	bookmarks := bd.Check(GenerationStats{Generation: 5, SatiationMean: 3.0})

	if !hasBookmark(bookmarks, BookmarkForageBreakthrough) {
		t.Error("expected forage_breakthrough bookmark")
	}
	if !hasBookmark(bookmarks, BookmarkForageRecord) {
		t.Error("expected forage_record bookmark")
	}
}

func TestBookmarkDetector_RecordNeedsMargin(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 5; i++ {
		bd.Check(GenerationStats{Generation: int32(i), SatiationMean: 2.0})
	}

	// 5% better is not a record
	if bookmarks := bd.Check(GenerationStats{Generation: 5, SatiationMean: 2.1}); hasBookmark(bookmarks, BookmarkForageRecord) {
		t.Error("unexpected forage_record for a small improvement")
	}
}

func TestBookmarkDetector_Collapse(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 5; i++ {
		bd.Check(GenerationStats{Generation: int32(i), SatiationMean: 4.0})
	}

	bookmarks := bd.Check(GenerationStats{Generation: 5, SatiationMean: 1.0})
	if !hasBookmark(bookmarks, BookmarkCollapse) {
		t.Fatal("expected collapse bookmark")
	}

	// The peak resets after a collapse, so a flat follow-up does not retrigger.
	bookmarks = bd.Check(GenerationStats{Generation: 6, SatiationMean: 1.0})
	if hasBookmark(bookmarks, BookmarkCollapse) {
		t.Error("collapse should not retrigger without a new peak")
	}
}

func TestBookmarkDetector_Plateau(t *testing.T) {
	bd := NewBookmarkDetector(10)

	var count int
	for i := 0; i < 12; i++ {
		bookmarks := bd.Check(GenerationStats{Generation: int32(i), SatiationMean: 3.0})
		if hasBookmark(bookmarks, BookmarkPlateau) {
			count++
		}
	}

	if count != 1 {
		t.Errorf("plateau triggered %d times, want exactly once", count)
	}
}

func TestBookmarkDetector_Reseed(t *testing.T) {
	bd := NewBookmarkDetector(10)

	bookmarks := bd.Check(GenerationStats{Generation: 0, Reseeded: true})
	if !hasBookmark(bookmarks, BookmarkReseed) {
		t.Error("expected reseed bookmark")
	}
}

func TestBookmarkDetector_NoFalsePositives(t *testing.T) {
	bd := NewBookmarkDetector(10)

	means := []float64{1.0, 1.2, 0.9, 1.1, 1.3, 1.0, 0.8, 1.2}
	for i, m := range means {
		bookmarks := bd.Check(GenerationStats{Generation: int32(i), SatiationMean: m})
		for _, bm := range bookmarks {
			if bm.Type != BookmarkPlateau {
				t.Errorf("generation %d: unexpected bookmark %s", i, bm.Type)
			}
		}
	}
}
