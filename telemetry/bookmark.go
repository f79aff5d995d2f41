package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkForageRecord       BookmarkType = "forage_record"
	BookmarkForageBreakthrough BookmarkType = "forage_breakthrough"
	BookmarkCollapse           BookmarkType = "collapse"
	BookmarkPlateau            BookmarkType = "plateau"
	BookmarkReseed             BookmarkType = "reseed"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type" json:"type"`
	Generation  int32        `csv:"generation" json:"generation"`
	Description string       `csv:"description" json:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"generation", b.Generation,
		"description", b.Description,
	)
}

// BookmarkDetector detects interesting generations.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []GenerationStats
	historySize int
	historyIdx  int
	historyFull bool

	// State tracking
	bestMean       float64 // best mean satiation seen so far
	recentPeak     float64 // peak mean satiation since the last collapse
	plateauCount   int     // consecutive generations with a flat mean
	plateauFlagged bool
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 5 {
		historySize = 5 // minimum for plateau detection
	}
	return &BookmarkDetector{
		history:     make([]GenerationStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats GenerationStats) []Bookmark {
	var bookmarks []Bookmark

	if stats.Reseeded {
		bookmarks = append(bookmarks, Bookmark{
			Type:        BookmarkReseed,
			Generation:  stats.Generation,
			Description: "No animal fed; next generation starts from random brains",
		})
	}

	if bd.historyFull || bd.historyIdx > 0 {
		if b := bd.checkRecord(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkBreakthrough(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkCollapse(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	bd.addToHistory(stats)

	if b := bd.checkPlateau(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	if stats.SatiationMean > bd.bestMean {
		bd.bestMean = stats.SatiationMean
	}
	if stats.SatiationMean > bd.recentPeak {
		bd.recentPeak = stats.SatiationMean
	}

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats GenerationStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []GenerationStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

// lastN returns the n most recent entries, oldest first.
func (bd *BookmarkDetector) lastN(n int) []GenerationStats {
	history := bd.getHistory()
	if len(history) < n {
		return nil
	}
	out := make([]GenerationStats, n)
	for i := 0; i < n; i++ {
		idx := (bd.historyIdx - n + i + bd.historySize) % bd.historySize
		out[i] = bd.history[idx]
	}
	return out
}

func (bd *BookmarkDetector) checkRecord(stats GenerationStats) *Bookmark {
	if len(bd.getHistory()) < 3 || bd.bestMean <= 0 {
		return nil
	}
	if stats.SatiationMean > bd.bestMean*1.1 {
		return &Bookmark{
			Type:        BookmarkForageRecord,
			Generation:  stats.Generation,
			Description: fmt.Sprintf("Mean satiation %.2f beats previous best %.2f", stats.SatiationMean, bd.bestMean),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkBreakthrough(stats GenerationStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var total float64
	for _, h := range history {
		total += h.SatiationMean
	}
	avg := total / float64(len(history))
	if avg == 0 {
		return nil
	}

	if stats.SatiationMean > avg*2.0 && stats.SatiationMean >= 1 {
		return &Bookmark{
			Type:        BookmarkForageBreakthrough,
			Generation:  stats.Generation,
			Description: fmt.Sprintf("Mean satiation %.2f is %.1fx average (%.2f)", stats.SatiationMean, stats.SatiationMean/avg, avg),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkCollapse(stats GenerationStats) *Bookmark {
	if bd.recentPeak < 2 {
		return nil
	}

	drop := 1.0 - stats.SatiationMean/bd.recentPeak
	if drop > 0.5 {
		oldPeak := bd.recentPeak
		bd.recentPeak = stats.SatiationMean

		return &Bookmark{
			Type:        BookmarkCollapse,
			Generation:  stats.Generation,
			Description: fmt.Sprintf("Mean satiation fell %.0f%% from peak %.2f to %.2f", drop*100, oldPeak, stats.SatiationMean),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkPlateau(stats GenerationStats) *Bookmark {
	recent := bd.lastN(4)
	if recent == nil || stats.SatiationMean <= 0 {
		bd.plateauCount = 0
		return nil
	}

	var sum float64
	for _, h := range recent {
		sum += h.SatiationMean
	}
	mean := sum / 4

	var variance float64
	for _, h := range recent {
		d := h.SatiationMean - mean
		variance += d * d
	}
	variance /= 4

	// CV^2 < 0.0025 means CV < 5%
	if mean > 0 && variance/(mean*mean) < 0.0025 {
		bd.plateauCount++
	} else {
		bd.plateauCount = 0
		bd.plateauFlagged = false
	}

	if bd.plateauCount >= 5 && !bd.plateauFlagged {
		bd.plateauFlagged = true
		return &Bookmark{
			Type:        BookmarkPlateau,
			Generation:  stats.Generation,
			Description: fmt.Sprintf("Mean satiation flat around %.2f for %d generations", mean, bd.plateauCount),
		}
	}
	return nil
}
