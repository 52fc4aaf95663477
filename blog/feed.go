package blog

import (
	"sort"
	"time"

	"gorm.io/gorm"

	"chronicle/models"
)

// DefaultPageSize is the feed page size unless the caller overrides it.
const DefaultPageSize = 10

// FeedItem is a post annotated with its comment count for list views.
type FeedItem struct {
	models.Post
	CommentCount int64
}

// Pagination carries page metadata for rendering prev/next controls.
type Pagination struct {
	Page       int
	PageSize   int
	TotalItems int
	TotalPages int
	HasPrev    bool
	HasNext    bool
	PrevPage   int
	NextPage   int
}

// FeedOptions controls feed composition.
type FeedOptions struct {
	Viewer   *models.User // nil for anonymous
	Page     int          // 1-indexed, clamped to the valid range
	PageSize int          // 0 means DefaultPageSize
	// IncludeOwn additionally retains the viewer's own unpublished and
	// scheduled posts. Set when the viewer browses their own profile;
	// public feeds never include drafts, not even the author's.
	IncludeOwn bool
}

// ComposeFeed filters the candidate posts down to what the viewer may see,
// orders them by publication date (newest first, ties keep insertion
// order), paginates, and annotates the resulting page with comment counts.
func ComposeFeed(db *gorm.DB, candidates []models.Post, opts FeedOptions) ([]FeedItem, Pagination) {
	now := time.Now()

	var retained []models.Post
	for _, post := range candidates {
		if PostPublic(&post, now) {
			retained = append(retained, post)
			continue
		}
		if opts.IncludeOwn && opts.Viewer != nil && opts.Viewer.ID == post.AuthorID {
			retained = append(retained, post)
		}
	}

	sort.SliceStable(retained, func(i, j int) bool {
		return retained[i].PubDate.After(retained[j].PubDate)
	})

	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	total := len(retained)
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	// Out-of-range page numbers resolve to the nearest valid page.
	page := opts.Page
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	window := retained[start:end]

	counts := countComments(db, window)

	items := make([]FeedItem, len(window))
	for i, post := range window {
		items[i] = FeedItem{Post: post, CommentCount: counts[post.ID]}
	}

	pagination := Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: totalPages,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
		PrevPage:   page - 1,
		NextPage:   page + 1,
	}
	return items, pagination
}

// countComments fetches exact comment counts for the given posts in one
// grouped query.
func countComments(db *gorm.DB, posts []models.Post) map[uint]int64 {
	counts := make(map[uint]int64, len(posts))
	if len(posts) == 0 {
		return counts
	}

	postIDs := make([]uint, len(posts))
	for i, post := range posts {
		postIDs[i] = post.ID
	}

	var rows []struct {
		PostID uint
		Count  int64
	}
	db.Model(&models.Comment{}).
		Select("post_id, COUNT(*) as count").
		Where("post_id IN ?", postIDs).
		Group("post_id").
		Scan(&rows)

	for _, row := range rows {
		counts[row.PostID] = row.Count
	}
	return counts
}
