package blog

import (
	"time"

	"chronicle/models"
)

// PostPublic reports whether a post is publicly visible at the given
// instant: published, publication date reached, and its category either
// absent or itself published. The post's Category must be preloaded when
// CategoryID is set. Evaluated at read time, never cached, because
// scheduled posts become visible as the clock advances.
func PostPublic(post *models.Post, now time.Time) bool {
	if !post.Published {
		return false
	}
	if post.PubDate.After(now) {
		return false
	}
	if post.CategoryID != nil {
		return post.Category != nil && post.Category.Published
	}
	return true
}

// PostVisible reports whether the viewer may see the post. Authors always
// see their own posts, including drafts and scheduled ones.
func PostVisible(post *models.Post, viewer *models.User, now time.Time) bool {
	if viewer != nil && viewer.ID == post.AuthorID {
		return true
	}
	return PostPublic(post, now)
}

// PageVisible reports whether a page is readable. Pages have no author
// bypass on read: unpublished pages are hidden even from their author.
func PageVisible(page *models.Page) bool {
	return page.Published
}
