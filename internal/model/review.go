package model

import "time"

// Score bounds for reviews.
const (
	MinScore = 1
	MaxScore = 10
)

// Review is a scored write-up of a title. Each user may review a given
// title at most once, enforced by a UNIQUE(author_id, title_id) constraint.
//
// Author carries the author's username for serialization; AuthorID is the
// stable key used for ownership checks and cascading deletes.
type Review struct {
	ID       string    `json:"id"       db:"id"`
	TitleID  string    `json:"-"        db:"title_id"`
	AuthorID string    `json:"-"        db:"author_id"`
	Author   string    `json:"author"   db:"author"`
	Text     string    `json:"text"     db:"text"`
	Score    int       `json:"score"    db:"score"`
	PubDate  time.Time `json:"pub_date" db:"pub_date"`
}

// Comment is a reply to a review. It mirrors Review without a score and is
// deleted together with its review (ON DELETE CASCADE).
type Comment struct {
	ID       string    `json:"id"       db:"id"`
	ReviewID string    `json:"-"        db:"review_id"`
	AuthorID string    `json:"-"        db:"author_id"`
	Author   string    `json:"author"   db:"author"`
	Text     string    `json:"text"     db:"text"`
	PubDate  time.Time `json:"pub_date" db:"pub_date"`
}
