package model

// MaxTitleNameLength bounds the name of a creative work.
const MaxTitleNameLength = 256

// Title is a creative work that users review.
//
// Rating is never stored: it is the arithmetic mean of all review scores,
// computed by the repository in the same query that fetches the title
// (LEFT JOIN + AVG). Nil means the title has no reviews yet and
// serializes as JSON null.
//
// Category is nil when the title is uncategorized, including after its
// category was deleted (the foreign key is ON DELETE SET NULL).
type Title struct {
	ID          string    `json:"id"          db:"id"`
	Name        string    `json:"name"        db:"name"`
	Year        int       `json:"year"        db:"year"`
	Description string    `json:"description" db:"description"`
	Category    *Category `json:"category"`
	Genres      []Genre   `json:"genre"`
	Rating      *float64  `json:"rating"      db:"rating"`
}
