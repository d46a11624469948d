package model

// Limits shared by Category and Genre.
const (
	MaxTaxonomyNameLength = 256
	MaxSlugLength         = 50
)

// Category is a broad class of work (film, book, music). A title belongs to
// at most one category. The slug is the external lookup key; clients never
// see the internal id.
type Category struct {
	ID   string `json:"-"    db:"id"`
	Name string `json:"name" db:"name"`
	Slug string `json:"slug" db:"slug"`
}

// Genre is a finer-grained tag (drama, rock, ...). A title may carry any
// number of genres, and a genre outlives the titles that reference it.
type Genre struct {
	ID   string `json:"-"    db:"id"`
	Name string `json:"name" db:"name"`
	Slug string `json:"slug" db:"slug"`
}
