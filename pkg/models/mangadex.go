package models

// ChapterResult is the normalized form of a MangaDex chapter.
// Optional fields are nil when the provider sent nothing usable.
type ChapterResult struct {
	ChapterID  string  `json:"chapterId"`
	Chapter    *string `json:"chapter"` // chapter number as printed, e.g. "10.5"
	Title      *string `json:"title"`
	Volume     *string `json:"volume"`
	ReadableAt *string `json:"readableAt"`
	GroupName  *string `json:"groupName"`
}

// SearchResult is the normalized form of a MangaDex manga search item.
type SearchResult struct {
	ID       string  `json:"id"`
	Title    *string `json:"title"`
	Year     *int    `json:"year"`
	CoverURL *string `json:"coverUrl"`
}
