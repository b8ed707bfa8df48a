package mangadex

import (
	"strconv"
	"strings"

	"shiori/pkg/models"
)

const coverBaseURL = "https://uploads.mangadex.org/covers/"

const (
	relScanlationGroup = "scanlation_group"
	relCoverArt        = "cover_art"
)

// firstRelationship returns the first relationships entry of the given type.
// The scan stops there even if the entry carries no usable attributes.
func firstRelationship(doc Node, relType string) (Node, bool) {
	for _, rel := range doc.Get("relationships").Items() {
		if t, ok := rel.Get("type").Text(); ok && t == relType {
			return rel, true
		}
	}
	return Node{}, false
}

// ToChapterResult maps one chapter document into a ChapterResult.
func ToChapterResult(chapter Node) models.ChapterResult {
	id, _ := chapter.Get("id").Text()
	attrs := chapter.Get("attributes")

	readableAt := attrs.Get("readableAt").NonBlank()
	if readableAt == nil {
		readableAt = attrs.Get("createdAt").NonBlank()
	}

	var groupName *string
	if rel, ok := firstRelationship(chapter, relScanlationGroup); ok {
		groupName = rel.Path("attributes", "name").NonBlank()
	}

	return models.ChapterResult{
		ChapterID:  id,
		Chapter:    attrs.Get("chapter").NonBlank(),
		Title:      attrs.Get("title").NonBlank(),
		Volume:     attrs.Get("volume").NonBlank(),
		ReadableAt: readableAt,
		GroupName:  groupName,
	}
}

// ToSearchResult maps one manga search item into a SearchResult.
func ToSearchResult(item Node) models.SearchResult {
	id, _ := item.Get("id").Text()
	attrs := item.Get("attributes")

	var coverURL *string
	if rel, ok := firstRelationship(item, relCoverArt); ok {
		if file := rel.Path("attributes", "fileName").NonBlank(); file != nil {
			u := coverBaseURL + id + "/" + *file
			coverURL = &u
		}
	}

	return models.SearchResult{
		ID:       id,
		Title:    PickTitle(attrs),
		Year:     yearOf(attrs.Get("year")),
		CoverURL: coverURL,
	}
}

func yearOf(n Node) *int {
	switch n.Kind() {
	case KindNumber:
		y := int(n.r.Int())
		return &y
	case KindString:
		if y, err := strconv.Atoi(strings.TrimSpace(n.r.Str)); err == nil {
			return &y
		}
	}
	return nil
}
