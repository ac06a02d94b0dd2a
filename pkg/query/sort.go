package query

import (
	"cmp"
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/mesh-intelligence/consultora/pkg/types"
)

// newCollator returns a Spanish collator. Collators keep internal buffers, so
// each sort gets its own.
func newCollator() *collate.Collator {
	return collate.New(language.Spanish)
}

// SortClients orders clients by legal name, ties by ID.
func SortClients(clients []*types.Client) {
	col := newCollator()
	slices.SortStableFunc(clients, func(a, b *types.Client) int {
		if c := col.CompareString(a.LegalName, b.LegalName); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// SortTags orders tags by name, ties by ID.
func SortTags(tags []*types.Tag) {
	col := newCollator()
	slices.SortStableFunc(tags, func(a, b *types.Tag) int {
		if c := col.CompareString(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// SortNotes orders notes newest first, ties by ID.
func SortNotes(notes []*types.Note) {
	slices.SortStableFunc(notes, func(a, b *types.Note) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// SortFiles orders files by year then month, most recent first. Files of the
// same period are ordered newest upload first, then by ID.
func SortFiles(files []*types.File) {
	slices.SortStableFunc(files, func(a, b *types.File) int {
		if c := cmp.Compare(b.Year, a.Year); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Month, a.Month); c != 0 {
			return c
		}
		if c := b.UploadedAt.Compare(a.UploadedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// SortMergedDocuments orders merged documents newest first, ties by ID.
func SortMergedDocuments(docs []*types.MergedDocument) {
	slices.SortStableFunc(docs, func(a, b *types.MergedDocument) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
