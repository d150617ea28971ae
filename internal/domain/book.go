// Package domain contains the core business entities for Bodleian.
// These are pure Go structs with no external dependencies, representing
// the fundamental concepts of the library-management system.
package domain

import (
	"time"
)

// Book represents a title in the library catalog. A book has a fixed number
// of physical copies; AvailableCopies is mutated only by borrow and return
// operations.
type Book struct {
	// ID is the unique identifier for the book.
	ID string `json:"id"`

	// Title is the book's title.
	Title string `json:"title"`

	// Author is the book's author.
	Author string `json:"author"`

	// ISBN is the unique catalog number.
	ISBN string `json:"isbn"`

	// PublishedDate is the publication date recorded when the book was added.
	PublishedDate time.Time `json:"published_date"`

	// TotalCopies is the number of physical copies the library owns.
	TotalCopies int `json:"total_copies"`

	// AvailableCopies is the number of copies currently on the shelf.
	// Invariant: 0 <= AvailableCopies <= TotalCopies.
	AvailableCopies int `json:"available_copies"`

	// Genre is an optional classification.
	Genre string `json:"genre,omitempty"`

	// Borrowers holds the IDs of users currently holding a copy.
	// Mirrors each user's BorrowedBooks set.
	Borrowers []string `json:"borrowers,omitempty"`
}

// NewBook creates a new Book with all copies available.
func NewBook(id, title, author, isbn, genre string, totalCopies int, publishedDate time.Time) *Book {
	return &Book{
		ID:              id,
		Title:           title,
		Author:          author,
		ISBN:            isbn,
		PublishedDate:   publishedDate,
		TotalCopies:     totalCopies,
		AvailableCopies: totalCopies,
		Genre:           genre,
	}
}

// IsBorrowedBy reports whether the user currently holds a copy of this book.
func (b *Book) IsBorrowedBy(userID string) bool {
	for _, id := range b.Borrowers {
		if id == userID {
			return true
		}
	}
	return false
}

// BookSummary is the compact book representation embedded in transaction
// listings.
type BookSummary struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
}

// Summary returns the compact representation of the book.
func (b *Book) Summary() BookSummary {
	return BookSummary{ID: b.ID, Title: b.Title, Author: b.Author}
}
