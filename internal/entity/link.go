// Package entity defines the entities and errors used in the application.
// It includes the Link struct, which maps a short code to a destination URL
// together with its click statistics, and the error values shared by the
// use case, repository and delivery layers.
package entity

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrShortCodeExists is returned when attempting to create a link with a short code that is already taken.
	ErrShortCodeExists = errors.New("short code exists")
	// ErrLinkNotFound is returned when a link with the specified short code cannot be found.
	ErrLinkNotFound = errors.New("link not found")
	// ErrInvalidShortCode is returned when a custom short code is not 6-8 alphanumeric characters.
	ErrInvalidShortCode = errors.New("short code must be 6-8 alphanumeric characters")
	// ErrOriginalURLRequired is returned when a link is created without a destination URL.
	ErrOriginalURLRequired = errors.New("original url is required")
)

// Link represents a short code pointing to a destination URL.
type Link struct {
	ID          uuid.UUID // ID is the unique identifier of the link.
	ShortCode   string    // ShortCode is the key used in the redirect path.
	OriginalURL string    // OriginalURL is the destination the short code redirects to.
	LinkStats             // LinkStats contains click statistics of the link.
	CreatedAt   time.Time // CreatedAt is the timestamp when the link was created.
}

// LinkStats contains click statistics of a link.
type LinkStats struct {
	Clicks      int64      // Clicks is the number of redirects served for the link.
	LastClicked *time.Time // LastClicked is the time of the latest redirect, nil until the first one.
}

// Click describes a single redirect that has to be counted.
type Click struct {
	LinkID    uuid.UUID
	ShortCode string
	ClickedAt time.Time
}
