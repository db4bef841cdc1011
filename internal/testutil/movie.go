package testutil

import (
	"fmt"
	"time"
)

// MovieRating is a named integer, so resolvers treat it as an enum.
type MovieRating int

const (
	Unrated MovieRating = iota
	G
	PG
	PG13
	R
)

// Studio is a nested entity reachable as Movie.Studio.
type Studio struct {
	Name    string `json:"name"`
	Country string `json:"country"`
}

// Movie is the entity used across package tests.
//
// ID and Deleted are untagged to exercise default wire-name derivation.
type Movie struct {
	ID                string
	Title             string      `json:"title"`
	Duration          int32       `json:"duration"`
	Year              int32       `json:"year"`
	Rating            MovieRating `json:"rating"`
	BestPictureWinner bool        `json:"bestPictureWinner"`
	StringValue       string      `json:"stringValue"`
	Deleted           bool

	// ReleaseDate carries its own offset.
	ReleaseDate time.Time `json:"releaseDate"`

	PremiereDate time.Time `json:"premiereDate" odata:"date"`
	UpdatedAt    time.Time `json:"updatedAt" odata:"datetime"`
	Budget       float64   `json:"budget" odata:"decimal"`

	Studio *Studio `json:"studio,omitempty"`

	Secret string `json:"-"`
}

// Movies returns n movies with sequential ids "id-001", "id-002", ...
func Movies(n int) []Movie {
	out := make([]Movie, n)
	for i := range out {
		out[i] = Movie{
			ID:    idFor(i + 1),
			Title: "Movie " + idFor(i+1),
			Year:  int32(1990 + i),
		}
	}
	return out
}

func idFor(i int) string {
	return fmt.Sprintf("id-%03d", i)
}
