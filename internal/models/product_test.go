package models

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestComputeAverageRating(t *testing.T) {
	tests := []struct {
		name    string
		ratings []int
		want    float64
	}{
		{"no ratings", nil, 0},
		{"single rating", []int{3}, 3.0},
		{"three ratings", []int{3, 4, 5}, 4.0},
		{"rounds to one decimal", []int{4, 5}, 4.5},
		{"rounds up", []int{1, 1, 2}, 1.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Product{}
			for _, r := range tt.ratings {
				p.Ratings = append(p.Ratings, Rating{UserID: primitive.NewObjectID(), Rating: r})
			}
			if got := p.ComputeAverageRating(); got != tt.want {
				t.Errorf("ComputeAverageRating() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRoundPrice(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{9.999, 10.00},
		{9.994, 9.99},
		{10, 10},
		{0, 0},
		{19.005, 19.01},
	}

	for _, tt := range tests {
		if got := RoundPrice(tt.in); got != tt.want {
			t.Errorf("RoundPrice(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestAddAuthorIdempotent(t *testing.T) {
	p := Product{}
	id := primitive.NewObjectID()

	if !p.AddAuthor(id, "Alice") {
		t.Fatal("first AddAuthor should report a change")
	}
	if p.AddAuthor(id, "Alice") {
		t.Fatal("second AddAuthor with same id should be a no-op")
	}
	if len(p.Authors) != 1 {
		t.Fatalf("expected exactly one author entry, got %d", len(p.Authors))
	}

	other := primitive.NewObjectID()
	if !p.AddAuthor(other, "Bob") {
		t.Fatal("AddAuthor with new id should append")
	}
	if len(p.Authors) != 2 {
		t.Fatalf("expected two author entries, got %d", len(p.Authors))
	}
}

func TestUpsertRating(t *testing.T) {
	p := Product{}
	user := primitive.NewObjectID()

	p.UpsertRating(user, 2, "meh")
	p.UpsertRating(user, 5, "actually great")

	if len(p.Ratings) != 1 {
		t.Fatalf("expected one rating entry, got %d", len(p.Ratings))
	}
	if p.Ratings[0].Rating != 5 || p.Ratings[0].Comment != "actually great" {
		t.Errorf("second call should replace the entry, got %+v", p.Ratings[0])
	}

	p.UpsertRating(primitive.NewObjectID(), 4, "")
	if len(p.Ratings) != 2 {
		t.Fatalf("rating from a different user should append, got %d entries", len(p.Ratings))
	}
}

func TestComputeVirtuals(t *testing.T) {
	p := Product{
		Authors: []Author{
			{AuthorID: primitive.NewObjectID(), AuthorName: "Alice"},
			{AuthorID: primitive.NewObjectID(), AuthorName: "Bob"},
		},
		Ratings: []Rating{
			{UserID: primitive.NewObjectID(), Rating: 3},
			{UserID: primitive.NewObjectID(), Rating: 4},
			{UserID: primitive.NewObjectID(), Rating: 5},
		},
	}
	p.ComputeVirtuals()

	if p.AuthorCount != 2 {
		t.Errorf("AuthorCount = %d, want 2", p.AuthorCount)
	}
	if p.AverageRating != 4.0 {
		t.Errorf("AverageRating = %v, want 4.0", p.AverageRating)
	}
}

func TestIsAuthor(t *testing.T) {
	id := primitive.NewObjectID()
	p := Product{Authors: []Author{{AuthorID: id, AuthorName: "Alice"}}}

	if !p.IsAuthor(id) {
		t.Error("expected IsAuthor true for listed author")
	}
	if p.IsAuthor(primitive.NewObjectID()) {
		t.Error("expected IsAuthor false for unknown user")
	}
}
