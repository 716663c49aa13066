package models

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product categories. Unknown values are rejected at validation.
const (
	CategoryElectronics = "Electronics"
	CategoryFashion     = "Fashion"
	CategoryHome        = "Home"
	CategoryFood        = "Food"
	CategoryBeauty      = "Beauty"
	CategoryOther       = "Other"
)

// Author links a product to a user without embedding the user document.
// Author details are resolved at read time by the product service.
type Author struct {
	AuthorID   primitive.ObjectID `bson:"authorId" json:"authorId" validate:"required"`
	AuthorName string             `bson:"authorName" json:"authorName" validate:"required"`
	Author     *AuthorInfo        `bson:"-" json:"author,omitempty"`
}

// AuthorInfo is the resolved subset of the referenced user.
type AuthorInfo struct {
	ID       primitive.ObjectID `json:"id"`
	FullName string             `json:"fullName"`
	Phone    string             `json:"phone"`
}

// Rating is one user's evaluation of a product. A user has at most one
// entry; UpsertRating enforces that.
type Rating struct {
	UserID  primitive.ObjectID `bson:"userId" json:"userId"`
	Rating  int                `bson:"rating" json:"rating" validate:"min=1,max=5"`
	Comment string             `bson:"comment" json:"comment" validate:"max=500"`
}

type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name        string             `bson:"name" json:"name" validate:"required,max=100"`
	Description string             `bson:"description" json:"description" validate:"required,min=50,max=2000"`
	Price       float64            `bson:"price" json:"price" validate:"min=0"`
	Image       string             `bson:"image" json:"image" validate:"required,imageurl"`
	Authors     []Author           `bson:"authors" json:"authors" validate:"dive"`
	Category    string             `bson:"category" json:"category" validate:"omitempty,oneof=Electronics Fashion Home Food Beauty Other"`
	Stock       int                `bson:"stock" json:"stock" validate:"min=0"`
	Ratings     []Rating           `bson:"ratings" json:"ratings" validate:"dive"`
	Tags        []string           `bson:"tags" json:"tags" validate:"max=15"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`

	// Computed on serialization, never stored.
	AuthorCount   int     `bson:"-" json:"authorCount"`
	AverageRating float64 `bson:"-" json:"averageRating"`
}

// RoundPrice normalizes a price to exactly two decimal places.
func RoundPrice(price float64) float64 {
	return math.Round(price*100) / 100
}

// NormalizePrice applies the two-decimal rule to the stored price.
func (p *Product) NormalizePrice() {
	p.Price = RoundPrice(p.Price)
}

// ComputeVirtuals fills the derived fields returned to clients.
func (p *Product) ComputeVirtuals() {
	p.AuthorCount = len(p.Authors)
	p.AverageRating = p.ComputeAverageRating()
}

// ComputeAverageRating is the arithmetic mean of all rating values rounded
// to one decimal place, 0 when there are no ratings.
func (p *Product) ComputeAverageRating() float64 {
	if len(p.Ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range p.Ratings {
		sum += r.Rating
	}
	avg := float64(sum) / float64(len(p.Ratings))
	return math.Round(avg*10) / 10
}

// AddAuthor appends an author entry unless the id is already present.
// Returns true if the list changed.
func (p *Product) AddAuthor(authorID primitive.ObjectID, authorName string) bool {
	for _, a := range p.Authors {
		if a.AuthorID == authorID {
			return false
		}
	}
	p.Authors = append(p.Authors, Author{AuthorID: authorID, AuthorName: authorName})
	return true
}

// UpsertRating replaces the caller's existing rating or appends a new one.
func (p *Product) UpsertRating(userID primitive.ObjectID, rating int, comment string) {
	for i, r := range p.Ratings {
		if r.UserID == userID {
			p.Ratings[i].Rating = rating
			p.Ratings[i].Comment = comment
			return
		}
	}
	p.Ratings = append(p.Ratings, Rating{UserID: userID, Rating: rating, Comment: comment})
}

// IsAuthor reports whether the given user appears in the author list.
func (p *Product) IsAuthor(userID primitive.ObjectID) bool {
	for _, a := range p.Authors {
		if a.AuthorID == userID {
			return true
		}
	}
	return false
}
