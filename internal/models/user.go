package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultUserImage is the placeholder assigned at registration. It is a
// relative path so reads rewrite it against the configured public host.
const DefaultUserImage = "/uploads/default-avatar.webp"

// User is a registered account. Accounts are blocked by default until an
// admin unblocks them. Password is bcrypt-hashed before persistence and
// excluded from every read.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Phone     string             `bson:"phone" json:"phone" validate:"required,phone"`
	FullName  string             `bson:"fullName" json:"fullName" validate:"required,max=100"`
	Password  string             `bson:"password,omitempty" json:"-" validate:"required,min=8"`
	Image     string             `bson:"image" json:"image"`
	IsAdmin   bool               `bson:"isAdmin" json:"isAdmin"`
	IsBlocked bool               `bson:"isBlocked" json:"isBlocked"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ResolveImageURL rewrites a stored image path into an absolute URL.
// Values already carrying a scheme pass through unchanged; this is a
// presentation transform, never written back to the store.
func ResolveImageURL(image, baseURL string) string {
	if image == "" || strings.HasPrefix(image, "http") {
		return image
	}
	return baseURL + image
}
