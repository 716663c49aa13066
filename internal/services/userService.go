package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"shopapi/internal/apperr"
	"shopapi/internal/models"
	"shopapi/internal/storage"
	"shopapi/internal/validation"
)

const dbTimeout = 10 * time.Second

// noPassword excludes the password hash from reads. Every read path goes
// through this projection; the hash never leaves the service.
var noPassword = bson.M{"password": 0}

// UserService owns the users collection. The same instance serves the
// HTTP handlers and the realtime channel.
type UserService struct {
	users   collection
	tokens  *TokenService
	blobs   storage.BlobStore
	baseURL string
}

func NewUserService(database *mongo.Database, tokens *TokenService, blobs storage.BlobStore, baseURL string) *UserService {
	return &UserService{
		users:   database.Collection("users"),
		tokens:  tokens,
		blobs:   blobs,
		baseURL: baseURL,
	}
}

// UpdateUserInput is the partial-update payload for the REST endpoint.
// Nil fields are left untouched.
type UpdateUserInput struct {
	FullName  *string `json:"fullName"`
	Image     *string `json:"image"`
	IsBlocked *bool   `json:"isBlocked"`
	IsAdmin   *bool   `json:"isAdmin"`
}

// ImagePayload is the realtime profile-update image convention: either
// inline base64 bytes to store, or an already-public URL to pass through.
type ImagePayload struct {
	Base64 string `json:"base64"`
	URL    string `json:"url"`
}

// Register creates a user. New accounts are blocked by default and carry
// the placeholder avatar.
func (s *UserService) Register(ctx context.Context, phone, fullName, password string) (models.User, string, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	now := time.Now()
	user := models.User{
		ID:        primitive.NewObjectID(),
		Phone:     phone,
		FullName:  fullName,
		Password:  password,
		Image:     models.DefaultUserImage,
		IsAdmin:   false,
		IsBlocked: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := validation.Struct(&user); err != nil {
		return models.User{}, "", err
	}

	// Pre-check for a friendlier message; the unique index is the real
	// enforcement.
	count, err := s.users.CountDocuments(ctx, bson.M{"phone": phone})
	if err != nil {
		return models.User{}, "", apperr.Internal(err)
	}
	if count > 0 {
		return models.User{}, "", apperr.Duplicate("phone number already in use")
	}

	hashed, err := HashPassword(password)
	if err != nil {
		return models.User{}, "", apperr.Internal(err)
	}
	user.Password = hashed

	if _, err := s.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.User{}, "", apperr.Duplicate("phone number already in use")
		}
		return models.User{}, "", apperr.Internal(err)
	}

	token, err := s.tokens.GenerateToken(user.ID.Hex(), user.IsAdmin)
	if err != nil {
		return models.User{}, "", apperr.Internal(err)
	}

	user.Password = ""
	s.resolveImage(&user)
	return user, token, nil
}

// Login authenticates by phone and password. Blocked users can still log
// in; access control happens elsewhere.
func (s *UserService) Login(ctx context.Context, phone, password string) (models.User, string, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var user models.User
	err := s.users.FindOne(ctx, bson.M{"phone": phone}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, "", apperr.InvalidCredentials("user not found")
		}
		return models.User{}, "", apperr.Internal(err)
	}

	if !VerifyPassword(password, user.Password) {
		return models.User{}, "", apperr.InvalidCredentials("incorrect password")
	}

	token, err := s.tokens.GenerateToken(user.ID.Hex(), user.IsAdmin)
	if err != nil {
		return models.User{}, "", apperr.Internal(err)
	}

	user.Password = ""
	s.resolveImage(&user)
	return user, token, nil
}

// GetAll returns every user, passwords omitted.
func (s *UserService) GetAll(ctx context.Context) ([]models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cursor, err := s.users.Find(ctx, bson.M{}, options.Find().SetProjection(noPassword))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, apperr.Internal(err)
	}
	for i := range users {
		s.resolveImage(&users[i])
	}
	return users, nil
}

// GetByID returns one user, password omitted.
func (s *UserService) GetByID(ctx context.Context, id string) (models.User, error) {
	objID, err := parseObjectID(id, "user")
	if err != nil {
		return models.User{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var user models.User
	err = s.users.FindOne(ctx, bson.M{"_id": objID}, options.FindOne().SetProjection(noPassword)).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, apperr.NotFound("user")
		}
		return models.User{}, apperr.Internal(err)
	}

	s.resolveImage(&user)
	return user, nil
}

// Update applies a partial update after re-validating the resulting
// document against the schema constraints.
func (s *UserService) Update(ctx context.Context, id string, input UpdateUserInput) (models.User, error) {
	objID, err := parseObjectID(id, "user")
	if err != nil {
		return models.User{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var current models.User
	err = s.users.FindOne(ctx, bson.M{"_id": objID}).Decode(&current)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, apperr.NotFound("user")
		}
		return models.User{}, apperr.Internal(err)
	}

	set := bson.M{"updatedAt": time.Now()}
	if input.FullName != nil {
		current.FullName = *input.FullName
		set["fullName"] = *input.FullName
	}
	if input.Image != nil {
		current.Image = *input.Image
		set["image"] = *input.Image
	}
	if input.IsBlocked != nil {
		current.IsBlocked = *input.IsBlocked
		set["isBlocked"] = *input.IsBlocked
	}
	if input.IsAdmin != nil {
		current.IsAdmin = *input.IsAdmin
		set["isAdmin"] = *input.IsAdmin
	}
	if err := validation.Struct(&current); err != nil {
		return models.User{}, err
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(noPassword)
	var updated models.User
	err = s.users.FindOneAndUpdate(ctx, bson.M{"_id": objID}, bson.M{"$set": set}, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, apperr.NotFound("user")
		}
		return models.User{}, apperr.Internal(err)
	}

	s.resolveImage(&updated)
	return updated, nil
}

// UpdateProfile is the realtime-channel variant of Update: only fullName
// and image may change, and the image may arrive as inline base64 bytes.
// A present-but-empty fullName is forwarded so validation rejects it; a
// nil fullName leaves the field untouched.
func (s *UserService) UpdateProfile(ctx context.Context, id string, fullName *string, image *ImagePayload) (models.User, error) {
	input := UpdateUserInput{FullName: fullName}

	if image != nil {
		switch {
		case image.Base64 != "":
			data, err := base64.StdEncoding.DecodeString(image.Base64)
			if err != nil {
				return models.User{}, apperr.BadRequest("invalid base64 image payload")
			}
			filename := fmt.Sprintf("user-%s-%d.jpg", id, time.Now().UnixMilli())
			url, err := s.blobs.Save(ctx, filename, data)
			if err != nil {
				return models.User{}, apperr.Internal(err)
			}
			input.Image = &url
		case image.URL != "":
			input.Image = &image.URL
		}
	}

	return s.Update(ctx, id, input)
}

// ChangePassword verifies the current password before re-hashing and
// persisting the new one.
func (s *UserService) ChangePassword(ctx context.Context, id, currentPassword, newPassword string) error {
	objID, err := parseObjectID(id, "user")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var user models.User
	err = s.users.FindOne(ctx, bson.M{"_id": objID}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return apperr.NotFound("user")
		}
		return apperr.Internal(err)
	}

	if !VerifyPassword(currentPassword, user.Password) {
		return apperr.InvalidCredentials("current password incorrect")
	}
	if len(newPassword) < 8 {
		return apperr.Validation([]apperr.FieldError{
			{Field: "password", Message: "password must be at least 8"},
		})
	}

	hashed, err := HashPassword(newPassword)
	if err != nil {
		return apperr.Internal(err)
	}

	_, err = s.users.UpdateOne(ctx, bson.M{"_id": objID},
		bson.M{"$set": bson.M{"password": hashed, "updatedAt": time.Now()}})
	if err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// ToggleBlock flips the blocked flag and returns the updated state.
func (s *UserService) ToggleBlock(ctx context.Context, id string) (models.User, error) {
	objID, err := parseObjectID(id, "user")
	if err != nil {
		return models.User{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var user models.User
	err = s.users.FindOne(ctx, bson.M{"_id": objID}, options.FindOne().SetProjection(noPassword)).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, apperr.NotFound("user")
		}
		return models.User{}, apperr.Internal(err)
	}

	user.IsBlocked = !user.IsBlocked
	_, err = s.users.UpdateOne(ctx, bson.M{"_id": objID},
		bson.M{"$set": bson.M{"isBlocked": user.IsBlocked, "updatedAt": time.Now()}})
	if err != nil {
		return models.User{}, apperr.Internal(err)
	}

	s.resolveImage(&user)
	return user, nil
}

// Delete removes the user document. Authored products and ratings are
// intentionally left in place.
func (s *UserService) Delete(ctx context.Context, id string) error {
	objID, err := parseObjectID(id, "user")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	result, err := s.users.DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return apperr.Internal(err)
	}
	if result.DeletedCount == 0 {
		return apperr.NotFound("user")
	}
	return nil
}

func (s *UserService) resolveImage(u *models.User) {
	u.Image = models.ResolveImageURL(u.Image, s.baseURL)
}

func parseObjectID(id, resource string) (primitive.ObjectID, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperr.BadRequest("invalid " + resource + " id")
	}
	return objID, nil
}
