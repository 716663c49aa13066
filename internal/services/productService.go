package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
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

// ProductService owns the products collection and performs the author
// lookup joins against users.
type ProductService struct {
	products collection
	users    collection
	blobs    storage.BlobStore
}

func NewProductService(database *mongo.Database, blobs storage.BlobStore) *ProductService {
	return &ProductService{
		products: database.Collection("products"),
		users:    database.Collection("users"),
		blobs:    blobs,
	}
}

// ProductImage accepts the image field in either of its wire forms: a
// plain URL string, or an inline upload {base64, filename}.
type ProductImage struct {
	URL      string
	Base64   string
	Filename string
}

func (p *ProductImage) UnmarshalJSON(data []byte) error {
	var url string
	if err := json.Unmarshal(data, &url); err == nil {
		p.URL = url
		return nil
	}
	var payload struct {
		Base64   string `json:"base64"`
		Filename string `json:"filename"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	p.Base64 = payload.Base64
	p.Filename = payload.Filename
	return nil
}

// CreateProductInput is the create endpoint body.
type CreateProductInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       float64         `json:"price"`
	Image       ProductImage    `json:"image"`
	Authors     []models.Author `json:"authors"`
	Category    string          `json:"category"`
	Stock       int             `json:"stock"`
	Tags        []string        `json:"tags"`
}

// UpdateProductInput is the partial-update body. Authors and ratings are
// managed by their dedicated endpoints.
type UpdateProductInput struct {
	Name        *string       `json:"name"`
	Description *string       `json:"description"`
	Price       *float64      `json:"price"`
	Image       *ProductImage `json:"image"`
	Category    *string       `json:"category"`
	Stock       *int          `json:"stock"`
	Tags        *[]string     `json:"tags"`
}

// Create stores an inline image payload first (substituting the public
// URL into the image field), validates, then inserts.
func (s *ProductService) Create(ctx context.Context, input CreateProductInput) (models.Product, error) {
	imageURL, err := s.resolveImageField(ctx, input.Image)
	if err != nil {
		return models.Product{}, err
	}

	now := time.Now()
	product := models.Product{
		ID:          primitive.NewObjectID(),
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Image:       imageURL,
		Authors:     input.Authors,
		Category:    input.Category,
		Stock:       input.Stock,
		Tags:        input.Tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if product.Category == "" {
		product.Category = models.CategoryOther
	}
	if product.Authors == nil {
		product.Authors = []models.Author{}
	}
	if product.Ratings == nil {
		product.Ratings = []models.Rating{}
	}
	if product.Tags == nil {
		product.Tags = []string{}
	}
	product.NormalizePrice()

	if err := validateProduct(&product); err != nil {
		return models.Product{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if _, err := s.products.InsertOne(ctx, product); err != nil {
		return models.Product{}, apperr.Internal(err)
	}

	if err := s.resolveAuthors(ctx, &product); err != nil {
		return models.Product{}, err
	}
	product.ComputeVirtuals()
	return product, nil
}

// List returns all products, optionally filtered to those authored by the
// given user id.
func (s *ProductService) List(ctx context.Context, authorID string) ([]models.Product, error) {
	filter := bson.M{}
	if authorID != "" {
		objID, err := parseObjectID(authorID, "user")
		if err != nil {
			return nil, err
		}
		filter["authors.authorId"] = objID
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cursor, err := s.products.Find(ctx, filter)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer cursor.Close(ctx)

	products := []models.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		return nil, apperr.Internal(err)
	}

	targets := make([]*models.Product, len(products))
	for i := range products {
		targets[i] = &products[i]
	}
	if err := s.resolveAuthors(ctx, targets...); err != nil {
		return nil, err
	}
	for i := range products {
		products[i].ComputeVirtuals()
	}
	return products, nil
}

// GetByID returns one product with authors resolved.
func (s *ProductService) GetByID(ctx context.Context, id string) (models.Product, error) {
	objID, err := parseObjectID(id, "product")
	if err != nil {
		return models.Product{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var product models.Product
	err = s.products.FindOne(ctx, bson.M{"_id": objID}).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Product{}, apperr.NotFound("product")
		}
		return models.Product{}, apperr.Internal(err)
	}

	if err := s.resolveAuthors(ctx, &product); err != nil {
		return models.Product{}, err
	}
	product.ComputeVirtuals()
	return product, nil
}

// Update applies a partial update with the same inline-image handling as
// Create, re-validating the resulting document.
func (s *ProductService) Update(ctx context.Context, id string, input UpdateProductInput) (models.Product, error) {
	objID, err := parseObjectID(id, "product")
	if err != nil {
		return models.Product{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var current models.Product
	err = s.products.FindOne(ctx, bson.M{"_id": objID}).Decode(&current)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Product{}, apperr.NotFound("product")
		}
		return models.Product{}, apperr.Internal(err)
	}

	set := bson.M{"updatedAt": time.Now()}
	if input.Name != nil {
		current.Name = *input.Name
		set["name"] = current.Name
	}
	if input.Description != nil {
		current.Description = *input.Description
		set["description"] = current.Description
	}
	if input.Price != nil {
		current.Price = models.RoundPrice(*input.Price)
		set["price"] = current.Price
	}
	if input.Image != nil {
		imageURL, err := s.resolveImageField(ctx, *input.Image)
		if err != nil {
			return models.Product{}, err
		}
		current.Image = imageURL
		set["image"] = current.Image
	}
	if input.Category != nil {
		current.Category = *input.Category
		set["category"] = current.Category
	}
	if input.Stock != nil {
		current.Stock = *input.Stock
		set["stock"] = current.Stock
	}
	if input.Tags != nil {
		current.Tags = *input.Tags
		set["tags"] = current.Tags
	}

	if err := validateProduct(&current); err != nil {
		return models.Product{}, err
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Product
	err = s.products.FindOneAndUpdate(ctx, bson.M{"_id": objID}, bson.M{"$set": set}, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Product{}, apperr.NotFound("product")
		}
		return models.Product{}, apperr.Internal(err)
	}

	if err := s.resolveAuthors(ctx, &updated); err != nil {
		return models.Product{}, err
	}
	updated.ComputeVirtuals()
	return updated, nil
}

// Delete removes the product and its embedded authors and ratings.
func (s *ProductService) Delete(ctx context.Context, id string) error {
	objID, err := parseObjectID(id, "product")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	result, err := s.products.DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return apperr.Internal(err)
	}
	if result.DeletedCount == 0 {
		return apperr.NotFound("product")
	}
	return nil
}

// AddAuthor appends an author entry. A duplicate authorId is a silent
// no-op; the call still returns the current product.
func (s *ProductService) AddAuthor(ctx context.Context, productID, authorID, authorName string) (models.Product, error) {
	objID, err := parseObjectID(productID, "product")
	if err != nil {
		return models.Product{}, err
	}
	authorObjID, err := parseObjectID(authorID, "author")
	if err != nil {
		return models.Product{}, err
	}
	if authorName == "" {
		return models.Product{}, apperr.Validation([]apperr.FieldError{
			{Field: "authorName", Message: "authorName is required"},
		})
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var product models.Product
	err = s.products.FindOne(ctx, bson.M{"_id": objID}).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Product{}, apperr.NotFound("product")
		}
		return models.Product{}, apperr.Internal(err)
	}

	if product.AddAuthor(authorObjID, authorName) {
		_, err = s.products.UpdateOne(ctx, bson.M{"_id": objID},
			bson.M{"$set": bson.M{"authors": product.Authors, "updatedAt": time.Now()}})
		if err != nil {
			return models.Product{}, apperr.Internal(err)
		}
	}

	if err := s.resolveAuthors(ctx, &product); err != nil {
		return models.Product{}, err
	}
	product.ComputeVirtuals()
	return product, nil
}

// AddRating inserts or replaces the caller's rating for the product.
func (s *ProductService) AddRating(ctx context.Context, productID, userID string, rating int, comment string) (models.Product, error) {
	objID, err := parseObjectID(productID, "product")
	if err != nil {
		return models.Product{}, err
	}
	userObjID, err := parseObjectID(userID, "user")
	if err != nil {
		return models.Product{}, err
	}

	entry := models.Rating{UserID: userObjID, Rating: rating, Comment: comment}
	if err := validateRating(&entry); err != nil {
		return models.Product{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var product models.Product
	err = s.products.FindOne(ctx, bson.M{"_id": objID}).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Product{}, apperr.NotFound("product")
		}
		return models.Product{}, apperr.Internal(err)
	}

	product.UpsertRating(userObjID, rating, comment)
	_, err = s.products.UpdateOne(ctx, bson.M{"_id": objID},
		bson.M{"$set": bson.M{"ratings": product.Ratings, "updatedAt": time.Now()}})
	if err != nil {
		return models.Product{}, apperr.Internal(err)
	}

	if err := s.resolveAuthors(ctx, &product); err != nil {
		return models.Product{}, err
	}
	product.ComputeVirtuals()
	return product, nil
}

// resolveImageField stores inline bytes and returns the public URL, or
// passes an existing URL through.
func (s *ProductService) resolveImageField(ctx context.Context, image ProductImage) (string, error) {
	if image.Base64 == "" {
		return image.URL, nil
	}
	if image.Filename == "" {
		return "", apperr.BadRequest("image filename is required for inline uploads")
	}
	data, err := base64.StdEncoding.DecodeString(image.Base64)
	if err != nil {
		return "", apperr.BadRequest("invalid base64 image payload")
	}
	url, err := s.blobs.Save(ctx, image.Filename, data)
	if err != nil {
		return "", apperr.Internal(err)
	}
	return url, nil
}

func validateProduct(p *models.Product) error {
	return validation.Struct(p)
}

func validateRating(r *models.Rating) error {
	return validation.Struct(r)
}

// resolveAuthors attaches {id, fullName, phone} for every author
// reference across the given products via a single $in lookup.
// References are stored as ids, never as embedded copies.
func (s *ProductService) resolveAuthors(ctx context.Context, targets ...*models.Product) error {
	idSet := make(map[primitive.ObjectID]struct{})
	for _, p := range targets {
		for _, a := range p.Authors {
			idSet[a.AuthorID] = struct{}{}
		}
	}
	if len(idSet) == 0 {
		return nil
	}

	ids := make([]primitive.ObjectID, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	cursor, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"fullName": 1, "phone": 1}))
	if err != nil {
		return apperr.Internal(err)
	}
	defer cursor.Close(ctx)

	var authors []models.User
	if err := cursor.All(ctx, &authors); err != nil {
		return apperr.Internal(err)
	}

	byID := make(map[primitive.ObjectID]models.AuthorInfo, len(authors))
	for _, u := range authors {
		byID[u.ID] = models.AuthorInfo{ID: u.ID, FullName: u.FullName, Phone: u.Phone}
	}

	for _, p := range targets {
		for i := range p.Authors {
			if info, ok := byID[p.Authors[i].AuthorID]; ok {
				resolved := info
				p.Authors[i].Author = &resolved
			}
		}
	}
	return nil
}
