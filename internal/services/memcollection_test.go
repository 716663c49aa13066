package services

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"shopapi/internal/models"
)

// memCollection is an in-memory collection for the service tests. It
// understands exactly the filters and updates the services issue and
// hands back real driver cursors and results, so the full decode path
// is exercised.
type memCollection struct {
	mu   sync.Mutex
	docs []interface{}
}

func newMemCollection() *memCollection { return &memCollection{} }

func (c *memCollection) add(docs ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs = append(c.docs, docs...)
}

func (c *memCollection) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var count int64
	for _, doc := range c.docs {
		if matchDoc(doc, filter.(bson.M)) {
			count++
		}
	}
	return count, nil
}

func (c *memCollection) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if u, ok := document.(models.User); ok {
		for _, doc := range c.docs {
			if existing, ok := doc.(models.User); ok && existing.Phone == u.Phone {
				return nil, mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000}}}
			}
		}
	}
	c.docs = append(c.docs, document)
	return &mongo.InsertOneResult{InsertedID: docID(document)}, nil
}

func (c *memCollection) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, doc := range c.docs {
		if matchDoc(doc, filter.(bson.M)) {
			for _, o := range opts {
				if o != nil && o.Projection != nil {
					doc = applyProjection(doc, o.Projection)
				}
			}
			return mongo.NewSingleResultFromDocument(doc, nil, nil)
		}
	}
	return mongo.NewSingleResultFromDocument(bson.D{}, mongo.ErrNoDocuments, nil)
}

func (c *memCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	results := []interface{}{}
	for _, doc := range c.docs {
		if matchDoc(doc, filter.(bson.M)) {
			for _, o := range opts {
				if o != nil && o.Projection != nil {
					doc = applyProjection(doc, o.Projection)
				}
			}
			results = append(results, doc)
		}
	}
	return mongo.NewCursorFromDocuments(results, nil, nil)
}

func (c *memCollection) FindOneAndUpdate(ctx context.Context, filter, update interface{}, opts ...*options.FindOneAndUpdateOptions) *mongo.SingleResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	set, _ := update.(bson.M)["$set"].(bson.M)
	for i, doc := range c.docs {
		if matchDoc(doc, filter.(bson.M)) {
			updated := applySet(doc, set)
			c.docs[i] = updated
			for _, o := range opts {
				if o != nil && o.Projection != nil {
					updated = applyProjection(updated, o.Projection)
				}
			}
			return mongo.NewSingleResultFromDocument(updated, nil, nil)
		}
	}
	return mongo.NewSingleResultFromDocument(bson.D{}, mongo.ErrNoDocuments, nil)
}

func (c *memCollection) UpdateOne(ctx context.Context, filter, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	set, _ := update.(bson.M)["$set"].(bson.M)
	for i, doc := range c.docs {
		if matchDoc(doc, filter.(bson.M)) {
			c.docs[i] = applySet(doc, set)
			return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
		}
	}
	return &mongo.UpdateResult{}, nil
}

func (c *memCollection) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, doc := range c.docs {
		if matchDoc(doc, filter.(bson.M)) {
			c.docs = append(c.docs[:i], c.docs[i+1:]...)
			return &mongo.DeleteResult{DeletedCount: 1}, nil
		}
	}
	return &mongo.DeleteResult{}, nil
}

func matchDoc(doc interface{}, filter bson.M) bool {
	for key, want := range filter {
		switch d := doc.(type) {
		case models.User:
			switch key {
			case "_id":
				if !matchID(d.ID, want) {
					return false
				}
			case "phone":
				if d.Phone != want {
					return false
				}
			default:
				return false
			}
		case models.Product:
			switch key {
			case "_id":
				if !matchID(d.ID, want) {
					return false
				}
			case "authors.authorId":
				id, ok := want.(primitive.ObjectID)
				if !ok || !hasAuthor(d.Authors, id) {
					return false
				}
			default:
				return false
			}
		default:
			return false
		}
	}
	return true
}

func matchID(id primitive.ObjectID, want interface{}) bool {
	switch w := want.(type) {
	case primitive.ObjectID:
		return id == w
	case bson.M:
		in, ok := w["$in"].([]primitive.ObjectID)
		if !ok {
			return false
		}
		for _, candidate := range in {
			if candidate == id {
				return true
			}
		}
	}
	return false
}

func hasAuthor(authors []models.Author, id primitive.ObjectID) bool {
	for _, a := range authors {
		if a.AuthorID == id {
			return true
		}
	}
	return false
}

func docID(doc interface{}) primitive.ObjectID {
	switch d := doc.(type) {
	case models.User:
		return d.ID
	case models.Product:
		return d.ID
	}
	return primitive.NilObjectID
}

func applySet(doc interface{}, set bson.M) interface{} {
	switch d := doc.(type) {
	case models.User:
		for key, value := range set {
			switch key {
			case "fullName":
				d.FullName = value.(string)
			case "image":
				d.Image = value.(string)
			case "password":
				d.Password = value.(string)
			case "isBlocked":
				d.IsBlocked = value.(bool)
			case "isAdmin":
				d.IsAdmin = value.(bool)
			case "updatedAt":
				d.UpdatedAt = value.(time.Time)
			}
		}
		return d
	case models.Product:
		for key, value := range set {
			switch key {
			case "name":
				d.Name = value.(string)
			case "description":
				d.Description = value.(string)
			case "price":
				d.Price = value.(float64)
			case "image":
				d.Image = value.(string)
			case "category":
				d.Category = value.(string)
			case "stock":
				d.Stock = value.(int)
			case "tags":
				d.Tags = value.([]string)
			case "authors":
				d.Authors = value.([]models.Author)
			case "ratings":
				d.Ratings = value.([]models.Rating)
			case "updatedAt":
				d.UpdatedAt = value.(time.Time)
			}
		}
		return d
	}
	return doc
}

// applyProjection honors the two projections the services use: password
// exclusion, and the fullName/phone inclusion of the author lookup.
func applyProjection(doc interface{}, proj interface{}) interface{} {
	m, ok := proj.(bson.M)
	if !ok {
		return doc
	}
	u, ok := doc.(models.User)
	if !ok {
		return doc
	}
	if v, ok := m["password"]; ok && v == 0 {
		u.Password = ""
	}
	if v, ok := m["fullName"]; ok && v == 1 {
		u = models.User{ID: u.ID, FullName: u.FullName, Phone: u.Phone}
	}
	return u
}
