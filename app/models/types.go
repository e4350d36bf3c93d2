package models

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names so messages match the wire format.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateStruct runs the shared validator against any tagged struct.
func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

// NewID returns a fresh 24-character hex identifier. The leading bytes encode
// the creation second, so ids of the same process sort by creation order.
func NewID() string {
	return bson.NewObjectID().Hex()
}

// Now returns the current time at the precision every backend can store.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// User is an identity record.
type User struct {
	ID           string    `json:"id" bson:"_id"`
	Username     string    `json:"username" bson:"username" validate:"required,min=2,max=50"`
	Email        string    `json:"email" bson:"email" validate:"required,email"`
	PasswordHash string    `json:"-" bson:"password_hash" validate:"required"`
	Avatar       string    `json:"avatar,omitempty" bson:"avatar,omitempty" validate:"omitempty,max=2048"`
	Role         Role      `json:"role" bson:"role" validate:"required,oneof=student teacher"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
}

// Post is the aggregate root: it owns its like set and the denormalized
// comment counter.
type Post struct {
	ID            string    `json:"id" bson:"_id"`
	Title         string    `json:"title" bson:"title" validate:"required,max=200"`
	Content       string    `json:"content" bson:"content" validate:"required,max=10000"`
	Image         string    `json:"image,omitempty" bson:"image,omitempty"`
	Category      Category  `json:"category" bson:"category" validate:"required,oneof=question announcement discussion"`
	AuthorID      string    `json:"authorId" bson:"author_id" validate:"required"`
	Author        *User     `json:"user,omitempty" bson:"-" validate:"-"`
	Likes         []string  `json:"likes" bson:"likes" validate:"-"`
	CommentsCount int       `json:"commentsCount" bson:"comments_count" validate:"gte=0"`
	CreatedAt     time.Time `json:"createdAt" bson:"created_at"`
}

// Comment belongs to exactly one post and one author.
type Comment struct {
	ID        string    `json:"id" bson:"_id"`
	Content   string    `json:"content" bson:"content" validate:"required,max=1000"`
	AuthorID  string    `json:"authorId" bson:"author_id" validate:"required"`
	Author    *User     `json:"user,omitempty" bson:"-" validate:"-"`
	PostID    string    `json:"postId" bson:"post_id" validate:"required"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
}

// Principal is the authenticated caller as carried by a bearer token.
type Principal struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}
