package userstore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/knowledgeconnect/knowledgeconnect/internal/app/system/htmlsanitize"
	"github.com/knowledgeconnect/knowledgeconnect/internal/app/system/normalize"
	"github.com/knowledgeconnect/knowledgeconnect/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

var (
	// ErrDuplicateEmail is returned when attempting to register with an email that already exists.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	// ErrInvalidCredentials is returned for a failed login. Deliberately
	// identical whether the email or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid login credentials")

	// ErrMissingFields is returned when a required registration field is blank.
	ErrMissingFields = errors.New("fullName, email, and password are required")
	// ErrShortPassword is returned when the password fails the length rule.
	ErrShortPassword = errors.New("password must be at least 8 characters")
)

// bcryptCost matches the rest of the credential hashing in the app.
const bcryptCost = 12

// Create inserts a new user after normalizing & validating fields and
// hashing the password.
func (s *Store) Create(ctx context.Context, u models.User, password string) (models.User, error) {
	u.FullName = normalize.Name(u.FullName)
	u.Email = normalize.Email(u.Email)
	if u.FullName == "" || u.Email == "" || password == "" {
		return models.User{}, ErrMissingFields
	}
	if len(password) < 8 {
		return models.User{}, ErrShortPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return models.User{}, err
	}

	u.ID = primitive.NewObjectID()
	u.FullNameCI = text.Fold(u.FullName)
	u.StudentEmail = normalize.Email(u.StudentEmail)
	u.PasswordHash = string(hash)
	u.Bio = htmlsanitize.Sanitize(u.Bio)
	if u.ProfilePicture == "" {
		u.ProfilePicture = models.DefaultProfilePicture
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// Authenticate finds the user for a case-insensitive email and compares
// the password against the stored bcrypt hash.
func (s *Store) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &u, nil
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail looks up a user by case-insensitive email. Returns
// mongo.ErrNoDocuments if not found.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ProfileUpdate holds the fields a user may change on their own profile.
// Anything not listed here cannot be patched.
type ProfileUpdate struct {
	FullName       *string   `json:"fullName,omitempty"`
	Email          *string   `json:"email,omitempty"`
	StudentEmail   *string   `json:"studentEmail,omitempty"`
	InstituteName  *string   `json:"instituteName,omitempty"`
	Country        *string   `json:"country,omitempty"`
	Location       *string   `json:"location,omitempty"`
	Qualification  *string   `json:"qualification,omitempty"`
	Course         *string   `json:"course,omitempty"`
	Expertise      *[]string `json:"expertise,omitempty"`
	ProfilePicture *string   `json:"profilePicture,omitempty"`
	Bio            *string   `json:"bio,omitempty"`
}

// UpdateProfile applies a profile patch and returns the updated user.
func (s *Store) UpdateProfile(ctx context.Context, id primitive.ObjectID, upd ProfileUpdate) (*models.User, error) {
	set := bson.M{"updated_at": time.Now().UTC()}

	if upd.FullName != nil {
		name := normalize.Name(*upd.FullName)
		set["full_name"] = name
		set["full_name_ci"] = text.Fold(name)
	}
	if upd.Email != nil {
		set["email"] = normalize.Email(*upd.Email)
	}
	if upd.StudentEmail != nil {
		set["student_email"] = normalize.Email(*upd.StudentEmail)
	}
	if upd.InstituteName != nil {
		set["institute_name"] = normalize.Name(*upd.InstituteName)
	}
	if upd.Country != nil {
		set["country"] = normalize.Name(*upd.Country)
	}
	if upd.Location != nil {
		set["location"] = normalize.Name(*upd.Location)
	}
	if upd.Qualification != nil {
		set["qualification"] = normalize.Name(*upd.Qualification)
	}
	if upd.Course != nil {
		set["course"] = normalize.Name(*upd.Course)
	}
	if upd.Expertise != nil {
		set["expertise"] = *upd.Expertise
	}
	if upd.ProfilePicture != nil {
		set["profile_picture"] = *upd.ProfilePicture
	}
	if upd.Bio != nil {
		set["bio"] = htmlsanitize.Sanitize(*upd.Bio)
	}

	var u models.User
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return &u, nil
}

// RefsByIDs loads the display subset for a batch of user IDs, keyed by ID.
func (s *Store) RefsByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserRef, error) {
	result := make(map[primitive.ObjectID]models.UserRef, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var ref models.UserRef
		if err := cur.Decode(&ref); err != nil {
			return nil, err
		}
		result[ref.ID] = ref
	}
	return result, cur.Err()
}
