// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultProfilePicture is used when a user has not uploaded one.
const DefaultProfilePicture = "https://s3.amazonaws.com/37assets/svn/765-default-avatar.png"

// User is a registered student.
//
// NOTE:
//   - Email is stored lowercase; uniqueness is enforced by a unique index
//     on the users collection.
//   - PasswordHash never leaves the server (json:"-").
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName   string             `bson:"full_name" json:"fullName"`
	FullNameCI string             `bson:"full_name_ci" json:"-"` // lowercase, diacritics-stripped

	Email        string `bson:"email" json:"email"`
	StudentEmail string `bson:"student_email,omitempty" json:"studentEmail,omitempty"`
	PasswordHash string `bson:"password_hash" json:"-"`

	InstituteName  string   `bson:"institute_name" json:"instituteName"`
	Country        string   `bson:"country" json:"country"`
	Location       string   `bson:"location" json:"location"`
	Qualification  string   `bson:"qualification" json:"qualification"`
	Course         string   `bson:"course" json:"course"`
	Expertise      []string `bson:"expertise,omitempty" json:"expertise,omitempty"`
	ProfilePicture string   `bson:"profile_picture,omitempty" json:"profilePicture,omitempty"`
	Bio            string   `bson:"bio,omitempty" json:"bio,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// UserRef is the subset of user fields embedded in view responses
// (participant lists, organizer identity, and the like).
type UserRef struct {
	ID             primitive.ObjectID `bson:"_id" json:"id"`
	FullName       string             `bson:"full_name" json:"fullName"`
	Email          string             `bson:"email" json:"email"`
	ProfilePicture string             `bson:"profile_picture,omitempty" json:"profilePicture,omitempty"`
}

// Ref returns the display subset of a user.
func (u *User) Ref() UserRef {
	return UserRef{
		ID:             u.ID,
		FullName:       u.FullName,
		Email:          u.Email,
		ProfilePicture: u.ProfilePicture,
	}
}
