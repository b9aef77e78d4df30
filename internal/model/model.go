// Package model defines domain entities used by services and repositories.
package model

import "time"

// Embedding is a face feature vector produced by the external recognizer.
type Embedding []float64

// Profile holds user attributes collected at enrollment. None of these are
// authentication material.
type Profile struct {
	FirstName   string
	LastName    string // optional
	DateOfBirth string
	Phone       string
}

// User is an enrolled principal. FaceTemplate and WrappedKEK are written once
// at enrollment and never updated; there is no re-template path short of
// re-enrollment.
type User struct {
	ID string // opaque identifier derived at enrollment, unique
	Profile
	FaceTemplate []byte // serialized enrollment embedding
	WrappedKEK   []byte // KEK encrypted under the custodian-held wrapping key
	CreatedAt    time.Time
}

// PIIRecord is one encrypted value for a (user, data type) pair. Records are
// append-only: a re-write inserts a new row and the newest row shadows older
// ones on read.
type PIIRecord struct {
	ID            int64
	UserID        string
	DataType      string
	EncryptedData []byte // ciphertext under a per-write DEK
	EncryptedDEK  []byte // that DEK wrapped under the session KEK
	CreatedAt     time.Time
}
