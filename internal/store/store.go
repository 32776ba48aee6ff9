package store

import (
	"database/sql"
	"errors"

	"github.com/rkany/pigeon/internal/crypto"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrEmailTaken is returned when a signup collides with an existing email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrEmptyMessage is returned when a message carries neither text nor image.
	ErrEmptyMessage = errors.New("message cannot be empty")
)

// Store is the persistence gateway. Message text never reaches the database
// in plaintext: every write goes through the cipher and every read path
// decrypts before returning.
type Store struct {
	db     *sql.DB
	cipher *crypto.MessageCipher
}

// New creates a store over an open database handle.
func New(db *sql.DB, cipher *crypto.MessageCipher) *Store {
	return &Store{
		db:     db,
		cipher: cipher,
	}
}
