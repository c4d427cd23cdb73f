package id

import "github.com/google/uuid"

// Generator produces unique identifiers for orders, payments and carts.
type Generator interface {
	NewID() string
}

type uuidGenerator struct{}

func NewUUIDGenerator() Generator { return uuidGenerator{} }

func (uuidGenerator) NewID() string { return uuid.NewString() }
