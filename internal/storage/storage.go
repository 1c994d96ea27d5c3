// Package storage keeps uploaded case files in a blob store.
package storage

import (
	"context"
	"errors"
	"io"
)

var ErrNotFound = errors.New("object not found")

// Object identifies a stored blob. URL is empty for stores that only serve
// through the API.
type Object struct {
	Key string
	URL string
}

type Store interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) (Object, error)
	Open(ctx context.Context, obj Object) (io.ReadCloser, error)
	Delete(ctx context.Context, obj Object) error
}
