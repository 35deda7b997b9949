package store

import "context"

// Backend loads and saves the whole document. Load never fails on missing or
// unreadable data; it returns DefaultDocument instead.
type Backend interface {
	Load(ctx context.Context) (*Document, error)
	Save(ctx context.Context, doc *Document) error
}
