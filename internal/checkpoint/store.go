package checkpoint

import "context"

// Store persists a whole Document. Load returns an empty document when nothing
// has been saved yet; Save replaces the persisted state in one step, so a
// reader never observes a partially written document.
type Store interface {
	Load(ctx context.Context) (*Document, error)
	Save(ctx context.Context, doc *Document) error
}
