package cart

import "context"

// Owner identifies who a cart belongs to: a registered user or an anonymous
// session, mutually exclusive.
type Owner struct {
	UserID    string
	SessionID string
}

func (o Owner) Key() string {
	if o.UserID != "" {
		return "user:" + o.UserID
	}
	return "session:" + o.SessionID
}

func (o Owner) Valid() bool {
	return (o.UserID == "") != (o.SessionID == "")
}

type Repository interface {
	// FindByOwner returns the owner's cart, or ErrNotFound when none exists
	// or a guest cart has expired.
	FindByOwner(ctx context.Context, owner Owner) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
	Delete(ctx context.Context, owner Owner) error
}
