package storage

import "context"

// Delivery describes a finished job's artifacts.
type Delivery struct {
	UserID    int64
	Paths     []string
	Caption   string
	SizeBytes int64
}

// Receipt reports where the artifacts ended up. URLs is populated only for
// destinations that produce links.
type Receipt struct {
	Destination string
	URLs        []string
}

// Deliverer hands finished outputs to their destination.
type Deliverer interface {
	Deliver(ctx context.Context, d Delivery) (Receipt, error)
}

// Func adapts a function to the Deliverer interface.
type Func func(ctx context.Context, d Delivery) (Receipt, error)

// Deliver implements Deliverer.
func (f Func) Deliver(ctx context.Context, d Delivery) (Receipt, error) {
	return f(ctx, d)
}
