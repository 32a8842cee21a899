package kis

import (
	"context"
	"sort"

	"github.com/sourcegraph/conc/pool"

	"kis-gateway/internal/errors"
	"kis-gateway/internal/models"
	"kis-gateway/internal/routing"
)

// maxSnapshotWorkers bounds concurrent balance inquiries.
const maxSnapshotWorkers = 4

// Snapshot is the result of a multi-class balance inquiry.
type Snapshot struct {
	Balances map[models.AssetClass]*models.Balance
	Errors   map[models.AssetClass]error
}

// Err joins every per-class failure, in asset-class order.
func (s *Snapshot) Err() error {
	classes := make([]string, 0, len(s.Errors))
	for class := range s.Errors {
		classes = append(classes, string(class))
	}
	sort.Strings(classes)
	errs := make([]error, 0, len(classes))
	for _, class := range classes {
		errs = append(errs, s.Errors[models.AssetClass(class)])
	}
	return errors.Join(errs...)
}

type classBalance struct {
	class   models.AssetClass
	balance *models.Balance
	err     error
}

// Snapshot fetches the balances of classes concurrently. With no classes
// it covers every class the client's environment supports. The token is
// obtained once up front and shared by every inquiry; a failure there
// fails the whole snapshot.
func (c *Client) Snapshot(ctx context.Context, classes ...models.AssetClass) (*Snapshot, error) {
	if len(classes) == 0 {
		classes = c.balanceClasses()
	}
	if _, err := c.sessions.EnsureValidToken(ctx); err != nil {
		return nil, err
	}

	p := pool.NewWithResults[classBalance]().WithMaxGoroutines(maxSnapshotWorkers)
	for _, class := range classes {
		p.Go(func() classBalance {
			e, err := c.Endpoint(class)
			if err != nil {
				return classBalance{class: class, err: errors.NewQueryError("balance", string(class), err)}
			}
			bal, err := e.Balance(ctx)
			return classBalance{class: class, balance: bal, err: err}
		})
	}

	snap := &Snapshot{
		Balances: make(map[models.AssetClass]*models.Balance),
		Errors:   make(map[models.AssetClass]error),
	}
	for _, r := range p.Wait() {
		if r.err != nil {
			snap.Errors[r.class] = r.err
			continue
		}
		snap.Balances[r.class] = r.balance
	}

	c.logger.Debug().
		Int("classes", len(classes)).
		Int("failed", len(snap.Errors)).
		Msg("Balance snapshot complete")
	return snap, nil
}

func (c *Client) balanceClasses() []models.AssetClass {
	var out []models.AssetClass
	for _, class := range models.AssetClasses() {
		key := routing.Key{AssetClass: class, Action: routing.Balance, Environment: c.Environment()}
		if _, err := routing.Resolve(key); err == nil {
			out = append(out, class)
		}
	}
	return out
}
