// Package editor orchestrates edits to the occurrence list: every mutation
// is applied optimistically to an explicit in-memory state, persisted through
// an injected Persister, and rolled back to its issue-time snapshot when
// persistence rejects. Readers always see the latest optimistic state.
package editor

import (
	"context"
	"sync"

	"occal/internal/log"
	"occal/internal/model"
	"occal/internal/plan"
	"occal/internal/preview"
)

// Persister is the single outward interface of the controller. A nil error
// confirms the mutation; any error triggers rollback. The controller does not
// interpret the error further.
type Persister interface {
	Persist(ctx context.Context, occurrences []model.Occurrence, summary string, p plan.Serialized) error
}

// PersistFunc adapts a function to the Persister interface.
type PersistFunc func(ctx context.Context, occurrences []model.Occurrence, summary string, p plan.Serialized) error

func (f PersistFunc) Persist(ctx context.Context, occs []model.Occurrence, summary string, p plan.Serialized) error {
	return f(ctx, occs, summary, p)
}

// Confirmer guards destructive operations (delete, delete-all). It is an
// external collaborator; nil means "always confirmed".
type Confirmer func(action string) bool

// Form is the editable single-occurrence state. An empty ID means "create".
type Form struct {
	ID        string       `json:"id"`
	Date      string       `json:"date"`
	StartTime string       `json:"startTime"`
	EndTime   string       `json:"endTime"`
	Status    model.Status `json:"status"`
	Reason    string       `json:"reason"`
}

// State is the controller's full observable state. It is treated as an
// immutable snapshot: mutations build a new occurrence slice rather than
// editing the old one, so a captured State stays valid for rollback.
type State struct {
	Occurrences    []model.Occurrence `json:"occurrences"`
	SelectedID     string             `json:"selectedId"`
	Editor         Form               `json:"editor"`
	PreviewVisible bool               `json:"previewVisible"`
	PreviewText    string             `json:"previewText"`
	Plan           plan.Plan          `json:"-"`
}

func (s State) clone() State {
	out := s
	out.Occurrences = make([]model.Occurrence, len(s.Occurrences))
	copy(out.Occurrences, s.Occurrences)
	return out
}

// Pending tracks one in-flight persist call. Err yields exactly one value:
// the persist outcome. Discarding a Pending simply abandons interest; the
// call itself is not cancelled.
type Pending struct {
	err chan error
}

func newPending() *Pending {
	return &Pending{err: make(chan error, 1)}
}

func settled(err error) *Pending {
	p := newPending()
	p.err <- err
	return p
}

// Err returns the settlement channel.
func (p *Pending) Err() <-chan error {
	return p.err
}

// Wait blocks until the persist settles or ctx is done.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case err := <-p.err:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Controller is the occurrence-edit state machine.
//
// Concurrency: mutations are applied synchronously under the mutex before
// the asynchronous persist is issued, so overlapping mutations each operate
// on the already-optimistically-updated list and carry their own rollback
// snapshot. Persist calls are not serialized; payloads may race at the
// storage layer (last writer wins).
type Controller struct {
	mu       sync.Mutex
	state    State
	persist  Persister
	ids      model.IDGenerator
	composer preview.Composer
	confirm  Confirmer
	subs     []func(State)
}

// Option configures a Controller.
type Option func(*Controller)

// WithInitialState seeds the controller (typically from storage).
func WithInitialState(s State) Option {
	return func(c *Controller) { c.state = s.clone() }
}

// WithIDGenerator overrides the occurrence ID suffix source.
func WithIDGenerator(ids model.IDGenerator) Option {
	return func(c *Controller) { c.ids = ids }
}

// WithComposer overrides the preview composer (locale choice).
func WithComposer(cmp preview.Composer) Option {
	return func(c *Controller) { c.composer = cmp }
}

// WithConfirmer installs the destructive-operation guard.
func WithConfirmer(confirm Confirmer) Option {
	return func(c *Controller) { c.confirm = confirm }
}

// New builds a Controller around a Persister.
func New(persist Persister, opts ...Option) *Controller {
	c := &Controller{
		persist:  persist,
		ids:      model.NewIDGenerator(),
		composer: preview.New(nil),
	}
	c.state.Plan = plan.Plan{Rule: plan.Custom{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Subscribe registers a listener invoked after every state change (both
// optimistic applies and rollbacks). Listeners run synchronously under the
// controller's lock and must not call back in.
func (c *Controller) Subscribe(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = append(c.subs, fn)
}

func (c *Controller) notifyLocked() {
	snapshot := c.state.clone()
	for _, fn := range c.subs {
		fn(snapshot)
	}
}

// SetPlan replaces the generator plan and re-syncs the preview text when the
// preview is visible. Pure local state; nothing is persisted until the next
// mutation.
func (c *Controller) SetPlan(p plan.Plan) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Plan = p
	if c.state.PreviewVisible {
		c.state.PreviewText = c.composer.Compose(&p, c.state.Occurrences, nil)
	}
	c.notifyLocked()
}

// ShowPreview recomputes and reveals the schedule preview.
func (c *Controller) ShowPreview() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.state.Plan
	c.state.PreviewVisible = true
	c.state.PreviewText = c.composer.Compose(&p, c.state.Occurrences, nil)
	c.notifyLocked()
	return c.state.PreviewText
}

// CreateOrUpdate applies the editor form: with an ID it replaces that
// occurrence's mutable fields, otherwise it appends a new occurrence. A form
// without a date is a no-op.
func (c *Controller) CreateOrUpdate(ctx context.Context, form Form) *Pending {
	if form.Date == "" {
		return settled(nil)
	}

	c.mu.Lock()
	snap := c.state.clone()

	next := c.state.clone()
	status := form.Status
	if status == "" {
		status = model.StatusPlanned
	}

	if form.ID != "" {
		replaced := false
		for i, occ := range next.Occurrences {
			if occ.ID == form.ID {
				next.Occurrences[i] = model.Occurrence{
					ID:        occ.ID,
					Date:      form.Date,
					StartTime: form.StartTime,
					EndTime:   form.EndTime,
					Status:    status,
					Reason:    form.Reason,
				}
				replaced = true
				break
			}
		}
		if !replaced {
			c.mu.Unlock()
			return settled(nil)
		}
		next.SelectedID = form.ID
	} else {
		occ := model.Occurrence{
			ID:        model.OccurrenceID(form.Date, form.StartTime, c.ids()),
			Date:      form.Date,
			StartTime: form.StartTime,
			EndTime:   form.EndTime,
			Status:    status,
			Reason:    form.Reason,
		}
		next.Occurrences = append(next.Occurrences, occ)
		next.SelectedID = occ.ID
	}
	next.Editor = Form{}

	return c.commitLocked(ctx, snap, next)
}

// Delete removes one occurrence after confirmation and moves the selection
// to the adjacent occurrence.
func (c *Controller) Delete(ctx context.Context, id string) *Pending {
	if !c.confirmed("delete") {
		return settled(nil)
	}

	c.mu.Lock()
	snap := c.state.clone()

	idx := -1
	for i, occ := range c.state.Occurrences {
		if occ.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return settled(nil)
	}

	next := c.state.clone()
	next.Occurrences = append(next.Occurrences[:idx], next.Occurrences[idx+1:]...)
	next.SelectedID = adjacentID(next.Occurrences, idx)
	if next.Editor.ID == id {
		next.Editor = Form{}
	}

	return c.commitLocked(ctx, snap, next)
}

// DeleteAll clears the list and resets the schedule preview after
// confirmation.
func (c *Controller) DeleteAll(ctx context.Context) *Pending {
	if !c.confirmed("delete-all") {
		return settled(nil)
	}

	c.mu.Lock()
	snap := c.state.clone()

	next := c.state.clone()
	next.Occurrences = next.Occurrences[:0]
	next.SelectedID = ""
	next.Editor = Form{}
	next.PreviewVisible = false
	next.PreviewText = ""

	return c.commitLocked(ctx, snap, next)
}

// BulkAdd appends generated additions. An empty list is a no-op.
func (c *Controller) BulkAdd(ctx context.Context, additions []model.Occurrence) *Pending {
	if len(additions) == 0 {
		return settled(nil)
	}

	c.mu.Lock()
	snap := c.state.clone()

	next := c.state.clone()
	next.Occurrences = append(next.Occurrences, additions...)
	next.SelectedID = additions[0].ID

	return c.commitLocked(ctx, snap, next)
}

func (c *Controller) confirmed(action string) bool {
	if c.confirm == nil {
		return true
	}
	return c.confirm(action)
}

// commitLocked installs next as the optimistic state, releases the lock, and
// issues the persist call. On rejection the issue-time snapshot is restored
// wholesale; a later mutation's rollback therefore cannot be clobbered by an
// earlier one still in flight.
func (c *Controller) commitLocked(ctx context.Context, snap, next State) *Pending {
	p := next.Plan
	summary := c.composer.Compose(&p, next.Occurrences, nil)
	if next.PreviewVisible {
		next.PreviewText = summary
	}
	c.state = next
	c.notifyLocked()

	payload := next.clone()
	serialized := plan.Serialize(next.Plan)
	c.mu.Unlock()

	pending := newPending()
	go func() {
		err := c.persist.Persist(ctx, payload.Occurrences, summary, serialized)
		if err != nil {
			log.Error("persist rejected, rolling back", err, "occurrences", len(snap.Occurrences))
			c.mu.Lock()
			c.state = snap
			c.notifyLocked()
			c.mu.Unlock()
		}
		pending.err <- err
	}()
	return pending
}

// adjacentID picks the occurrence now occupying the deleted slot, falling
// back to the previous one, then to no selection.
func adjacentID(occs []model.Occurrence, idx int) string {
	if len(occs) == 0 {
		return ""
	}
	if idx < len(occs) {
		return occs[idx].ID
	}
	return occs[len(occs)-1].ID
}
