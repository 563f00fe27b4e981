package order

import (
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/options-product/internal/domain/validation"
)

// Status is the lifecycle stage of an order. Statuses only move forward.
type Status int

const (
	StatusDraft           Status = 10
	StatusCheckoutStarted Status = 20
	StatusConfirmed       Status = 30
	StatusPaid            Status = 40
	StatusCompleted       Status = 50
)

var statusNames = map[Status]string{
	StatusDraft:           "draft",
	StatusCheckoutStarted: "checkout_started",
	StatusConfirmed:       "confirmed",
	StatusPaid:            "paid",
	StatusCompleted:       "completed",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseStatus returns the status with the given name.
func ParseStatus(name string) (Status, bool) {
	for s, n := range statusNames {
		if n == name {
			return s, true
		}
	}
	return 0, false
}

// StatusChange records one status transition.
type StatusChange struct {
	Status Status
	Notes  string
	At     time.Time
}

// UpdateStatus moves the order to status and records the change. Moving
// backwards fails with status_regression; leaving Draft without items fails
// with order_empty.
func (o *Order) UpdateStatus(status Status, notes string, at time.Time) error {
	if _, ok := statusNames[status]; !ok {
		return errors.Errorf("unknown status %d", int(status))
	}

	var c validation.Collector
	if status < o.Status {
		c.Add(validation.KindStatusRegression, "cannot go back from "+o.Status.String()+" to "+status.String())
	}
	if status != StatusDraft && o.IsEmpty() {
		c.Add(validation.KindOrderEmpty, "cannot move an empty order to "+status.String())
	}
	if err := c.Err(); err != nil {
		return err
	}

	o.Status = status
	o.UpdatedAt = at
	o.history = append(o.history, StatusChange{Status: status, Notes: notes, At: at})
	return nil
}

// History returns the recorded status changes, oldest first.
func (o *Order) History() []StatusChange {
	return o.history
}
