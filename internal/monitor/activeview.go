package monitor

import "github.com/MaxCaruta/purelove-sub002/internal/models"

// Tracker holds the single active-view slot: the one conversation the
// operator has open, or none. Setting a new view implicitly clears the
// previous one. It is mutated only on the engine goroutine, so a change
// ordered before an event is always visible to that event's reconciliation.
type Tracker struct {
	view models.ActiveView
}

func (t *Tracker) SetActive(userID, counterpartID uint) {
	t.view = models.ActiveView{UserID: userID, CounterpartID: counterpartID, Set: true}
}

func (t *Tracker) Clear() {
	t.view = models.ActiveView{}
}

func (t *Tracker) IsActive(userID, counterpartID uint) bool {
	return t.view.Matches(userID, counterpartID)
}

// Snapshot returns the current view by value, for handing to the reconciler.
func (t *Tracker) Snapshot() models.ActiveView {
	return t.view
}
