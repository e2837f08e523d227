package element

import "errors"

// notifyDefinition resumes every request waiting for name's definition.
func (tx *Tx) notifyDefinition(name string) error {
	return tx.resume(tx.e.ledger.ResolveDefinition(name))
}

// notifySupertype resumes every request waiting for name's registration.
// The entry is removed, so a second notification finds nothing to do.
func (tx *Tx) notifySupertype(name string) error {
	return tx.resume(tx.e.ledger.ResolveSupertype(name))
}

func (tx *Tx) resume(waiters []*request) error {
	var errs []error
	for _, r := range waiters {
		tx.emit(eventFor(EventResumed, r))
		if err := tx.advance(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
