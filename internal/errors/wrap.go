package errors

import "fmt"

// Wrap annotates err with msg while keeping the chain intact for errors.Is.
// A nil err yields nil, so it is safe to use inline:
//
//	return errors.Wrap(store.Save(ctx, task), "persist task snapshot")
//
// Wrap at package boundaries only; wrapping at every frame produces
// unreadable messages.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf is Wrap with a formatted message:
//
//	return errors.Wrapf(err, "load blueprint %q", name)
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
