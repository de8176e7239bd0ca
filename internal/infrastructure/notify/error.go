package notify

import "errors"

// TemporaryError marks a delivery failure worth retrying on a later sweep.
type TemporaryError struct{ Err error }

func (e TemporaryError) Error() string   { return "temporary: " + e.Err.Error() }
func (e TemporaryError) Unwrap() error   { return e.Err }
func (e TemporaryError) Temporary() bool { return true }
func (e TemporaryError) Permanent() bool { return false }

// PermanentError marks a batch that can never be delivered as built.
type PermanentError struct{ Err error }

func (e PermanentError) Error() string   { return "permanent: " + e.Err.Error() }
func (e PermanentError) Unwrap() error   { return e.Err }
func (e PermanentError) Permanent() bool { return true }

type permanentMarker interface{ Permanent() bool }

func IsPermanent(err error) bool {
	var pm permanentMarker
	return errors.As(err, &pm) && pm.Permanent()
}
