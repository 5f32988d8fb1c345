package verify

import "fmt"

// TeardownError reports a failure to release the camera when a session closed.
// It is logged and never prevents the session from closing.
type TeardownError struct {
	SessionID string
	Err       error
}

func (e *TeardownError) Error() string {
	return fmt.Sprintf("stream teardown failed (session_id: %s): %v", e.SessionID, e.Err)
}

func (e *TeardownError) Unwrap() error {
	return e.Err
}
