package jobs

import "errors"

// errNotReady is returned by Manager.Result when the job hasn't produced a
// result yet (still queued, running, or never will because it timed out).
var errNotReady = errors.New("jobs: result not ready")
