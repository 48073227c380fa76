// Package metrics defines what the application measures. Backends live in
// subpackages; NoOpRecorder is the default when metrics are disabled.
package metrics

import "time"

// Recorder receives application measurements.
type Recorder interface {
	// RecordDuplicateCheck is called once per scorer run. source is where the
	// check came from ("check" for the live form check, "create" for the gate).
	RecordDuplicateCheck(source string, matches int, likely bool, duration time.Duration)
	RecordTransactionCreated(txType string)
	RecordTransactionRejected(reason string)
	RecordTransactionDeleted()

	RecordHTTPRequest(method, route string, status int, duration time.Duration)
	RecordCacheLookup(cache string, hit bool)
	RecordSync(action string, success bool, duration time.Duration)
}

// NoOpRecorder discards everything.
type NoOpRecorder struct{}

func (NoOpRecorder) RecordDuplicateCheck(string, int, bool, time.Duration) {}
func (NoOpRecorder) RecordTransactionCreated(string)                       {}
func (NoOpRecorder) RecordTransactionRejected(string)                      {}
func (NoOpRecorder) RecordTransactionDeleted()                             {}
func (NoOpRecorder) RecordHTTPRequest(string, string, int, time.Duration)  {}
func (NoOpRecorder) RecordCacheLookup(string, bool)                        {}
func (NoOpRecorder) RecordSync(string, bool, time.Duration)                {}

// OrNoOp returns r, or a NoOpRecorder when r is nil.
func OrNoOp(r Recorder) Recorder {
	if r == nil {
		return NoOpRecorder{}
	}
	return r
}
