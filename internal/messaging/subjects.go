// Package messaging defines subject names used on the NATS bus.
package messaging

// Subjects follow {service}.{area}.{detail}.
const (
	// SubjectDLQPrefix is the root for dead-lettered records; the failure
	// reason is appended, e.g. sentry.dlq.store.
	SubjectDLQPrefix = "sentry.dlq"

	// SubjectDLQAll matches every dead-letter subject.
	SubjectDLQAll = SubjectDLQPrefix + ".>"
)

// DLQSubject returns the subject for records dropped for reason.
func DLQSubject(reason string) string {
	return SubjectDLQPrefix + "." + reason
}
