package nvs

import "fmt"

// StorageError reports a failure of the underlying storage medium.
type StorageError struct {
	Op        string // "read", "write", "decode", "encode", "remove"
	Namespace string
	Key       string
	Err       error
}

// Error implements the error interface
func (e *StorageError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("nvs %s %s/%s: %v", e.Op, e.Namespace, e.Key, e.Err)
	}
	return fmt.Sprintf("nvs %s %s: %v", e.Op, e.Namespace, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *StorageError) Unwrap() error {
	return e.Err
}
