package lockstore

import "fmt"

// CorruptStoreError reports a store file whose content cannot be decoded.
// Callers fall back to an empty set of records.
type CorruptStoreError struct {
	Path string
	Err  error
}

func (e *CorruptStoreError) Error() string {
	return fmt.Sprintf("lock store %s is corrupt: %v", e.Path, e.Err)
}

func (e *CorruptStoreError) Unwrap() error { return e.Err }

// ExternalEditError is returned by Save when the file was edited by hand
// since the store last read or wrote it. Nothing is written. Records holds
// the edited content, or is nil when the edit does not decode.
type ExternalEditError struct {
	Path    string
	Records Records
	Err     error
}

func (e *ExternalEditError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("lock store %s was edited and is unreadable, not overwriting: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("lock store %s was edited since the last save", e.Path)
}

func (e *ExternalEditError) Unwrap() error { return e.Err }
