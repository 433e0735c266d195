package repo

import "fmt"

// FetchError reports a failure to obtain or unpack a repository snapshot.
type FetchError struct {
	URL string
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
