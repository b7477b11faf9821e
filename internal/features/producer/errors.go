package producer

import "fmt"

// TransportError means the producer site was unreachable or answered with a
// non-2xx status. It is fatal to the current run; the next trigger retries.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("producer %s returned status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("producer %s unreachable: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DependencyError means a referenced record could not be made to exist
// locally. It fails the dependent update only.
type DependencyError struct {
	Doctype string
	Docname string
	Reason  string
	Err     error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("dependency %s/%s unresolvable: %s", e.Doctype, e.Docname, e.Reason)
}

func (e *DependencyError) Unwrap() error { return e.Err }
