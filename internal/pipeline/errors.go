package pipeline

import "fmt"

// InputError marks failures the client caused: a malformed or unsupported
// upload, including anything the normalization tool refuses to decode.
// Everything else the pipeline returns is a server fault.
type InputError struct {
	Err error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input: %v", e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }
