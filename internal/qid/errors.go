package qid

import (
	"errors"
	"fmt"
)

// Sentinel errors of the generic size-bounded cache.
var (
	ErrEntryTooLarge = errors.New("entry exceeds largest cacheable size")
	ErrNotFound      = errors.New("entry not found")
)

// SizeError reports a rejected Put: the entry was larger than the configured
// single-entry ceiling. Nothing is stored when this is returned.
type SizeError struct {
	Size int64
	Max  int64
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("qid too large to store: %d bytes (max %d)", e.Size, e.Max)
}

func (e *SizeError) Unwrap() error { return ErrEntryTooLarge }

// MissingError reports a Get for a key present in neither cache tier.
type MissingError struct {
	Key string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("unknown qid: %q", e.Key)
}

func (e *MissingError) Unwrap() error { return ErrNotFound }
