package storage

import (
	"context"
	"io"
	"time"
)

// unconfigured is returned by New when required configuration is absent.
type unconfigured struct {
	err error
}

// NewUnconfigured returns a Gateway that fails every call with err.
func NewUnconfigured(err error) Gateway {
	return &unconfigured{err: err}
}

func (u *unconfigured) List(context.Context, string, int) (*Listing, error) {
	return nil, u.err
}

func (u *unconfigured) Put(context.Context, string, io.Reader, int64, PutOptions) error {
	return u.err
}

func (u *unconfigured) PresignPut(context.Context, string, PutOptions, time.Duration) (string, error) {
	return "", u.err
}

func (u *unconfigured) Bucket() string { return "" }
