//go:build !unix

package lock

import (
	"errors"
	"os"
)

var errUnsupported = errors.New("advisory file locks are not supported on this platform")

func tryLock(*os.File) error {
	return errUnsupported
}

func unlock(*os.File) error {
	return nil
}
