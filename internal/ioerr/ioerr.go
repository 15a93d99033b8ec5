// Copyright 2022 UEFI Tools contributors
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package ioerr

import (
	"errors"
	"io"

	"golang.org/x/xerrors"
)

// EOFIsUnexpected converts [io.EOF] into [io.ErrUnexpectedEOF]. It is
// useful when decoding parts of a structure that aren't at the start,
// where running out of bytes means the structure is truncated rather
// than absent.
func EOFIsUnexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

// EOFIsUnexpectedf wraps the error arguments with the supplied format
// using [xerrors.Errorf], converting any [io.EOF] argument to
// [io.ErrUnexpectedEOF] first.
func EOFIsUnexpectedf(format string, args ...interface{}) error {
	for i, arg := range args {
		if err, ok := arg.(error); ok && err == io.EOF {
			args[i] = io.ErrUnexpectedEOF
		}
	}
	return xerrors.Errorf(format, args...)
}

// PassRawEOF converts a wrapped or unwrapped [io.EOF] into a plain
// [io.EOF], for decoders where encountering the end of the stream at a
// record boundary is the normal termination condition.
func PassRawEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.EOF
	}
	return err
}
