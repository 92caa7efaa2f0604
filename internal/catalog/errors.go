package catalog

import (
	"errors"
	"fmt"
)

var (
	ErrTransport = errors.New("falha de transporte")
	ErrDecode    = errors.New("resposta fora do formato esperado")
	ErrEncode    = errors.New("falha ao serializar payload")
	ErrEmptyBody = errors.New("resposta sem corpo")
	ErrStatus    = errors.New("status HTTP inesperado")
)

// TransportError covers connection, DNS, timeout and body read failures.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrTransport, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrDecode, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

type EncodeError struct {
	Op  string
	Err error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrEncode, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

func (e *EncodeError) Is(target error) bool { return target == ErrEncode }

// EmptyBodyError means the service answered with a success status but no body.
type EmptyBodyError struct {
	Op string
}

func (e *EmptyBodyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, ErrEmptyBody)
}

func (e *EmptyBodyError) Is(target error) bool { return target == ErrEmptyBody }

// StatusError is returned for any non-2xx answer. Body is truncated.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %v: %d %s", e.Op, ErrStatus, e.StatusCode, e.Body)
}

func (e *StatusError) Is(target error) bool { return target == ErrStatus }
