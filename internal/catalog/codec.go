package catalog

import (
	"encoding/json"

	"github.com/vitor-labes/catalog-browser/internal/domain"
)

const (
	opDecode = "decode"
	opEncode = "encode"
)

// Decode parses data into a T. Any failure is a *DecodeError and the zero
// value is returned, never a partially filled one.
func Decode[T any](data []byte) (T, error) {
	return decodeAs[T](opDecode, data)
}

// Encode serializes value. Any failure is an *EncodeError.
func Encode[T any](value T) ([]byte, error) {
	return encodeAs(opEncode, value)
}

// DecodeOrderTypes parses a JSON array of order types.
func DecodeOrderTypes(raw string) ([]domain.OrderType, error) {
	return decodeAs[[]domain.OrderType]("decode order types", []byte(raw))
}

func decodeAs[T any](op string, data []byte) (T, error) {
	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		var zero T
		return zero, &DecodeError{Op: op, Err: err}
	}
	return value, nil
}

func encodeAs[T any](op string, value T) ([]byte, error) {
	body, err := json.Marshal(value)
	if err != nil {
		return nil, &EncodeError{Op: op, Err: err}
	}
	return body, nil
}
