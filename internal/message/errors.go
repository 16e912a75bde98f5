package message

import "errors"

var (
	ErrJSONUnmarshalFailed = errors.New("failed to unmarshal JSON message")
	ErrCSVHeader           = errors.New("invalid CSV header")
	ErrCSVRecord           = errors.New("invalid CSV record")
)
