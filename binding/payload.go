package binding

import (
	"encoding/json"

	apperrors "github.com/kbukum/flowkit/errors"
	"github.com/kbukum/flowkit/util"
)

// EncodePayload serializes a name→value map for transport as one
// positional text argument: the JSON object is re-encoded as a JSON
// string literal so quoting survives argument passing. An empty map
// encodes to the "None" sentinel to keep argument arity stable.
func EncodePayload(args map[string]string) (string, error) {
	if len(args) == 0 {
		return util.NoValue, nil
	}
	inner, err := json.Marshal(args)
	if err != nil {
		return "", apperrors.Internal(err)
	}
	outer, err := json.Marshal(string(inner))
	if err != nil {
		return "", apperrors.Internal(err)
	}
	return string(outer), nil
}

// DecodePayload reverses EncodePayload. The "None" sentinel and the
// empty string decode to nil.
func DecodePayload(payload string) (map[string]string, error) {
	if payload == "" || payload == util.NoValue {
		return nil, nil
	}
	var inner string
	if err := json.Unmarshal([]byte(payload), &inner); err != nil {
		return nil, apperrors.InvalidFormat("payload", "JSON string literal").WithCause(err)
	}
	var args map[string]string
	if err := json.Unmarshal([]byte(inner), &args); err != nil {
		return nil, apperrors.InvalidFormat("payload", "JSON object of string values").WithCause(err)
	}
	return args, nil
}
