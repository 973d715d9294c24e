package poller

import (
	"errors"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
)

// Field is one displayable key/value pair decoded from a payload.
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// errNotObject is returned when the payload root is not a JSON object.
var errNotObject = errors.New("payload must be a JSON object")

// DecodeFields decodes a flat JSON object into fields, preserving the order
// keys appear in the document.
//
// Every value must be a scalar. Numbers keep their literal text, booleans
// render as true/false and null renders as "null". Unknown keys are kept;
// nested objects, arrays, non-object roots, malformed numbers and trailing
// data are rejected. A repeated key keeps its first position and its last
// value.
func DecodeFields(body []byte) ([]Field, error) {
	iter := jsoniter.ConfigDefault.BorrowIterator(body)
	defer jsoniter.ConfigDefault.ReturnIterator(iter)

	if iter.WhatIsNext() != jsoniter.ObjectValue {
		if iter.Error != nil {
			return nil, fmt.Errorf("invalid JSON: %w", iter.Error)
		}
		return nil, errNotObject
	}
	if err := validate(body); err != nil {
		return nil, err
	}

	fields := []Field{}
	seen := make(map[string]int)
	var shapeErr error
	iter.ReadMapCB(func(it *jsoniter.Iterator, key string) bool {
		value, err := readScalar(it, key)
		if err != nil {
			shapeErr = err
			return false
		}
		if i, ok := seen[key]; ok {
			fields[i].Value = value
			return true
		}
		seen[key] = len(fields)
		fields = append(fields, Field{Key: key, Value: value})
		return true
	})
	if shapeErr != nil {
		return nil, shapeErr
	}
	if iter.Error != nil {
		return nil, fmt.Errorf("invalid JSON: %w", iter.Error)
	}

	// anything other than whitespace after the object is malformed; the
	// iterator reports io.EOF once the input is exhausted
	iter.WhatIsNext()
	if iter.Error != io.EOF {
		return nil, errors.New("invalid JSON: unexpected data after object")
	}

	return fields, nil
}

// validate checks the grammar of the first JSON value in body. ReadNumber
// only collects number characters, so malformed literals such as 1.2.3 must
// be caught here.
func validate(body []byte) error {
	iter := jsoniter.ConfigDefault.BorrowIterator(body)
	defer jsoniter.ConfigDefault.ReturnIterator(iter)

	iter.Skip()
	if iter.Error != nil {
		return fmt.Errorf("invalid JSON: %w", iter.Error)
	}
	return nil
}

// readScalar reads the next value as display text.
func readScalar(it *jsoniter.Iterator, key string) (string, error) {
	switch it.WhatIsNext() {
	case jsoniter.StringValue:
		return it.ReadString(), nil
	case jsoniter.NumberValue:
		return string(it.ReadNumber()), nil
	case jsoniter.BoolValue:
		if it.ReadBool() {
			return "true", nil
		}
		return "false", nil
	case jsoniter.NilValue:
		it.ReadNil()
		return "null", nil
	case jsoniter.ObjectValue, jsoniter.ArrayValue:
		it.Skip()
		return "", fmt.Errorf("field %q: nested values are not supported", key)
	default:
		if it.Error != nil {
			return "", fmt.Errorf("invalid JSON: %w", it.Error)
		}
		return "", fmt.Errorf("field %q: unexpected value", key)
	}
}

// withoutKey returns fields minus every entry whose key matches.
func withoutKey(fields []Field, key string) []Field {
	out := make([]Field, 0, len(fields))
	for _, f := range fields {
		if f.Key == key {
			continue
		}
		out = append(out, f)
	}
	return out
}
