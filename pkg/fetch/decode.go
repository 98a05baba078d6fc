package fetch

import (
	"bytes"
	"encoding/csv"
	"io"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// DecodeJSON decodes body as a single JSON object. Integral numbers become
// int64, other numbers float64.
func DecodeJSON(body []byte) (map[string]any, error) {
	d := jx.DecodeBytes(body)
	if tt := d.Next(); tt != jx.Object {
		return nil, errors.Errorf("expected object, got %s", tt)
	}

	v, err := decodeValue(d)
	if err != nil {
		return nil, errors.Wrap(err, "decode object")
	}
	if tt := d.Next(); tt != jx.Invalid {
		return nil, errors.Errorf("unexpected trailing %s", tt)
	}

	return v.(map[string]any), nil //nolint: forcetypeassert
}

func decodeValue(d *jx.Decoder) (any, error) {
	switch tt := d.Next(); tt {
	case jx.String:
		return d.Str()
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return nil, err
		}
		if n.IsInt() {
			return n.Int64()
		}

		return n.Float64()
	case jx.Bool:
		return d.Bool()
	case jx.Null:
		return nil, d.Null()
	case jx.Array:
		out := []any{}
		err := d.Arr(func(d *jx.Decoder) error {
			v, err := decodeValue(d)
			if err != nil {
				return err
			}
			out = append(out, v)

			return nil
		})

		return out, err
	case jx.Object:
		out := map[string]any{}
		err := d.Obj(func(d *jx.Decoder, key string) error {
			v, err := decodeValue(d)
			if err != nil {
				return errors.Wrapf(err, "field %q", key)
			}
			out[key] = v

			return nil
		})

		return out, err
	default:
		return nil, errors.Errorf("unexpected %s", tt)
	}
}

// DecodeCSV splits body into rows of delimiter separated fields. Rows may have
// differing field counts.
func DecodeCSV(body []byte, delimiter rune) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(body))
	r.Comma = delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read row")
		}
		rows = append(rows, row)
	}
	if rows == nil {
		rows = [][]string{}
	}

	return rows, nil
}
