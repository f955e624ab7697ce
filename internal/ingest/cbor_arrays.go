package ingest

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// RFC 8746 tags.
const (
	tagMultiDimArray = 40
	tagUint8         = 64
	tagUint16BE      = 65
	tagUint16LE      = 69
)

type pixelData struct {
	bytes []byte
	order string
	rows  int
	cols  int
}

// decodePixelData accepts a bare byte string, a typed array, or a
// multi-dimensional array wrapping a typed array. A uint16 typed array
// fixes the byte order; multi-dimensional [rows, cols] are in pixels
// whatever the element type.
func decodePixelData(value any) (pixelData, error) {
	switch v := value.(type) {
	case []byte:
		return pixelData{bytes: v}, nil
	case cbor.Tag:
		if v.Number == tagMultiDimArray {
			return decodeMultiDimArray(v)
		}
		return decodeTypedArray(v)
	default:
		return pixelData{}, fmt.Errorf("unsupported pixel data %T", value)
	}
}

func decodeMultiDimArray(tag cbor.Tag) (pixelData, error) {
	items, ok := tag.Content.([]any)
	if !ok || len(items) != 2 {
		return pixelData{}, errors.New("invalid multidim array content")
	}

	dimsRaw, ok := items[0].([]any)
	if !ok || len(dimsRaw) != 2 {
		return pixelData{}, errors.New("invalid multidim dimensions")
	}

	rows, err := toInt(dimsRaw[0])
	if err != nil {
		return pixelData{}, err
	}
	cols, err := toInt(dimsRaw[1])
	if err != nil {
		return pixelData{}, err
	}
	if rows <= 0 || cols <= 0 {
		return pixelData{}, errors.New("invalid multidim dimensions")
	}

	inner, ok := items[1].(cbor.Tag)
	if !ok {
		return pixelData{}, errors.New("expected typed array tag")
	}
	data, err := decodeTypedArray(inner)
	if err != nil {
		return pixelData{}, err
	}
	data.rows = rows
	data.cols = cols
	return data, nil
}

func decodeTypedArray(tag cbor.Tag) (pixelData, error) {
	data, ok := tag.Content.([]byte)
	if !ok {
		return pixelData{}, fmt.Errorf("unsupported typed array content %T", tag.Content)
	}
	switch tag.Number {
	case tagUint8:
		return pixelData{bytes: data}, nil
	case tagUint16BE:
		return pixelData{bytes: data, order: "be"}, nil
	case tagUint16LE:
		return pixelData{bytes: data, order: "le"}, nil
	default:
		return pixelData{}, fmt.Errorf("unsupported typed array tag %d", tag.Number)
	}
}
