package ingest

import (
	"bytes"
	"testing"

	"github.com/fxamacker/cbor/v2"
)

func TestDecodePixelDataTypedArrays(t *testing.T) {
	cases := []struct {
		tag   uint64
		order string
	}{
		{tagUint8, ""},
		{tagUint16BE, "be"},
		{tagUint16LE, "le"},
	}
	for _, tc := range cases {
		got, err := decodePixelData(cbor.Tag{Number: tc.tag, Content: []byte{1, 2, 3, 4}})
		if err != nil {
			t.Fatalf("tag %d: %v", tc.tag, err)
		}
		if got.order != tc.order {
			t.Fatalf("tag %d: unexpected order %q", tc.tag, got.order)
		}
		if !bytes.Equal(got.bytes, []byte{1, 2, 3, 4}) {
			t.Fatalf("tag %d: unexpected bytes %v", tc.tag, got.bytes)
		}
	}
}

func TestDecodeMultiDimArray(t *testing.T) {
	value := cbor.Tag{
		Number: tagMultiDimArray,
		Content: []any{
			[]any{2, 2},
			cbor.Tag{
				Number:  tagUint16LE,
				Content: []byte{1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
	}

	got, err := decodePixelData(value)
	if err != nil {
		t.Fatalf("decodePixelData error: %v", err)
	}
	if got.rows != 2 || got.cols != 2 || got.order != "le" {
		t.Fatalf("unexpected result: %#v", got)
	}
}

func TestDecodePixelDataErrors(t *testing.T) {
	bad := []any{
		"text",
		cbor.Tag{Number: 70, Content: []byte{1}},
		cbor.Tag{Number: tagUint8, Content: "nope"},
		cbor.Tag{Number: tagMultiDimArray, Content: []any{[]any{0, 2}, cbor.Tag{Number: tagUint8, Content: []byte{}}}},
		cbor.Tag{Number: tagMultiDimArray, Content: []any{[]any{1, 2}, []byte{1, 2}}},
	}
	for i, value := range bad {
		if _, err := decodePixelData(value); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}
