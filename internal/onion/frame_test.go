package onion

import (
	"testing"

	"github.com/pkg/errors"
)

func TestEncodeAddressWidth(t *testing.T) {
	cases := map[int64]string{
		0:          "0000000000",
		7:          "0000000007",
		3007:       "0000003007",
		4294967295: "4294967295",
		MaxAddress: "9999999999",
	}
	for addr, expected := range cases {
		got, err := EncodeAddress(addr)
		if err != nil {
			t.Fatalf("EncodeAddress(%d) error: %v", addr, err)
		}
		if got != expected || len(got) != AddressWidth {
			t.Errorf("EncodeAddress(%d) = %q, expected %q", addr, got, expected)
		}
		back, err := DecodeAddress(got)
		if err != nil || back != addr {
			t.Errorf("DecodeAddress(%q) = %d, %v", got, back, err)
		}
	}

	for _, addr := range []int64{-1, MaxAddress + 1} {
		if _, err := EncodeAddress(addr); !errors.Is(err, ErrAddressOutOfRange) {
			t.Errorf("EncodeAddress(%d): expected ErrAddressOutOfRange, got %v", addr, err)
		}
	}
}

func TestMaxAddressFrame(t *testing.T) {
	frame, err := InnerFrame{NextAddress: MaxAddress, Remainder: []byte("x")}.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if string(frame) != "9999999999x" {
		t.Fatalf("unexpected frame %q", frame)
	}
	parsed, err := ParseInnerFrame(frame)
	if err != nil {
		t.Fatalf("ParseInnerFrame() error: %v", err)
	}
	if parsed.NextAddress != MaxAddress {
		t.Fatalf("expected %d, got %d", MaxAddress, parsed.NextAddress)
	}
	if _, err = (InnerFrame{NextAddress: MaxAddress + 1}).Marshal(); !errors.Is(err, ErrAddressOutOfRange) {
		t.Fatalf("expected ErrAddressOutOfRange, got %v", err)
	}
}

func TestDecodeAddressRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "123", "00000000001", "00000-0001", "+000000001", "abcdefghij"} {
		if _, err := DecodeAddress(s); !errors.Is(err, ErrMalformedFrame) {
			t.Errorf("DecodeAddress(%q): expected ErrMalformedFrame, got %v", s, err)
		}
	}
}

func TestInnerFrame(t *testing.T) {
	frame, err := InnerFrame{NextAddress: 4002, Remainder: []byte("0000000001rest")}.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if string(frame) != "00000040020000000001rest" {
		t.Fatalf("unexpected frame %q", frame)
	}
	parsed, err := ParseInnerFrame(frame)
	if err != nil {
		t.Fatalf("ParseInnerFrame() error: %v", err)
	}
	if parsed.NextAddress != 4002 || string(parsed.Remainder) != "0000000001rest" {
		t.Fatalf("unexpected parse result %+v", parsed)
	}

	if _, err = ParseInnerFrame([]byte("12345")); !errors.Is(err, ErrMalformedFrame) {
		t.Fatalf("expected ErrMalformedFrame, got %v", err)
	}

	empty, err := ParseInnerFrame([]byte("0000003007"))
	if err != nil || empty.NextAddress != 3007 || len(empty.Remainder) != 0 {
		t.Fatalf("unexpected parse of empty remainder: %+v, %v", empty, err)
	}
}

func TestSplitPayload(t *testing.T) {
	header, body, err := SplitPayload([]byte("HHHHbody"), 4)
	if err != nil {
		t.Fatalf("SplitPayload() error: %v", err)
	}
	if string(header) != "HHHH" || string(body) != "body" {
		t.Fatalf("unexpected split %q / %q", header, body)
	}
	if _, _, err = SplitPayload([]byte("HHHH"), 4); !errors.Is(err, ErrKeyRecovery) {
		t.Fatalf("expected ErrKeyRecovery, got %v", err)
	}
}

func TestTransportErrorKind(t *testing.T) {
	err := TransportError(errors.New("connection refused"), 4001)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}
