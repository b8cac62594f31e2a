package delta

import (
	"testing"

	"github.com/uci-go/uci/internal/uci/model"
)

func TestEncodeUnquotedScalarChange(t *testing.T) {
	entry := model.DeltaEntry{
		Command:  model.DeltaChange,
		Section:  "lan",
		Option:   "ipaddr",
		HasOption: true,
		Value:    "10.0.0.1",
		HasValue: true,
	}
	got, err := Encode("network", entry)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	const want = "network.lan.ipaddr=10.0.0.1"
	if got != want {
		t.Fatalf("Encode() = %q, want %q", got, want)
	}
}

func TestEncodeQuotesValueContainingSpace(t *testing.T) {
	entry := model.DeltaEntry{
		Command:  model.DeltaChange,
		Section:  "lan",
		Option:   "desc",
		HasOption: true,
		Value:    "home network",
		HasValue: true,
	}
	got, err := Encode("network", entry)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	const want = "network.lan.desc='home network'"
	if got != want {
		t.Fatalf("Encode() = %q, want %q", got, want)
	}
}

func TestEncodeQuotesEmptyValue(t *testing.T) {
	entry := model.DeltaEntry{
		Command:  model.DeltaChange,
		Section:  "lan",
		Option:   "desc",
		HasOption: true,
		Value:    "",
		HasValue: true,
	}
	got, err := Encode("network", entry)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	const want = "network.lan.desc=''"
	if got != want {
		t.Fatalf("Encode() = %q, want %q", got, want)
	}
}

func TestEncodeEscapesEmbeddedQuote(t *testing.T) {
	entry := model.DeltaEntry{
		Command:  model.DeltaChange,
		Section:  "lan",
		Option:   "desc",
		HasOption: true,
		Value:    "o'brien",
		HasValue: true,
	}
	got, err := Encode("network", entry)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	const want = `network.lan.desc='o'\''brien'`
	if got != want {
		t.Fatalf("Encode() = %q, want %q", got, want)
	}
}

func TestDecodeRoundTripsUnquotedValue(t *testing.T) {
	line, err := Decode("network.lan.ipaddr=10.0.0.1")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if line.Package != "network" || line.Entry.Section != "lan" || line.Entry.Option != "ipaddr" || line.Entry.Value != "10.0.0.1" {
		t.Fatalf("Decode() = %+v", line)
	}
}
