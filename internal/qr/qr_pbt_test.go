package qr

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestClassificationProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	hexDigits := gen.OneConstOf(
		'0', '1', '2', '3', '4', '5', '6', '7', '8', '9',
		'a', 'b', 'c', 'd', 'e', 'f', 'A', 'B', 'C', 'D', 'E', 'F',
	)
	genAddress := gen.SliceOfN(40, hexDigits).Map(func(runes []rune) string {
		return "0x" + string(runes)
	})

	// Parse never disagrees with Detect about the type.
	properties.Property("Parse type matches Detect", prop.ForAll(
		func(s string) bool {
			return Parse(s).Type == Detect(s)
		},
		gen.AnyString(),
	))

	// Parsing the same payload twice yields identical results, query
	// parameters included.
	properties.Property("Parse is deterministic", prop.ForAll(
		func(s string) bool {
			return reflect.DeepEqual(Parse(s), Parse(s))
		},
		gen.AnyString(),
	))

	// Parse never panics and always preserves the raw payload.
	properties.Property("Parse preserves raw input", prop.ForAll(
		func(s string) bool {
			return Parse(s).Raw == s
		},
		gen.AnyString(),
	))

	// Any 40-hex-digit 0x string classifies as an address and round-trips
	// with its original casing intact.
	properties.Property("addresses round-trip with casing", prop.ForAll(
		func(addr string) bool {
			parsed := Parse(addr)
			return parsed.Type == TypeEthereumAddress && parsed.Address == addr
		},
		genAddress,
	))

	// Unknown payloads are never dispatchable in any mode.
	properties.Property("unknown is rejected by every mode", prop.ForAll(
		func(s string) bool {
			if Detect(s) != TypeUnknown {
				return true
			}
			return !Allowed(TypeUnknown, ModeSend) &&
				!Allowed(TypeUnknown, ModeConnect) &&
				!Allowed(TypeUnknown, ModeAll)
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
