package qr

import (
	"net/url"
	"strconv"
	"strings"
)

// Parse classifies and parses a raw scanned payload in one pass. The
// classification happens exactly once; the resulting tag is threaded into
// ParseAs so Parse(s).Type always equals Detect(s).
func Parse(raw string) Parsed {
	return ParseAs(Detect(raw), raw)
}

// ParseAs parses a payload whose type has already been determined. Pure
// function of (tag, text): no I/O, idempotent. A tag that contradicts the
// payload never panics; the branch either degrades to a partial record or
// returns an unknown record.
func ParseAs(t Type, raw string) Parsed {
	s := strings.TrimSpace(raw)

	switch t {
	case TypeEthereumAddress:
		return parseAddress(raw, s)
	case TypeEIP681:
		return parseEIP681(raw, s)
	case TypeWalletConnectV2:
		return parseWalletConnect(raw, s)
	case TypeENSName:
		return Parsed{Type: TypeENSName, Raw: raw, Name: strings.ToLower(s)}
	case TypeSolidProfile:
		return parseSolidProfile(raw, s)
	default:
		return Parsed{Type: TypeUnknown, Raw: raw}
	}
}

// ExtractAddress returns the address carried by a payload, for the address and
// EIP-681 variants only. The second return is false for every other variant
// and for EIP-681 records whose fallback path produced no address.
func ExtractAddress(raw string) (string, bool) {
	parsed := Parse(raw)
	switch parsed.Type {
	case TypeEthereumAddress, TypeEIP681:
		if parsed.Address == "" {
			return "", false
		}
		return parsed.Address, true
	}
	return "", false
}

func parseAddress(raw, s string) Parsed {
	// Re-extract to handle addresses embedded in surrounding text. If nothing
	// matches (cannot happen after classification) use the trimmed input.
	address := embeddedAddrPattern.FindString(s)
	if address == "" {
		address = s
	}
	return Parsed{Type: TypeEthereumAddress, Raw: raw, Address: address}
}

func parseEIP681(raw, s string) Parsed {
	parsed := Parsed{Type: TypeEIP681, Raw: raw}

	m := eip681Pattern.FindStringSubmatch(s)
	if m == nil {
		// Malformed URI that still carried the ethereum: scheme. Partial
		// information beats a hard failure here: hand-typed and
		// wallet-generated URIs vary, so salvage a bare address if present.
		parsed.Address = embeddedAddrPattern.FindString(s)
		return parsed
	}

	parsed.Address = m[1]

	if m[2] != "" {
		if chainID, err := strconv.ParseInt(m[2], 10, 64); err == nil {
			parsed.ChainID = &chainID
		}
	}

	if m[3] != "" {
		parsed.FunctionName = m[3]
	}

	if m[4] != "" {
		params := parseQueryParams(m[4])
		if v, ok := params["value"]; ok {
			parsed.Value = v
			delete(params, "value")
		}
		if v, ok := params["gasLimit"]; ok {
			parsed.GasLimit = v
			delete(params, "gasLimit")
		} else if v, ok := params["gas"]; ok {
			parsed.GasLimit = v
			delete(params, "gas")
		}
		if v, ok := params["gasPrice"]; ok {
			parsed.GasPrice = v
			delete(params, "gasPrice")
		}
		if len(params) > 0 {
			parsed.Parameters = params
		}
	}

	return parsed
}

func parseWalletConnect(raw, s string) Parsed {
	m := walletConnectPattern.FindStringSubmatch(s)
	if m == nil {
		// Safety net: classification said WalletConnect but the pattern no
		// longer agrees. Fall back to unknown instead of guessing.
		return Parsed{Type: TypeUnknown, Raw: raw}
	}

	parsed := Parsed{Type: TypeWalletConnectV2, Raw: raw, Topic: m[1]}
	if m[2] != "" {
		params := parseQueryParams(m[2])
		parsed.SymKey = params["symKey"]
		parsed.Relay = params["relay-protocol"]
	}
	return parsed
}

func parseSolidProfile(raw, s string) Parsed {
	profileID := ""
	if m := solidProfilePattern.FindStringSubmatch(s); m != nil {
		profileID = m[1]
	}
	return Parsed{Type: TypeSolidProfile, Raw: raw, ProfileID: profileID}
}

// parseQueryParams splits a key=value&key=value blob, URI-decoding keys and
// values independently. Duplicate keys: last occurrence wins. Components that
// fail to decode are kept verbatim.
func parseQueryParams(qs string) map[string]string {
	params := make(map[string]string)
	for _, pair := range strings.Split(qs, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		if key == "" {
			continue
		}
		if decoded, err := url.QueryUnescape(key); err == nil {
			key = decoded
		}
		if decoded, err := url.QueryUnescape(value); err == nil {
			value = decoded
		}
		params[key] = value
	}
	return params
}
