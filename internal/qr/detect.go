package qr

import (
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Detection patterns. Order of evaluation in Detect matters: WalletConnect and
// ethereum: URIs embed hex runs that would otherwise sniff as addresses.
var (
	walletConnectPattern = regexp.MustCompile(`^(?i)wc:([0-9a-f]+)@2(?:\?(.*))?$`)
	bareAddressPattern   = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	ensNamePattern       = regexp.MustCompile(`^(?i)(?:[a-z0-9](?:[a-z0-9-]*[a-z0-9])?\.)+eth$`)
	solidProfilePattern  = regexp.MustCompile(`^(?i)(?:https?://)?(?:www\.)?solid\.xyz/profile/([a-zA-Z0-9_-]+)$`)
	embeddedAddrPattern  = regexp.MustCompile(`0x[0-9a-fA-F]{40}`)

	// Strict EIP-681 shape: address, optional @chainId, optional /function,
	// optional ?query. Used by the parser; detection only needs the prefix.
	eip681Pattern = regexp.MustCompile(`^(?i)ethereum:(0x[0-9a-fA-F]{40})?(?:@([0-9]+))?(?:/([^?]*))?(?:\?(.*))?$`)
)

// Detect classifies a raw scanned payload. The input is trimmed first; the
// empty string falls through every check and returns TypeUnknown. Pure
// function, no side effects.
func Detect(raw string) Type {
	s := strings.TrimSpace(raw)
	if s == "" {
		return TypeUnknown
	}

	if walletConnectPattern.MatchString(s) {
		return TypeWalletConnectV2
	}

	// Anything with the ethereum: scheme classifies as EIP-681 even when the
	// remainder is malformed; the parser degrades gracefully later.
	if strings.HasPrefix(strings.ToLower(s), "ethereum:") {
		return TypeEIP681
	}

	if bareAddressPattern.MatchString(s) && common.IsHexAddress(s) {
		return TypeEthereumAddress
	}

	if ensNamePattern.MatchString(s) {
		return TypeENSName
	}

	if solidProfilePattern.MatchString(s) {
		return TypeSolidProfile
	}

	// Fallback sniff for addresses embedded in surrounding text or URLs.
	if m := embeddedAddrPattern.FindString(s); m != "" && common.IsHexAddress(m) {
		return TypeEthereumAddress
	}

	return TypeUnknown
}
