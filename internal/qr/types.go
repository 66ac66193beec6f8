// Package qr classifies and parses scanned QR payloads into typed wallet
// actions: plain addresses, EIP-681 payment URIs, WalletConnect pairing URIs,
// ENS names, and solid.xyz profile links.
package qr

// Type identifies the recognized format of a scanned payload
type Type string

const (
	// TypeEthereumAddress is a bare 0x-prefixed 40-hex-char address
	TypeEthereumAddress Type = "ethereum_address"
	// TypeEIP681 is an ethereum: payment request URI (EIP-681)
	TypeEIP681 Type = "eip681_uri"
	// TypeWalletConnectV2 is a wc:<topic>@2 pairing URI
	TypeWalletConnectV2 Type = "walletconnect_v2"
	// TypeENSName is a dot-separated name ending in .eth
	TypeENSName Type = "ens_name"
	// TypeSolidProfile is a solid.xyz profile link
	TypeSolidProfile Type = "solid_profile"
	// TypeUnknown is any payload that matches no known format
	TypeUnknown Type = "unknown"
)

// Mode restricts which detected types a scanner session accepts
type Mode string

const (
	// ModeSend accepts payment destinations (address, EIP-681, ENS)
	ModeSend Mode = "send"
	// ModeConnect accepts WalletConnect pairing URIs only
	ModeConnect Mode = "connect"
	// ModeAll accepts every recognized type
	ModeAll Mode = "all"
)

// ValidMode reports whether m is one of the supported scanner modes
func ValidMode(m Mode) bool {
	switch m {
	case ModeSend, ModeConnect, ModeAll:
		return true
	}
	return false
}

// Parsed is the typed result of parsing a scanned payload. Type discriminates
// which of the optional fields are populated; Raw always carries the original
// input.
type Parsed struct {
	Type Type   `json:"type"`
	Raw  string `json:"raw"`

	// Ethereum address and EIP-681 fields
	Address      string            `json:"address,omitempty"`
	ChainID      *int64            `json:"chainId,omitempty"`
	Value        string            `json:"value,omitempty"` // wei, decimal string
	GasLimit     string            `json:"gasLimit,omitempty"`
	GasPrice     string            `json:"gasPrice,omitempty"`
	FunctionName string            `json:"functionName,omitempty"`
	Parameters   map[string]string `json:"parameters,omitempty"`

	// WalletConnect v2 fields
	Topic  string `json:"topic,omitempty"`
	SymKey string `json:"symKey,omitempty"`
	Relay  string `json:"relay,omitempty"`

	// ENS field
	Name string `json:"name,omitempty"`

	// Solid profile field
	ProfileID string `json:"profileId,omitempty"`
}

// modeTable maps each mode to the set of types it accepts. TypeUnknown is
// deliberately absent from every set.
var modeTable = map[Mode]map[Type]bool{
	ModeSend: {
		TypeEthereumAddress: true,
		TypeEIP681:          true,
		TypeENSName:         true,
	},
	ModeConnect: {
		TypeWalletConnectV2: true,
	},
	ModeAll: {
		TypeEthereumAddress: true,
		TypeEIP681:          true,
		TypeWalletConnectV2: true,
		TypeENSName:         true,
		TypeSolidProfile:    true,
	},
}

// Allowed reports whether a detected type is acceptable for the given scanner
// mode. Unknown is never allowed; unknown modes accept nothing.
func Allowed(t Type, m Mode) bool {
	return modeTable[m][t]
}
