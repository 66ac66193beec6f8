package dispatch

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/params"
)

var weiPerEther = big.NewInt(params.Ether)

// weiToEther converts a wei-denominated decimal string into a human-readable
// ether amount with trailing zeros trimmed ("1000000000000000000" -> "1",
// "1500000000000000000" -> "1.5"). Returns false for anything that is not a
// non-negative base-10 integer.
func weiToEther(wei string) (string, bool) {
	n, ok := new(big.Int).SetString(strings.TrimSpace(wei), 10)
	if !ok || n.Sign() < 0 {
		return "", false
	}

	quo, rem := new(big.Int).QuoRem(n, weiPerEther, new(big.Int))
	if rem.Sign() == 0 {
		return quo.String(), true
	}

	frac := rem.String()
	// Left-pad the remainder to 18 digits so place value survives.
	if pad := 18 - len(frac); pad > 0 {
		frac = strings.Repeat("0", pad) + frac
	}
	frac = strings.TrimRight(frac, "0")

	return quo.String() + "." + frac, true
}
