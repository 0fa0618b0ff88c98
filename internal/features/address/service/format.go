package service

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/xssnick/tonutils-go/address"

	"tg-reward-ledger/internal/features/address/models"
)

var evmAddressRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// formatRule validates an address and returns its canonical form.
type formatRule func(raw string) (string, error)

var formats = map[models.Chain]formatRule{
	models.ChainEthereum: evmAddress,
	models.ChainBase:     evmAddress,
	models.ChainTON:      tonAddress,
}

// evmAddress accepts any hex case and stores the EIP-55 checksum form, so
// differently cased spellings of one account collide.
func evmAddress(raw string) (string, error) {
	if !evmAddressRe.MatchString(raw) {
		return "", models.ErrInvalidFormat
	}
	return common.HexToAddress(raw).Hex(), nil
}

// tonAddress accepts user-friendly and raw forms and stores "wc:hex".
func tonAddress(raw string) (string, error) {
	var (
		addr *address.Address
		err  error
	)
	if strings.Contains(raw, ":") {
		addr, err = address.ParseRawAddr(raw)
	} else {
		addr, err = address.ParseAddr(raw)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrInvalidFormat, err)
	}
	return fmt.Sprintf("%d:%x", addr.Workchain(), addr.Data()), nil
}

// Canonicalize validates raw for chain and returns the stored form.
func Canonicalize(chain models.Chain, raw string) (string, error) {
	rule, ok := formats[chain]
	if !ok {
		return "", fmt.Errorf("%w: unsupported chain %q", models.ErrInvalidFormat, chain)
	}
	return rule(strings.TrimSpace(raw))
}

func SupportedChains() []models.Chain {
	out := make([]models.Chain, 0, len(formats))
	for c := range formats {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
