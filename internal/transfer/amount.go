package transfer

import (
	"fmt"
	"math/big"

	"github.com/aviorian/monad-mindshare/internal/domain"
	"github.com/aviorian/monad-mindshare/internal/numbers"
)

// NativeDecimals is the precision of MON.
const NativeDecimals = 18

// maxAmountBits is the width of a uint256 contract argument.
const maxAmountBits = 256

// ParseAmount converts a MON amount into wei exactly. Anything unparsable,
// non-positive, finer than one wei or wider than a uint256 is ErrInvalidAmount.
func ParseAmount(input any) (*big.Int, error) {
	d, err := numbers.ExtractDecimal(input)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAmount, err)
	}
	if !d.IsPositive() {
		return nil, ErrInvalidAmount
	}
	wei, err := numbers.ToBaseUnits(d, NativeDecimals)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAmount, err)
	}
	if wei.BitLen() > maxAmountBits {
		return nil, fmt.Errorf("%w: exceeds uint256", ErrInvalidAmount)
	}
	return wei, nil
}

// FormatAmount renders wei as MON without trailing zeros.
func FormatAmount(wei *big.Int) string {
	return numbers.FromBaseUnits(wei, NativeDecimals).String()
}

// BuildRequest pays amountWei to every address. The total is exact.
func BuildRequest(addresses []string, amountWei *big.Int) domain.TransferRequest {
	req := domain.TransferRequest{
		Recipients:    make([]domain.Recipient, 0, len(addresses)),
		TotalValueWei: new(big.Int).Mul(amountWei, big.NewInt(int64(len(addresses)))),
	}
	for _, addr := range addresses {
		req.Recipients = append(req.Recipients, domain.Recipient{
			Address:   addr,
			AmountWei: new(big.Int).Set(amountWei),
		})
	}
	return req
}
