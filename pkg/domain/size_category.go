package domain

// TransactionSizeCategory is the ordinal band an invoice amount is
// discretized into before it leaves the tenant boundary. Exact amounts are
// never stored on network observations.
type TransactionSizeCategory string

const (
	SizeMicro  TransactionSizeCategory = "MICRO"
	SizeSmall  TransactionSizeCategory = "SMALL"
	SizeMedium TransactionSizeCategory = "MEDIUM"
	SizeLarge  TransactionSizeCategory = "LARGE"
)

// Band thresholds in minor currency units (paise).
const (
	sizeMicroUpper  = 100_000
	sizeSmallUpper  = 1_000_000
	sizeMediumUpper = 10_000_000
)

// CategorizeTransactionSize maps an invoice amount to its ordinal band.
func CategorizeTransactionSize(amount int64) TransactionSizeCategory {
	switch {
	case amount < sizeMicroUpper:
		return SizeMicro
	case amount < sizeSmallUpper:
		return SizeSmall
	case amount < sizeMediumUpper:
		return SizeMedium
	default:
		return SizeLarge
	}
}

func (c TransactionSizeCategory) String() string { return string(c) }
