// Package countries is a static CountryConfigPort: it resolves a merchant
// country into currency support, per-currency minimum charge amounts and
// reader capabilities.
package countries

import (
	"strings"

	"github.com/storekit/cardpay/internal/model"
	"github.com/storekit/cardpay/internal/port/outbound"
)

var configs = map[string]*model.CountryConfig{
	"US": {
		CountryCode:         "US",
		SupportedCurrencies: []string{"usd"},
		MinChargeAmount:     map[string]int64{"usd": 50},
		SupportsTapToPay:    true,
	},
	"CA": {
		CountryCode:         "CA",
		SupportedCurrencies: []string{"cad"},
		MinChargeAmount:     map[string]int64{"cad": 50},
		SupportsInterac:     true,
		FlatFeeAmount:       15, // flat per-transaction surcharge, minor units
	},
	"GB": {
		CountryCode:         "GB",
		SupportedCurrencies: []string{"gbp"},
		MinChargeAmount:     map[string]int64{"gbp": 30},
		SupportsTapToPay:    true,
	},
}

// provider implements outbound.CountryConfigPort.
type provider struct{}

// NewProvider creates the static country configuration provider.
func NewProvider() outbound.CountryConfigPort {
	return provider{}
}

func (provider) ConfigFor(countryCode string) (*model.CountryConfig, error) {
	cfg, ok := configs[strings.ToUpper(countryCode)]
	if !ok {
		return nil, outbound.ErrCountryNotSupported
	}
	return cfg, nil
}
