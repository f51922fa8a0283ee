package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Network is a mobile operator the storefront sells bundles for.
type Network string

const (
	NetworkMTN        Network = "mtn"
	NetworkTelecel    Network = "telecel"
	NetworkAirtelTigo Network = "airteltigo"
)

var networkNames = map[Network]string{
	NetworkMTN:        "MTN",
	NetworkTelecel:    "Telecel",
	NetworkAirtelTigo: "AirtelTigo",
}

func (n Network) DisplayName() string {
	if name, ok := networkNames[n]; ok {
		return name
	}
	return strings.ToUpper(string(n))
}

// ParseNetwork accepts the network id or its display name, case-insensitively.
func ParseNetwork(s string) (Network, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for n, name := range networkNames {
		if key == string(n) || key == strings.ToLower(name) {
			return n, nil
		}
	}
	return "", fmt.Errorf("%w: unknown network %q", ErrValidationFailed, s)
}

// BundleOffer is one purchasable data bundle. Offers are immutable once the catalog is built.
type BundleOffer struct {
	Network      Network         `json:"network"`
	Code         string          `json:"code"`
	DisplayName  string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	ValidityDays int             `json:"validity_days"`
}

// MinorUnits returns the price in pesewas, the unit the gateway charges in.
func (b BundleOffer) MinorUnits() int64 {
	return b.Price.Shift(2).Round(0).IntPart()
}

// Catalog is a read-only lookup table of offers per network.
type Catalog struct {
	networks []Network
	offers   map[Network][]BundleOffer
}

// NewCatalog builds a catalog; it rejects duplicate codes within a network,
// negative prices and non-positive validity.
func NewCatalog(offers []BundleOffer) (*Catalog, error) {
	c := &Catalog{offers: make(map[Network][]BundleOffer)}
	seen := make(map[string]struct{})
	for _, o := range offers {
		key := string(o.Network) + "/" + strings.ToLower(o.Code)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("duplicate bundle code %q for network %s", o.Code, o.Network)
		}
		seen[key] = struct{}{}
		if o.Price.IsNegative() {
			return nil, fmt.Errorf("bundle %s/%s has negative price", o.Network, o.Code)
		}
		if o.ValidityDays <= 0 {
			return nil, fmt.Errorf("bundle %s/%s has invalid validity", o.Network, o.Code)
		}
		if _, ok := c.offers[o.Network]; !ok {
			c.networks = append(c.networks, o.Network)
		}
		c.offers[o.Network] = append(c.offers[o.Network], o)
	}
	return c, nil
}

func (c *Catalog) Networks() []Network {
	out := make([]Network, len(c.networks))
	copy(out, c.networks)
	return out
}

func (c *Catalog) Offers(n Network) []BundleOffer {
	src := c.offers[n]
	out := make([]BundleOffer, len(src))
	copy(out, src)
	return out
}

// Lookup finds a bundle by code ("2gb") or display name ("2GB").
func (c *Catalog) Lookup(network, bundle string) (BundleOffer, bool) {
	n, err := ParseNetwork(network)
	if err != nil {
		return BundleOffer{}, false
	}
	want := strings.ToLower(strings.TrimSpace(bundle))
	for _, o := range c.offers[n] {
		if strings.ToLower(o.Code) == want || strings.ToLower(o.DisplayName) == want {
			return o, true
		}
	}
	return BundleOffer{}, false
}

func offer(n Network, name, price string) BundleOffer {
	return BundleOffer{
		Network:      n,
		Code:         strings.ToLower(name),
		DisplayName:  name,
		Price:        decimal.RequireFromString(price),
		ValidityDays: 30,
	}
}

// DefaultCatalog returns the storefront price list.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog([]BundleOffer{
		offer(NetworkMTN, "1GB", "6.00"),
		offer(NetworkMTN, "2GB", "11.00"),
		offer(NetworkMTN, "3GB", "15.00"),
		offer(NetworkMTN, "4GB", "21.00"),
		offer(NetworkMTN, "5GB", "26.00"),
		offer(NetworkMTN, "6GB", "30.00"),
		offer(NetworkMTN, "8GB", "40.00"),
		offer(NetworkMTN, "10GB", "47.00"),
		offer(NetworkMTN, "20GB", "89.00"),
		offer(NetworkMTN, "25GB", "108.00"),
		offer(NetworkMTN, "30GB", "130.00"),
		offer(NetworkMTN, "40GB", "170.00"),
		offer(NetworkMTN, "50GB", "220.00"),
		offer(NetworkMTN, "100GB", "390.00"),
		offer(NetworkTelecel, "5GB", "22.00"),
		offer(NetworkTelecel, "10GB", "45.00"),
		offer(NetworkTelecel, "15GB", "65.00"),
		offer(NetworkTelecel, "20GB", "85.00"),
		offer(NetworkTelecel, "25GB", "105.00"),
		offer(NetworkTelecel, "30GB", "125.00"),
		offer(NetworkTelecel, "40GB", "155.00"),
		offer(NetworkTelecel, "50GB", "200.00"),
		offer(NetworkTelecel, "100GB", "380.00"),
		offer(NetworkAirtelTigo, "1GB", "5.00"),
		offer(NetworkAirtelTigo, "2GB", "10.00"),
		offer(NetworkAirtelTigo, "3GB", "14.00"),
		offer(NetworkAirtelTigo, "4GB", "18.00"),
		offer(NetworkAirtelTigo, "5GB", "25.00"),
		offer(NetworkAirtelTigo, "6GB", "30.00"),
		offer(NetworkAirtelTigo, "7GB", "34.00"),
		offer(NetworkAirtelTigo, "8GB", "37.00"),
		offer(NetworkAirtelTigo, "10GB", "47.00"),
		offer(NetworkAirtelTigo, "15GB", "65.00"),
		offer(NetworkAirtelTigo, "20GB", "70.00"),
		offer(NetworkAirtelTigo, "30GB", "95.00"),
		offer(NetworkAirtelTigo, "40GB", "110.00"),
		offer(NetworkAirtelTigo, "50GB", "130.00"),
		offer(NetworkAirtelTigo, "60GB", "145.00"),
		offer(NetworkAirtelTigo, "80GB", "180.00"),
		offer(NetworkAirtelTigo, "100GB", "350.00"),
	})
	if err != nil {
		panic(err)
	}
	return c
}
