package provider

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"

	apperrors "github.com/citymate-bot/citymate/internal/errors"
)

const currencyName = "currency"

// Rate is one displayed exchange rate: how many base-currency units buy one
// unit of the target currency.
type Rate struct {
	Code  string
	Name  string
	Value float64
}

// currencyTargets fixes the displayed set and its order.
var currencyTargets = []struct {
	Code string
	Name string
}{
	{"USD", "Доллар США"},
	{"EUR", "Евро"},
	{"GBP", "Британский фунт"},
	{"JPY", "Японская йена"},
	{"CNY", "Китайский юань"},
}

// Currency fetches exchange rates from freecurrencyapi with RUB as the base.
type Currency struct {
	client  *http.Client
	baseURL string
	apiKey  string
	log     *slog.Logger
}

// NewCurrency constructs a Currency provider.
func NewCurrency(client *http.Client, baseURL, apiKey string, log *slog.Logger) *Currency {
	if log == nil {
		log = slog.Default()
	}

	return &Currency{
		client:  client,
		baseURL: baseURL,
		apiKey:  apiKey,
		log:     log,
	}
}

type latestRatesResponse struct {
	Data map[string]float64 `json:"data"`
}

// Rates returns the fixed target set in display order. The raw API rate is
// "target units per 1 RUB"; display inverts it to rubles per unit, rounded to
// two decimal places.
func (c *Currency) Rates(ctx context.Context) ([]Rate, error) {
	codes := make([]string, 0, len(currencyTargets))
	for _, target := range currencyTargets {
		codes = append(codes, target.Code)
	}

	endpoint := fmt.Sprintf("%s/v1/latest?apikey=%s&base_currency=RUB&currencies=%s",
		c.baseURL, c.apiKey, strings.Join(codes, ","))

	var resp latestRatesResponse
	if err := getJSON(ctx, c.client, currencyName, endpoint, &resp); err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, apperrors.NewProviderMalformedError(currencyName, fmt.Errorf("empty rates payload"))
	}

	rates := make([]Rate, 0, len(currencyTargets))
	for _, target := range currencyTargets {
		raw, ok := resp.Data[target.Code]
		if !ok || raw == 0 {
			return nil, apperrors.NewProviderMalformedError(currencyName, fmt.Errorf("missing rate for %s", target.Code))
		}

		rates = append(rates, Rate{
			Code:  target.Code,
			Name:  target.Name,
			Value: invertRate(raw),
		})
	}

	return rates, nil
}

// invertRate converts a raw rate to rubles per one target unit, rounded to
// exactly two decimal places.
func invertRate(raw float64) float64 {
	return math.Round(1/raw*100) / 100
}
