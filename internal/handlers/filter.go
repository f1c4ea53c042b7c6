package handlers

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"marketshare-dashboard/internal/errors"
	"marketshare-dashboard/internal/market"
	"marketshare-dashboard/internal/services"
)

const dateLayout = "2006-01-02"

// filterSignals mirrors the Datastar signals bound to the filter widgets.
// Field names match the query parameters of the JSON API.
type filterSignals struct {
	Product string `json:"product"`
	Start   string `json:"start"`
	End     string `json:"end"`
	Manager string `json:"manager"`
	Region  string `json:"region"`
}

func signalsFromQuery(q url.Values) filterSignals {
	return filterSignals{
		Product: q.Get("product"),
		Start:   q.Get("start"),
		End:     q.Get("end"),
		Manager: q.Get("manager"),
		Region:  q.Get("region"),
	}
}

// filter converts raw selector values. An empty product selects the first
// product; empty dates leave that bound open so the data span applies.
func (s filterSignals) filter() (market.Filter, error) {
	f := market.Filter{
		Product: market.Products()[0],
		Manager: strings.TrimSpace(s.Manager),
		Region:  strings.TrimSpace(s.Region),
	}
	if strings.TrimSpace(s.Product) != "" {
		p, err := market.ParseProduct(s.Product)
		if err != nil {
			return market.Filter{}, err
		}
		f.Product = p
	}

	var err error
	if f.Start, err = parseDay("start", s.Start); err != nil {
		return market.Filter{}, err
	}
	if f.End, err = parseDay("end", s.End); err != nil {
		return market.Filter{}, err
	}
	return f, nil
}

func parseDay(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, errors.ValidationWrap(err, fmt.Sprintf("Invalid %s date, expected YYYY-MM-DD", field))
	}
	return t, nil
}

// ParseFilter reads the dashboard filter from the request's query string.
func ParseFilter(r *http.Request) (market.Filter, error) {
	return signalsFromQuery(r.URL.Query()).filter()
}

// toAppError maps pipeline errors onto the HTTP error taxonomy.
func toAppError(err error) *errors.AppError {
	var appErr *errors.AppError
	switch {
	case stderrors.As(err, &appErr):
		return appErr
	case stderrors.Is(err, market.ErrInvalidProduct):
		return errors.ValidationWrap(err, "Unknown product")
	case stderrors.Is(err, services.ErrNoData):
		return errors.ServiceUnavailable("No sales data loaded yet, upload a sales file first")
	default:
		return errors.InternalWrap(err, "Failed to compute dashboard")
	}
}
