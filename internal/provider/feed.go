package provider

import (
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"event-catalog/internal/model"
)

// planDateLayout is the provider's naive timestamp format. Fractional
// seconds are accepted on parse even though the layout omits them.
const planDateLayout = "2006-01-02T15:04:05"

// planList is the root of the provider document:
//
//	<planList>
//	  <output>
//	    <base_plan base_plan_id=".." sell_mode=".." title="..">
//	      <plan plan_id=".." plan_start_date=".." plan_end_date="..">
//	        <zone zone_id=".." price=".."/>
type planList struct {
	XMLName xml.Name `xml:"planList"`
	Output  struct {
		BasePlans []basePlan `xml:"base_plan"`
	} `xml:"output"`
}

type basePlan struct {
	ID       string `xml:"base_plan_id,attr"`
	SellMode string `xml:"sell_mode,attr"`
	Title    string `xml:"title,attr"`
	Plans    []plan `xml:"plan"`
}

type plan struct {
	ID        string `xml:"plan_id,attr"`
	StartDate string `xml:"plan_start_date,attr"`
	EndDate   string `xml:"plan_end_date,attr"`
	Zones     []zone `xml:"zone"`
}

type zone struct {
	ID    string `xml:"zone_id,attr"`
	Price string `xml:"price,attr"`
}

// ErrNoValidPrice is reported for a plan none of whose zones has a parseable price.
var ErrNoValidPrice = errors.New("all zone prices are invalid")

// PlanError describes a plan that was dropped while mapping the feed.
type PlanError struct {
	BasePlanID string
	PlanID     string
	Title      string
	Err        error
}

func (e *PlanError) Error() string {
	return fmt.Sprintf("plan %s of base plan %s (%q): %v", e.PlanID, e.BasePlanID, e.Title, e.Err)
}

func (e *PlanError) Unwrap() error { return e.Err }

// Events flattens the document into provider events, keeping feed order.
// Plans that cannot be mapped are dropped and returned as PlanErrors.
func (l *planList) Events() ([]model.ProviderEvent, []*PlanError) {
	var (
		events  []model.ProviderEvent
		dropped []*PlanError
	)
	for _, bp := range l.Output.BasePlans {
		for _, p := range bp.Plans {
			pe, err := mapPlan(bp.Title, p)
			if err != nil {
				dropped = append(dropped, &PlanError{BasePlanID: bp.ID, PlanID: p.ID, Title: bp.Title, Err: err})
				continue
			}
			events = append(events, pe)
		}
	}
	return events, dropped
}

func mapPlan(title string, p plan) (model.ProviderEvent, error) {
	minPrice, maxPrice, ok := priceBounds(p.Zones)
	if !ok {
		return model.ProviderEvent{}, ErrNoValidPrice
	}
	start, err := parsePlanDate(p.StartDate)
	if err != nil {
		return model.ProviderEvent{}, err
	}
	end, err := parsePlanDate(p.EndDate)
	if err != nil {
		return model.ProviderEvent{}, err
	}
	return model.ProviderEvent{
		Title:     title,
		StartTime: start,
		EndTime:   end,
		MinPrice:  minPrice,
		MaxPrice:  maxPrice,
	}, nil
}

// priceBounds returns the min and max of the zone prices that parse as
// finite decimals. ok is false when none does.
func priceBounds(zones []zone) (minPrice, maxPrice float64, ok bool) {
	minPrice, maxPrice = math.Inf(1), math.Inf(-1)
	for _, z := range zones {
		price, err := strconv.ParseFloat(z.Price, 64)
		if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
			slog.Debug("skipping zone with unparseable price", "zone_id", z.ID, "price", z.Price)
			continue
		}
		minPrice = math.Min(minPrice, price)
		maxPrice = math.Max(maxPrice, price)
		ok = true
	}
	return minPrice, maxPrice, ok
}

// parsePlanDate reads a naive provider timestamp as UTC wall-clock time.
func parsePlanDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(planDateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse datetime %q: %w", s, err)
	}
	return t, nil
}
