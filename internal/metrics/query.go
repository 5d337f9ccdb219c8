package metrics

import (
	"fmt"
	"net/url"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"busexplorer.nyc/internal/failure"
)

// GroupBy selects the non-aggregate fields a speed query groups on.
type GroupBy string

const (
	GroupByRoute          GroupBy = "route"
	GroupByRouteDirection GroupBy = "route_direction"
	GroupByRouteName      GroupBy = "route_name"
)

const (
	DefaultLimit = 1000
	MaxLimit     = 50000

	speedField  = "average_road_speed"
	metricAlias = "avg_speed"
)

// Query filters an average-speed request. Empty fields are not filtered on.
type Query struct {
	RouteID   string  `param:"routeId" validate:"omitempty,max=32"`
	Borough   string  `param:"borough" validate:"omitempty,max=32"`
	DateStart string  `param:"start" validate:"omitempty,datetime=2006-01-02"`
	DateEnd   string  `param:"end" validate:"omitempty,datetime=2006-01-02"`
	HourStart *int    `param:"startHour" validate:"omitempty,min=0,max=23"`
	HourEnd   *int    `param:"endHour" validate:"omitempty,min=0,max=23"`
	GroupBy   GroupBy `param:"groupBy" validate:"omitempty,oneof=route route_direction route_name"`
	Limit     int     `param:"limit" validate:"min=0,max=50000"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("param")
	})
	return v
}

// Validate checks the query and returns per-field messages keyed by field name.
func (q Query) Validate() map[string][]string {
	fieldErrors := map[string][]string{}
	if err := validate.Struct(q); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				fieldErrors[fe.Field()] = append(fieldErrors[fe.Field()],
					fmt.Sprintf("Invalid field value for field %q.", fe.Field()))
			}
		} else {
			fieldErrors["query"] = append(fieldErrors["query"], err.Error())
		}
	}
	// Values are interpolated into a quoted SoQL literal.
	for field, value := range map[string]string{"routeId": q.RouteID, "borough": q.Borough} {
		if strings.ContainsAny(value, "\"\\") {
			fieldErrors[field] = append(fieldErrors[field], fmt.Sprintf("Invalid field value for field %q.", field))
		}
	}
	if q.DateStart != "" && q.DateEnd != "" && q.DateStart > q.DateEnd {
		fieldErrors["end"] = append(fieldErrors["end"], "end date is before start date")
	}
	if q.DateStart != "" && q.DateStart == q.DateEnd && q.HourStart != nil && q.HourEnd != nil && *q.HourStart > *q.HourEnd {
		fieldErrors["endHour"] = append(fieldErrors["endHour"], "end hour is before start hour")
	}
	if len(fieldErrors) == 0 {
		return nil
	}
	return fieldErrors
}

// Err returns a ValidationFailure when the query is invalid.
func (q Query) Err() error {
	fieldErrors := q.Validate()
	if fieldErrors == nil {
		return nil
	}
	fields := make([]string, 0, len(fieldErrors))
	for f := range fieldErrors {
		fields = append(fields, f)
	}
	slices.Sort(fields)
	return failure.New(failure.ValidationFailure, "validate speed query", "invalid "+strings.Join(fields, ", "))
}

func (q Query) groupBy() GroupBy {
	if q.GroupBy == "" {
		return GroupByRoute
	}
	return q.GroupBy
}

func (q Query) limit() int {
	if q.Limit <= 0 {
		return DefaultLimit
	}
	return q.Limit
}

// GroupFields returns the non-aggregate columns selected by the query, in order.
func (q Query) GroupFields() []string {
	switch q.groupBy() {
	case GroupByRouteDirection:
		return []string{"route_id", "direction"}
	case GroupByRouteName:
		return []string{"route_id", "route_name"}
	default:
		return []string{"route_id"}
	}
}

// Where returns the $where predicate, or "" when no filter is set.
func (q Query) Where() string {
	var conditions []string
	if q.RouteID != "" {
		conditions = append(conditions, fmt.Sprintf(`route_id="%s"`, q.RouteID))
	}
	if q.Borough != "" {
		conditions = append(conditions, fmt.Sprintf(`borough="%s"`, q.Borough))
	}
	if q.DateStart != "" {
		conditions = append(conditions, fmt.Sprintf(`timestamp>="%sT%02d:00:00"`, q.DateStart, hourOr(q.HourStart, 0)))
	}
	if q.DateEnd != "" {
		conditions = append(conditions, fmt.Sprintf(`timestamp<="%sT%02d:59:59"`, q.DateEnd, hourOr(q.HourEnd, 23)))
	}
	return strings.Join(conditions, " AND ")
}

func hourOr(h *int, fallback int) int {
	if h == nil {
		return fallback
	}
	return *h
}

// Values encodes the query as SoQL parameters.
func (q Query) Values() url.Values {
	fields := q.GroupFields()
	v := url.Values{}
	v.Set("$select", fmt.Sprintf("%s, AVG(%s) as %s", strings.Join(fields, ", "), speedField, metricAlias))
	v.Set("$group", strings.Join(fields, ", "))
	if where := q.Where(); where != "" {
		v.Set("$where", where)
	}
	v.Set("$order", metricAlias)
	v.Set("$limit", strconv.Itoa(q.limit()))
	return v
}

// CacheKey identifies the query's exact parameters.
func (q Query) CacheKey() string {
	return "speeds?" + q.Values().Encode()
}
