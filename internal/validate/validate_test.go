package validate

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AlexanderPuhl/vehicle-stats-tracker-server-sub000/internal/schema"
)

func requireViolation(t *testing.T, err error, kind ErrorKind, field string) *Error {
	t.Helper()
	var verr *Error
	require.True(t, errors.As(err, &verr), "expected *validate.Error, got %v", err)
	require.Equal(t, kind, verr.Kind, verr.Error())
	require.Equal(t, field, verr.Field)
	return verr
}

func validPurchase() map[string]any {
	return map[string]any{
		"vehicle_id":      1,
		"date_of_fill_up": "2024-03-01T10:00:00Z",
		"odometer":        12000,
		"gallons":         10.5,
		"price":           3.49,
	}
}

func TestScenarioVehicleCreate(t *testing.T) {
	in := map[string]any{"name": "Jeep", "vehicle_year": 2020}
	out, err := Validate(schema.Vehicle, schema.Create, in)
	require.NoError(t, err)
	require.Equal(t, in, out)

	_, err = Validate(schema.Vehicle, schema.Create, map[string]any{"name": "", "vehicle_year": 2020})
	verr := requireViolation(t, err, TooShort, "name")
	require.Equal(t, 1, verr.Limit)
	require.Equal(t, http.StatusUnprocessableEntity, verr.Status())
}

func TestScenarioFuelPurchaseMissingPrice(t *testing.T) {
	in := validPurchase()
	delete(in, "price")
	_, err := Validate(schema.FuelPurchase, schema.Create, in)
	verr := requireViolation(t, err, MissingField, "price")
	require.Equal(t, "Missing field: price", verr.Error())
	require.Equal(t, http.StatusUnprocessableEntity, verr.Status())
}

func TestScenarioUserUpdateIdentity(t *testing.T) {
	_, err := Validate(schema.User, schema.Update, map[string]any{"user_id": 5})
	verr := requireViolation(t, err, NotUpdateable, "user_id")
	require.Equal(t, http.StatusBadRequest, verr.Status())
}

func TestOrderingDeterminism(t *testing.T) {
	tests := []struct {
		name  string
		res   *schema.Resource
		op    schema.Operation
		in    map[string]any
		kind  ErrorKind
		field string
	}{
		{
			name: "unknown beats missing",
			res:  schema.Vehicle, op: schema.Create,
			in:   map[string]any{"colour": "red"},
			kind: UnknownField, field: "colour",
		},
		{
			name: "first unknown key in sorted order",
			res:  schema.Vehicle, op: schema.Create,
			in:   map[string]any{"zeta": 1, "alpha": 1, "name": "x"},
			kind: UnknownField, field: "alpha",
		},
		{
			name: "missing beats type mismatch",
			res:  schema.Vehicle, op: schema.Create,
			in:   map[string]any{"vehicle_year": "2020"},
			kind: MissingField, field: "name",
		},
		{
			name: "not updateable beats type mismatch",
			res:  schema.FuelPurchase, op: schema.Update,
			in:   map[string]any{"price": "cheap", "vehicle_id": 2},
			kind: NotUpdateable, field: "vehicle_id",
		},
		{
			name: "numeric type beats sign",
			res:  schema.Vehicle, op: schema.Create,
			in:   map[string]any{"name": "Jeep", "odometer": -1, "vehicle_year": "2020"},
			kind: TypeMismatch, field: "vehicle_year",
		},
		{
			name: "sign beats string type",
			res:  schema.Vehicle, op: schema.Create,
			in:   map[string]any{"name": 7, "vehicle_year": 0},
			kind: NotPositive, field: "vehicle_year",
		},
		{
			name: "string type beats trim",
			res:  schema.Vehicle, op: schema.Create,
			in:   map[string]any{"name": " Jeep", "make": true},
			kind: TypeMismatch, field: "make",
		},
		{
			name: "trim beats length",
			res:  schema.Vehicle, op: schema.Create,
			in:   map[string]any{"name": "", "make": "Ford "},
			kind: NotTrimmed, field: "make",
		},
		{
			name: "min beats max",
			res:  schema.Vehicle, op: schema.Create,
			in:   map[string]any{"name": strings.Repeat("x", 51), "make": ""},
			kind: TooShort, field: "make",
		},
		{
			name: "registry order within a check",
			res:  schema.Vehicle, op: schema.Create,
			in:   map[string]any{"name": "Jeep", "next_oil_change": -5, "odometer": -1},
			kind: NotPositive, field: "odometer",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 20; i++ {
				_, err := Validate(tt.res, tt.op, tt.in)
				requireViolation(t, err, tt.kind, tt.field)
			}
		})
	}
}

func TestValidInputRoundTrips(t *testing.T) {
	in := map[string]any{
		"name":                 "Wrangler",
		"vehicle_year":         json.Number("2020"),
		"make":                 "Jeep",
		"model":                "Rubicon",
		"odometer":             int64(42000),
		"oil_change_frequency": float32(5000),
		"next_oil_change":      uint(47000),
		"user_id":              9,
	}
	out, err := Validate(schema.Vehicle, schema.Create, in)
	require.NoError(t, err)
	require.Equal(t, in, out)
	require.IsType(t, json.Number(""), out["vehicle_year"])

	out, err = Validate(schema.FuelPurchase, schema.Create, validPurchase())
	require.NoError(t, err)
	require.Equal(t, validPurchase(), out)
}

func TestUpdateVacuity(t *testing.T) {
	for _, name := range schema.Names() {
		res, _ := schema.Lookup(name)
		out, err := Validate(res, schema.Update, map[string]any{})
		require.NoError(t, err, name)
		require.Equal(t, map[string]any{}, out)
	}
}

func TestTrimBoundary(t *testing.T) {
	for _, v := range []string{" x", "x ", " x ", "\tx", "x\n"} {
		_, err := Validate(schema.Vehicle, schema.Update, map[string]any{"model": v})
		requireViolation(t, err, NotTrimmed, "model")
	}
	_, err := Validate(schema.Vehicle, schema.Update, map[string]any{"model": "x"})
	require.NoError(t, err)
}

func TestSizeBoundary(t *testing.T) {
	spec, _ := schema.User.Field("password")
	min, max := spec.Size.Min, spec.Size.Max

	for _, n := range []int{min, max} {
		_, err := Validate(schema.User, schema.Update, map[string]any{"password": strings.Repeat("p", n)})
		require.NoError(t, err, "length %d", n)
	}

	_, err := Validate(schema.User, schema.Update, map[string]any{"password": strings.Repeat("p", min-1)})
	verr := requireViolation(t, err, TooShort, "password")
	require.Equal(t, min, verr.Limit)

	_, err = Validate(schema.User, schema.Update, map[string]any{"password": strings.Repeat("p", max+1)})
	verr = requireViolation(t, err, TooLong, "password")
	require.Equal(t, max, verr.Limit)
	require.Equal(t, "Must be at most 72 characters long: password", verr.Error())
}

func TestLengthCountsCharacters(t *testing.T) {
	name := strings.Repeat("é", 50)
	require.Greater(t, len(name), 50)
	_, err := Validate(schema.Vehicle, schema.Update, map[string]any{"name": name})
	require.NoError(t, err)
}

func TestPasswordLengthCountsBytes(t *testing.T) {
	_, err := Validate(schema.User, schema.Update, map[string]any{"password": strings.Repeat("é", 36)})
	require.NoError(t, err)

	for _, pw := range []string{strings.Repeat("é", 72), strings.Repeat("ü", 40), strings.Repeat("p", 71) + "é"} {
		_, err = Validate(schema.User, schema.Create, map[string]any{"username": "alice", "email": "a@b.c", "password": pw})
		verr := requireViolation(t, err, TooLong, "password")
		require.Equal(t, "Must be at most 72 characters long: password", verr.Error())
		require.Equal(t, http.StatusUnprocessableEntity, verr.Status())
	}
}

func TestPositivityBoundary(t *testing.T) {
	for _, v := range []any{0, -1, 0.0, -0.01, json.Number("0"), json.Number("-3")} {
		_, err := Validate(schema.FuelPurchase, schema.Update, map[string]any{"price": v})
		requireViolation(t, err, NotPositive, "price")
	}
	for _, v := range []any{1, 0.01, json.Number("1")} {
		_, err := Validate(schema.FuelPurchase, schema.Update, map[string]any{"price": v})
		require.NoError(t, err)
	}
}

func TestNumericLookingStringRejected(t *testing.T) {
	_, err := Validate(schema.FuelPurchase, schema.Update, map[string]any{"price": "3.49"})
	verr := requireViolation(t, err, TypeMismatch, "price")
	require.Equal(t, schema.Number, verr.Expected)
	require.Equal(t, "Incorrect field type: expected number: price", verr.Error())

	_, err = Validate(schema.FuelPurchase, schema.Update, map[string]any{"odometer": nil})
	requireViolation(t, err, TypeMismatch, "odometer")
}

func TestBooleanAndDatetimeExempt(t *testing.T) {
	_, err := Validate(schema.User, schema.Update, map[string]any{"onboarding": false})
	require.NoError(t, err)

	_, err = Validate(schema.FuelPurchase, schema.Update, map[string]any{"date_of_fill_up": "not a date"})
	require.NoError(t, err)
}

func TestStatusSplit(t *testing.T) {
	require.Equal(t, http.StatusBadRequest, (&Error{Kind: UnknownField}).Status())
	require.Equal(t, http.StatusBadRequest, (&Error{Kind: NotUpdateable}).Status())
	for _, k := range []ErrorKind{MissingField, TypeMismatch, NotPositive, NotTrimmed, TooShort, TooLong} {
		require.Equal(t, http.StatusUnprocessableEntity, (&Error{Kind: k}).Status(), k.String())
	}
}
