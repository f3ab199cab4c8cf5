// Package schema declares which fields each API resource accepts and how they
// are constrained. It holds data only; internal/validate interprets it.
package schema

import "sort"

// Kind is the data kind of a field.
type Kind int

const (
	String Kind = iota + 1
	Number
	Boolean
	Datetime
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Number:
		return "number"
	case Boolean:
		return "boolean"
	case Datetime:
		return "datetime"
	}
	return "unknown"
}

// Operation is the write operation a payload is validated for.
type Operation int

const (
	Create Operation = iota + 1
	Update
)

func (o Operation) String() string {
	if o == Update {
		return "update"
	}
	return "create"
}

// Bounds limits the length of a string field in characters. Zero means unbounded.
// When Bytes is set, Max is counted in UTF-8 bytes instead.
type Bounds struct {
	Min   int
	Max   int
	Bytes bool
}

// FieldSpec describes one input field of a resource.
type FieldSpec struct {
	Name       string
	Kind       Kind
	Required   bool // on create
	Updateable bool
	Size       *Bounds
}

// Resource is an ordered set of field specs.
type Resource struct {
	Name   string
	fields []FieldSpec
	index  map[string]int
}

// NewResource builds a resource from fields in declaration order.
func NewResource(name string, fields ...FieldSpec) *Resource {
	r := &Resource{Name: name, fields: fields, index: make(map[string]int, len(fields))}
	for i, f := range fields {
		r.index[f.Name] = i
	}
	return r
}

// Fields returns the field specs in declaration order.
func (r *Resource) Fields() []FieldSpec {
	out := make([]FieldSpec, len(r.fields))
	copy(out, r.fields)
	return out
}

// Field returns the spec for name, or false if the resource has no such field.
func (r *Resource) Field(name string) (FieldSpec, bool) {
	i, ok := r.index[name]
	if !ok {
		return FieldSpec{}, false
	}
	return r.fields[i], true
}

// ValidFieldNames returns every name accepted as an input key.
func (r *Resource) ValidFieldNames() []string {
	names := make([]string, 0, len(r.fields))
	for _, f := range r.fields {
		names = append(names, f.Name)
	}
	return names
}

// RequiredFields returns the names that must be present for op.
// Updates never require specific fields.
func (r *Resource) RequiredFields(op Operation) []string {
	if op != Create {
		return nil
	}
	var names []string
	for _, f := range r.fields {
		if f.Required {
			names = append(names, f.Name)
		}
	}
	return names
}

// UpdateableFieldNames returns the names an update may carry.
func (r *Resource) UpdateableFieldNames() []string {
	var names []string
	for _, f := range r.fields {
		if f.Updateable {
			names = append(names, f.Name)
		}
	}
	return names
}

// Has reports whether name is a field of the resource.
func (r *Resource) Has(name string) bool {
	_, ok := r.index[name]
	return ok
}

var (
	User = NewResource("user",
		FieldSpec{Name: "user_id", Kind: Number},
		FieldSpec{Name: "username", Kind: String, Required: true, Size: &Bounds{Min: 1, Max: 35}},
		FieldSpec{Name: "email", Kind: String, Required: true, Updateable: true, Size: &Bounds{Min: 3, Max: 254}},
		FieldSpec{Name: "password", Kind: String, Required: true, Updateable: true, Size: &Bounds{Min: 8, Max: 72, Bytes: true}}, // bcrypt input limit
		FieldSpec{Name: "onboarding", Kind: Boolean, Updateable: true},
		FieldSpec{Name: "selected_vehicle_id", Kind: Number, Updateable: true},
	)

	Vehicle = NewResource("vehicle",
		FieldSpec{Name: "vehicle_id", Kind: Number},
		FieldSpec{Name: "user_id", Kind: Number},
		FieldSpec{Name: "name", Kind: String, Required: true, Updateable: true, Size: &Bounds{Min: 1, Max: 50}},
		FieldSpec{Name: "vehicle_year", Kind: Number, Updateable: true},
		FieldSpec{Name: "make", Kind: String, Updateable: true, Size: &Bounds{Min: 1, Max: 50}},
		FieldSpec{Name: "model", Kind: String, Updateable: true, Size: &Bounds{Min: 1, Max: 50}},
		FieldSpec{Name: "odometer", Kind: Number, Updateable: true},
		FieldSpec{Name: "oil_change_frequency", Kind: Number, Updateable: true},
		FieldSpec{Name: "next_oil_change", Kind: Number, Updateable: true},
	)

	FuelPurchase = NewResource("fuel-purchase",
		FieldSpec{Name: "fuel_purchase_id", Kind: Number},
		FieldSpec{Name: "user_id", Kind: Number},
		FieldSpec{Name: "vehicle_id", Kind: Number, Required: true},
		FieldSpec{Name: "date_of_fill_up", Kind: Datetime, Required: true, Updateable: true},
		FieldSpec{Name: "odometer", Kind: Number, Required: true, Updateable: true},
		FieldSpec{Name: "gallons", Kind: Number, Required: true, Updateable: true},
		FieldSpec{Name: "price", Kind: Number, Required: true, Updateable: true},
		FieldSpec{Name: "location", Kind: String, Updateable: true, Size: &Bounds{Min: 1, Max: 100}},
	)
)

var registry = map[string]*Resource{
	User.Name:         User,
	Vehicle.Name:      Vehicle,
	FuelPurchase.Name: FuelPurchase,
}

// Lookup returns the registered resource with the given name.
func Lookup(name string) (*Resource, bool) {
	r, ok := registry[name]
	return r, ok
}

// Names lists the registered resources, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
