package profile

import (
	"fmt"
	"strconv"
	"strings"
)

// Scalar field names. These identify provider-wide form fields.
const (
	FieldDEA          = "deaNumber"
	FieldNPI          = "npiNumber"
	FieldLicense      = "licenseNumber"
	FieldName         = "nameDegree"
	FieldPrintLicense = "printLicense"
)

// Location field names, in the fixed order the autofill writes them.
const (
	LocClinic    = "clinic"
	LocSpecialty = "specialty"
	LocStreet    = "street"
	LocCity      = "city"
	LocState     = "state"
	LocZip       = "zip"
	LocTelephone = "telephone"
	LocFax       = "fax"
)

// ScalarFieldNames is the fixed autofill order for provider-wide fields.
var ScalarFieldNames = []string{FieldDEA, FieldNPI, FieldLicense, FieldName}

// LocationFieldNames is the fixed per-group autofill order.
var LocationFieldNames = []string{
	LocClinic, LocSpecialty, LocStreet, LocCity,
	LocState, LocZip, LocTelephone, LocFax,
}

// FieldKey identifies a form field: either a scalar provider-wide field or
// one field of a repeated location group. It replaces the string-concat
// convention "{name}-{index}" with a structured value; String and
// ParseFieldKey round-trip the wire form.
type FieldKey struct {
	Name string
	// Index is the location group index, or -1 for scalar fields.
	Index int
}

// ScalarKey returns the key for a provider-wide field.
func ScalarKey(name string) FieldKey {
	return FieldKey{Name: name, Index: -1}
}

// LocationKey returns the key for field name of location group index.
func LocationKey(name string, index int) FieldKey {
	return FieldKey{Name: name, Index: index}
}

// IsScalar reports whether the key addresses a provider-wide field.
func (k FieldKey) IsScalar() bool { return k.Index < 0 }

// String renders the stable wire form: "deaNumber" or "telephone-0".
func (k FieldKey) String() string {
	if k.IsScalar() {
		return k.Name
	}
	return fmt.Sprintf("%s-%d", k.Name, k.Index)
}

// ParseFieldKey parses the wire form produced by String. A trailing "-N"
// marks a location field; anything else is scalar.
func ParseFieldKey(s string) FieldKey {
	if i := strings.LastIndex(s, "-"); i > 0 {
		if n, err := strconv.Atoi(s[i+1:]); err == nil && n >= 0 {
			return FieldKey{Name: s[:i], Index: n}
		}
	}
	return FieldKey{Name: s, Index: -1}
}

var displayNames = map[string]string{
	FieldDEA:          "DEA Number",
	FieldNPI:          "NPI Number",
	FieldLicense:      "License Number",
	FieldName:         "Name and Degree",
	FieldPrintLicense: "Print License",
	LocClinic:         "Clinic / Hospital",
	LocSpecialty:      "Specialty",
	LocStreet:         "Street Address",
	LocCity:           "City",
	LocState:          "State",
	LocZip:            "Zip Code",
	LocTelephone:      "Telephone Number",
	LocFax:            "Fax Number",
}

// DisplayName returns the human-readable label for a field key.
func DisplayName(k FieldKey) string {
	if n, ok := displayNames[k.Name]; ok {
		return n
	}
	return k.Name
}

// IsPhoneField reports whether the key holds a phone-formatted value and is
// therefore subject to the 10-digit validation rule.
func IsPhoneField(k FieldKey) bool {
	return k.Name == LocTelephone
}
