// Package profile holds the reference provider record: the trusted
// source-of-truth used for autofill and change detection. The profile is
// created once per session, read everywhere, and mutated only by the review
// workflow's apply step.
package profile

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Location is one practice location on the reference profile.
type Location struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
	Suite   string `yaml:"suite,omitempty"`
	City    string `yaml:"city"`
	State   string `yaml:"state"`
	Zip     string `yaml:"zip"`
	Phone   string `yaml:"phone"`
	Email   string `yaml:"email,omitempty"`
}

// StreetLine is the combined address line the form presents as a single
// street input: address, plus the suite comma-joined when present.
func (l Location) StreetLine() string {
	if l.Suite != "" {
		return l.Address + ", " + l.Suite
	}
	return l.Address
}

// SetStreetLine splits a combined street value back into address and suite on
// the first comma. No comma means no suite.
func (l *Location) SetStreetLine(v string) {
	parts := strings.SplitN(v, ",", 2)
	if len(parts) == 2 {
		l.Address = strings.TrimSpace(parts[0])
		l.Suite = strings.TrimSpace(parts[1])
		return
	}
	l.Address = strings.TrimSpace(v)
	l.Suite = ""
}

// ReferenceProfile is the provider record a form should match.
type ReferenceProfile struct {
	Name       string     `yaml:"name"`
	Specialty  string     `yaml:"specialty"`
	ProviderID string     `yaml:"provider_id"`
	Username   string     `yaml:"username"`
	NPI        string     `yaml:"npi"`
	License    string     `yaml:"license"`
	LicenseExp string     `yaml:"license_exp,omitempty"`
	DEA        string     `yaml:"dea"`
	DEAExp     string     `yaml:"dea_exp,omitempty"`
	Locations  []Location `yaml:"locations"`
}

// Demo returns the seeded demonstration profile used when no profile file is
// configured.
func Demo() *ReferenceProfile {
	return &ReferenceProfile{
		Name:       "Sophia Garcia, M.D.",
		Specialty:  "Ophthalmology",
		ProviderID: "14689159",
		Username:   "sgarcia",
		NPI:        "5678901234",
		License:    "PA56789",
		LicenseExp: "6/1/27",
		DEA:        "CB3028475",
		DEAExp:     "6/1/29",
		Locations: []Location{
			{
				Name:    "Harmony Health Clinic",
				Address: "824 Ostrum St",
				Suite:   "Ste. 5A",
				City:    "Uniontown",
				State:   "PA",
				Zip:     "18015",
				Phone:   "412-239-9837",
				Email:   "sgarcia@harmonyhealth.com",
			},
			{
				Name:    "Greenwood Clinic",
				Address: "999 Mission Ave",
				City:    "Pittsburgh",
				State:   "PA",
				Zip:     "15213",
				Phone:   "412-555-5678",
				Email:   "sgarcia@greenwood.com",
			},
		},
	}
}

// Load reads a reference profile from a YAML file.
func Load(path string) (*ReferenceProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	var p ReferenceProfile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", path, err)
	}
	return &p, nil
}

// Scalar returns the reference value for a provider-wide field name, or ""
// for unknown names.
func (p *ReferenceProfile) Scalar(name string) string {
	switch name {
	case FieldDEA:
		return p.DEA
	case FieldNPI:
		return p.NPI
	case FieldLicense:
		return p.License
	case FieldName:
		return p.Name
	}
	return ""
}

// SetScalar writes a provider-wide field. Unknown names are ignored.
func (p *ReferenceProfile) SetScalar(name, value string) {
	switch name {
	case FieldDEA:
		p.DEA = value
	case FieldNPI:
		p.NPI = value
	case FieldLicense:
		p.License = value
	case FieldName:
		p.Name = value
	}
}

// LocationField resolves the reference value for one field of location index.
// Specialty is provider-wide; street is the combined address+suite line; fax
// has no reference value (it is rarely on file, so any non-empty form fax
// reads as a change). An index past the known locations resolves to "".
func (p *ReferenceProfile) LocationField(index int, name string) string {
	if index < 0 || index >= len(p.Locations) {
		return ""
	}
	loc := p.Locations[index]
	switch name {
	case LocClinic:
		return loc.Name
	case LocSpecialty:
		return p.Specialty
	case LocStreet:
		return loc.StreetLine()
	case LocCity:
		return loc.City
	case LocState:
		return loc.State
	case LocZip:
		return loc.Zip
	case LocTelephone:
		return loc.Phone
	case LocFax:
		return ""
	}
	return ""
}

// SetLocationField writes one field of location index back into the profile.
// Specialty updates the provider-wide specialty; street splits into
// address/suite; fax is never stored. Out-of-range indexes are ignored.
func (p *ReferenceProfile) SetLocationField(index int, name, value string) {
	if index < 0 || index >= len(p.Locations) {
		return
	}
	loc := &p.Locations[index]
	switch name {
	case LocClinic:
		loc.Name = value
	case LocSpecialty:
		p.Specialty = value
	case LocStreet:
		loc.SetStreetLine(value)
	case LocCity:
		loc.City = value
	case LocState:
		loc.State = value
	case LocZip:
		loc.Zip = value
	case LocTelephone:
		loc.Phone = value
	case LocFax:
		// Fax is not kept on the reference profile.
	}
}
