package detect

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"credfill/internal/profile"
)

func demoSnapshot(ref *profile.ReferenceProfile) map[string]string {
	snap := map[string]string{}
	for _, name := range profile.ScalarFieldNames {
		snap[name] = ref.Scalar(name)
	}
	for i := range ref.Locations {
		for _, name := range profile.LocationFieldNames {
			snap[profile.LocationKey(name, i).String()] = ref.LocationField(i, name)
		}
	}
	return snap
}

func TestDetectNoChanges(t *testing.T) {
	ref := profile.Demo()
	if got := Detect(demoSnapshot(ref), ref); got != nil {
		t.Fatalf("identical snapshot should detect nothing, got %v", got)
	}
}

func TestDetectFormattingOnlySuppressed(t *testing.T) {
	ref := profile.Demo()
	snap := demoSnapshot(ref)
	snap["nameDegree"] = "sophia garcia, md"
	snap["street-0"] = "824 Ostrum Street, Suite 5A"
	snap["clinic-0"] = "  HARMONY HEALTH CLINIC "

	if got := Detect(snap, ref); got != nil {
		t.Fatalf("formatting-only differences should be suppressed, got %v", got)
	}
}

func TestDetectScalarChange(t *testing.T) {
	ref := profile.Demo()
	snap := demoSnapshot(ref)
	snap["deaNumber"] = "XX9999999"

	got := Detect(snap, ref)
	if len(got) != 1 {
		t.Fatalf("want 1 change, got %v", got)
	}
	want := Change{
		Key:            profile.ScalarKey(profile.FieldDEA),
		Type:           TypeScalar,
		LocationIndex:  -1,
		CurrentValue:   "XX9999999",
		ReferenceValue: "CB3028475",
		DisplayName:    "DEA Number",
	}
	if diff := cmp.Diff(want, got[0]); diff != "" {
		t.Errorf("change mismatch (-want +got):\n%s", diff)
	}
}

func TestDetectEmptyFieldIgnored(t *testing.T) {
	ref := profile.Demo()
	snap := demoSnapshot(ref)
	snap["deaNumber"] = ""
	snap["city-0"] = "   "

	if got := Detect(snap, ref); got != nil {
		t.Fatalf("empty fields should not raise changes, got %v", got)
	}
}

func TestDetectFaxAlwaysFlagged(t *testing.T) {
	ref := profile.Demo()
	snap := demoSnapshot(ref)
	snap["fax-0"] = "412-111-2222"

	got := Detect(snap, ref)
	if len(got) != 1 {
		t.Fatalf("want 1 change, got %v", got)
	}
	c := got[0]
	if c.Key.Name != profile.LocFax || c.ReferenceValue != "" {
		t.Errorf("fax change should carry empty reference: %+v", c)
	}
}

func TestDetectSpecialtyProviderWide(t *testing.T) {
	ref := profile.Demo()
	snap := demoSnapshot(ref)
	// Both groups show the same provider-wide specialty; editing one group's
	// copy flags only that group.
	snap["specialty-1"] = "Dermatology"

	got := Detect(snap, ref)
	if len(got) != 1 {
		t.Fatalf("want 1 change, got %v", got)
	}
	if got[0].Key.String() != "specialty-1" || got[0].ReferenceValue != "Ophthalmology" {
		t.Errorf("unexpected change: %+v", got[0])
	}
}

func TestDetectNewLocation(t *testing.T) {
	ref := profile.Demo()
	snap := demoSnapshot(ref)
	snap["clinic-2"] = "Brand New Clinic"
	snap["city-2"] = "Erie"
	snap["fax-2"] = ""

	got := Detect(snap, ref)
	if len(got) != 2 {
		t.Fatalf("want 2 changes for the new group, got %v", got)
	}
	for _, c := range got {
		if !c.NewLocation {
			t.Errorf("change in unknown group should be NewLocation: %+v", c)
		}
		if c.ReferenceValue != "" {
			t.Errorf("new-location change should have no reference: %+v", c)
		}
	}
}

func TestSameChangeSet(t *testing.T) {
	a := ChangeSet{
		{Key: profile.ScalarKey(profile.FieldDEA), Type: TypeScalar, CurrentValue: "X"},
		{Key: profile.LocationKey(profile.LocCity, 0), Type: TypeLocation, CurrentValue: "Erie"},
	}
	b := ChangeSet{
		{Key: profile.LocationKey(profile.LocCity, 0), Type: TypeLocation, CurrentValue: "Erie"},
		{Key: profile.ScalarKey(profile.FieldDEA), Type: TypeScalar, CurrentValue: "X"},
	}
	if !SameChangeSet(a, b) {
		t.Error("order should not matter")
	}

	c := ChangeSet{
		{Key: profile.ScalarKey(profile.FieldDEA), Type: TypeScalar, CurrentValue: "Y"},
		{Key: profile.LocationKey(profile.LocCity, 0), Type: TypeLocation, CurrentValue: "Erie"},
	}
	if SameChangeSet(a, c) {
		t.Error("different values should differ")
	}

	// nil never equals anything, including nil: "nothing detected" is not a
	// comparable change set.
	if SameChangeSet(nil, nil) || SameChangeSet(a, nil) || SameChangeSet(nil, a) {
		t.Error("nil change sets must never compare equal")
	}

	// Identity is a set, so duplicate entries collapse.
	dup := ChangeSet{a[0], a[0], a[1]}
	if !SameChangeSet(dup, a) {
		t.Error("duplicate entries should collapse under set identity")
	}
}

func TestPreviousValue(t *testing.T) {
	ref := profile.Demo()

	scalar := Change{Key: profile.ScalarKey(profile.FieldLicense), Type: TypeScalar}
	if got := PreviousValue(scalar, ref); got != "PA56789" {
		t.Errorf("scalar previous = %q", got)
	}

	loc := Change{Key: profile.LocationKey(profile.LocStreet, 0), Type: TypeLocation, LocationIndex: 0}
	if got := PreviousValue(loc, ref); got != "824 Ostrum St, Ste. 5A" {
		t.Errorf("street previous = %q", got)
	}

	nl := Change{Key: profile.LocationKey(profile.LocCity, 5), Type: TypeLocation, LocationIndex: 5, NewLocation: true}
	if got := PreviousValue(nl, ref); got != "" {
		t.Errorf("new-location previous = %q", got)
	}
}
