package review

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credfill/internal/form"
	"credfill/internal/panel"
	"credfill/internal/profile"
)

// fillForm writes the full reference profile into the form and marks every
// field touched, the state an autofill run leaves behind.
func fillForm(f *form.MemoryForm, ref *profile.ReferenceProfile) {
	for f.GroupCount() < len(ref.Locations) {
		f.AddGroup()
	}
	for _, name := range profile.ScalarFieldNames {
		key := profile.ScalarKey(name)
		_ = f.SetValueQuiet(key, ref.Scalar(name))
		f.MarkTouched(key)
	}
	for i := range ref.Locations {
		for _, name := range profile.LocationFieldNames {
			key := profile.LocationKey(name, i)
			_ = f.SetValueQuiet(key, ref.LocationField(i, name))
			f.MarkTouched(key)
		}
	}
}

func newFixture(t *testing.T) (*form.MemoryForm, *profile.ReferenceProfile, *panel.Session, *Workflow) {
	t.Helper()
	f := form.NewMemoryForm()
	ref := profile.Demo()
	s := panel.NewSession(nil, nil)
	s.SignIn()
	s.Show(panel.ViewLocationPicker, nil)
	fillForm(f, ref)
	w := NewWorkflow(f, ref, s, 0, 0, nil)
	return f, ref, s, w
}

func edit(f *form.MemoryForm, key profile.FieldKey, value string) {
	_ = f.SetValueQuiet(key, value)
	f.MarkTouched(key)
}

func TestEditOpensReview(t *testing.T) {
	f, _, s, w := newFixture(t)

	edit(f, profile.LocationKey(profile.LocTelephone, 0), "(412) 555-0000")
	w.Evaluate()

	require.Equal(t, panel.ViewChangeReview, s.View())
	props := w.Proposals()
	require.Len(t, props, 1)
	assert.Equal(t, "Telephone Number", props[0].Change.DisplayName)
	assert.Equal(t, "412-239-9837", props[0].Previous)
	assert.Equal(t, "(412) 555-0000", props[0].Proposed)
}

func TestFormattingOnlyEditIsQuiet(t *testing.T) {
	f, _, s, w := newFixture(t)

	edit(f, profile.LocationKey(profile.LocStreet, 0), "824 Ostrum Street, Suite 5A")
	w.Evaluate()

	assert.Equal(t, panel.ViewLocationPicker, s.View(),
		"a formatting-only difference must not open the review")
}

func TestRevertDismissesOpenReview(t *testing.T) {
	f, ref, s, w := newFixture(t)

	key := profile.LocationKey(profile.LocCity, 0)
	edit(f, key, "Erie")
	w.Evaluate()
	require.Equal(t, panel.ViewChangeReview, s.View())

	// The user types the reference value back; the review dismisses itself.
	edit(f, key, ref.Locations[0].City)
	w.Evaluate()
	assert.Equal(t, panel.ViewLocationPicker, s.View())
}

func TestRepeatResultDoesNotRerender(t *testing.T) {
	f, _, s, w := newFixture(t)

	edit(f, profile.ScalarKey(profile.FieldDEA), "XX9999999")
	w.Evaluate()
	require.Equal(t, panel.ViewChangeReview, s.View())
	first := w.Proposals()

	// Same detection result again: the open panel is left alone.
	w.Evaluate()
	assert.Equal(t, panel.ViewChangeReview, s.View())
	assert.Equal(t, first, w.Proposals())
}

func TestSuppressedDuringAutofill(t *testing.T) {
	_, _, s, w := newFixture(t)

	s.SetAutofillInProgress(true)
	w.FieldEdited(profile.ScalarKey(profile.FieldDEA), "XX9999999")
	w.Evaluate()
	assert.NotEqual(t, panel.ViewChangeReview, s.View())
	s.SetAutofillInProgress(false)
}

func TestValidate(t *testing.T) {
	tel := profile.LocationKey(profile.LocTelephone, 0)

	assert.Nil(t, Validate(tel, "Telephone Number", "(412) 555-0000"))
	assert.Nil(t, Validate(tel, "Telephone Number", "4125550000"))

	err := Validate(tel, "Telephone Number", "123")
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "10 digits")

	err = Validate(tel, "Telephone Number", "412-555-00000")
	require.NotNil(t, err, "11 digits must fail")

	city := profile.LocationKey(profile.LocCity, 0)
	err = Validate(city, "City", "   ")
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "empty")
	assert.Nil(t, Validate(city, "City", "Erie"))
}

func TestConfirmAllAppliesToFormAndProfile(t *testing.T) {
	f, ref, s, w := newFixture(t)

	edit(f, profile.LocationKey(profile.LocTelephone, 0), "(412) 555-0000")
	edit(f, profile.LocationKey(profile.LocStreet, 0), "111 New St, Ste 9")
	edit(f, profile.LocationKey(profile.LocSpecialty, 1), "Dermatology")
	w.Evaluate()
	require.Equal(t, panel.ViewChangeReview, s.View())

	errs := w.ConfirmAll(nil)
	require.Empty(t, errs)

	assert.Equal(t, "(412) 555-0000", ref.Locations[0].Phone)
	assert.Equal(t, "111 New St", ref.Locations[0].Address)
	assert.Equal(t, "Ste 9", ref.Locations[0].Suite)
	assert.Equal(t, "Dermatology", ref.Specialty, "specialty applies provider-wide")

	assert.Equal(t, panel.ViewChangeConfirmed, s.View())
	assert.True(t, s.ConfirmationShown())
	assert.False(t, s.ReviewInProgress(), "apply guard must clear")
}

func TestConfirmedFaxIsNotStoredButShortcuts(t *testing.T) {
	f, ref, s, w := newFixture(t)

	edit(f, profile.LocationKey(profile.LocFax, 0), "412-111-2222")
	w.Evaluate()
	require.Equal(t, panel.ViewChangeReview, s.View())

	require.Empty(t, w.ConfirmAll(nil))
	assert.Equal(t, "", ref.LocationField(0, profile.LocFax),
		"fax is never written to the profile")

	// The fax stays flagged on re-detection, but an identical, already
	// confirmed set jumps straight to the confirmation view.
	w.Evaluate()
	assert.Equal(t, panel.ViewChangeConfirmed, s.View())
}

func TestConfirmAllValidationBlocksApply(t *testing.T) {
	f, ref, s, w := newFixture(t)

	edit(f, profile.LocationKey(profile.LocTelephone, 0), "123")
	w.Evaluate()
	require.Equal(t, panel.ViewChangeReview, s.View())

	errs := w.ConfirmAll(nil)
	require.Len(t, errs, 1)
	assert.Equal(t, "412-239-9837", ref.Locations[0].Phone,
		"a failed validation must not touch the profile")
	assert.Equal(t, panel.ViewChangeReview, s.View())
}

func TestConfirmAllWithEdits(t *testing.T) {
	f, ref, _, w := newFixture(t)

	tel := profile.LocationKey(profile.LocTelephone, 0)
	edit(f, tel, "123")
	w.Evaluate()

	// The invalid detected value is corrected on the review card.
	errs := w.ConfirmAll(map[string]string{tel.String(): "(412) 555-0000"})
	require.Empty(t, errs)
	assert.Equal(t, "(412) 555-0000", ref.Locations[0].Phone)

	got, err := f.Value(tel)
	require.NoError(t, err)
	assert.Equal(t, "(412) 555-0000", got, "the edited value lands on the form too")
}

func TestCancelKeepsTypedInput(t *testing.T) {
	f, _, s, w := newFixture(t)

	clinic := profile.LocationKey(profile.LocClinic, 0)
	edit(f, clinic, "Other Clinic")
	w.Evaluate()
	require.Equal(t, panel.ViewChangeReview, s.View())

	w.Cancel()
	got, err := f.Value(clinic)
	require.NoError(t, err)
	assert.Equal(t, "Other Clinic", got,
		"dismissing the review must not overwrite what the user typed")
	assert.Equal(t, panel.ViewLocationPicker, s.View())

	// The dismissed set is forgotten, so the still-present drift re-detects.
	w.Evaluate()
	assert.Equal(t, panel.ViewChangeReview, s.View())
}

func TestResetForgetsConfirmedSet(t *testing.T) {
	f, _, s, w := newFixture(t)

	edit(f, profile.LocationKey(profile.LocFax, 0), "412-111-2222")
	w.Evaluate()
	require.Empty(t, w.ConfirmAll(nil))
	require.Equal(t, panel.ViewChangeConfirmed, s.View())

	// A fresh session forgets what was confirmed: the same detection result
	// goes through the full review again instead of the shortcut.
	w.Reset()
	w.Evaluate()
	assert.Equal(t, panel.ViewChangeReview, s.View())
}

func TestEvaluateNowFlushesPendingDebounce(t *testing.T) {
	f := form.NewMemoryForm()
	ref := profile.Demo()
	s := panel.NewSession(nil, nil)
	s.SignIn()
	s.Show(panel.ViewLocationPicker, nil)
	fillForm(f, ref)
	w := NewWorkflow(f, ref, s, time.Hour, 0, nil)

	w.FieldEdited(profile.LocationKey(profile.LocCity, 0), "Erie")
	_ = f.SetValueQuiet(profile.LocationKey(profile.LocCity, 0), "Erie")
	assert.Equal(t, panel.ViewLocationPicker, s.View(),
		"the debounced evaluation must still be pending")

	w.EvaluateNow()
	assert.Equal(t, panel.ViewChangeReview, s.View())
	w.Detach()
}

func TestNewLocationChange(t *testing.T) {
	f, _, s, w := newFixture(t)

	f.AddGroup() // index 2, beyond the two reference locations
	edit(f, profile.LocationKey(profile.LocClinic, 2), "Brand New Clinic")
	w.Evaluate()

	require.Equal(t, panel.ViewChangeReview, s.View())
	props := w.Proposals()
	require.Len(t, props, 1)
	assert.True(t, props[0].Change.NewLocation)
	assert.Equal(t, "", props[0].Previous)

	// Confirming a new-location change applies to the form only; there is no
	// profile slot to update.
	require.Empty(t, w.ConfirmAll(nil))
}
