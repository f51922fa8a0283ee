package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bundle-storefront/internal/core/domain"
)

func TestValidatePhone(t *testing.T) {
	valid := []string{"0201234567", "0551234567", "0241234567", "0301234567", "0961234567", " 020 123 4567 "}
	for _, p := range valid {
		assert.True(t, ValidatePhone(p), "expected %q to be valid", p)
	}

	invalid := []string{
		"020123456",   // 9 digits
		"02012345678", // 11 digits
		"0101234567",  // second digit 1
		"0401234567",  // second digit 4
		"0801234567",  // second digit 8
		"2201234567",  // no leading 0
		"02012345a7",
		"+233201234567",
		"",
	}
	for _, p := range invalid {
		assert.False(t, ValidatePhone(p), "expected %q to be invalid", p)
	}
}

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("ama@example.com"))
	assert.True(t, ValidateEmail(" ama.owusu@mail.example.com.gh "))
	assert.False(t, ValidateEmail("ama@example"))
	assert.False(t, ValidateEmail("ama example.com"))
	assert.False(t, ValidateEmail("@example.com"))
	assert.False(t, ValidateEmail(""))
}

func TestValidateForm(t *testing.T) {
	ok := Form{Network: "mtn", Bundle: "2gb", Phone: "0201234567", Email: "ama@example.com", FullName: "Ama Owusu"}
	require.NoError(t, ValidateForm(ok))

	bad := ok
	bad.Phone = "020123456"
	bad.FullName = "  "
	err := ValidateForm(bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidationFailed)

	var fe *FormError
	require.ErrorAs(t, err, &fe)
	require.Len(t, fe.Fields, 2)
	assert.Equal(t, "phone", fe.Fields[0].Field)
	assert.Equal(t, MsgPhoneInvalid, fe.Message())
	assert.Equal(t, "full_name", fe.Fields[1].Field)
}

func TestValidateForm_MissingSelections(t *testing.T) {
	err := ValidateForm(Form{Phone: "0201234567", Email: "ama@example.com", FullName: "Ama"})

	var fe *FormError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, MsgNetworkMissing, fe.Fields[0].Message)
	assert.Equal(t, MsgBundleMissing, fe.Fields[1].Message)
}

func TestPhoneMessage(t *testing.T) {
	assert.Equal(t, MsgPhoneRequired, PhoneMessage(" "))
	assert.Equal(t, MsgPhoneInvalid, PhoneMessage("123"))
	assert.Empty(t, PhoneMessage("0551234567"))
}

type phoneHolder struct {
	Phone  string `validate:"required,gh_phone"`
	Status string `validate:"order_status"`
}

func TestStruct_CustomTags(t *testing.T) {
	v := NewStructValidator()

	assert.NoError(t, Struct(v, phoneHolder{Phone: "0201234567"}))

	err := Struct(v, phoneHolder{Phone: "0201234567", Status: "refunded"})
	assert.ErrorIs(t, err, domain.ErrValidationFailed)
	assert.Contains(t, err.Error(), "Status")

	err = Struct(v, phoneHolder{Phone: "12345"})
	assert.ErrorIs(t, err, domain.ErrValidationFailed)
}
