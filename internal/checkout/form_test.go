package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validForm(m Method) Form {
	return Form{
		Name:    "Ana Pérez",
		Address: "Av. Siempre Viva 742",
		City:    "Santiago",
		Phone:   "977827552",
		Method:  m,
		Card: Card{
			Number: "4111111111111111",
			Expiry: "04/26",
			Holder: "ANA PEREZ",
			CVV:    "123",
		},
	}
}

func TestValidFormPasses(t *testing.T) {
	for _, m := range []Method{MethodCard, MethodMercadoPago, MethodTransfer} {
		assert.Nil(t, validForm(m).Validate(), m)
	}
}

func TestPhoneMustHaveNineDigits(t *testing.T) {
	f := validForm(MethodTransfer)
	f.Phone = "97782755"
	assert.Equal(t, map[string]string{"telefono": "Ingrese un teléfono válido de 9 dígitos."}, f.Validate())

	f.Phone = "97782755a"
	assert.Contains(t, f.Validate(), "telefono")
}

func TestCardFields(t *testing.T) {
	cases := []struct {
		name  string
		edit  func(*Form)
		field string
	}{
		{"15 digit number", func(f *Form) { f.Card.Number = "123456789012345" }, "cardNumber"},
		{"month 13", func(f *Form) { f.Card.Expiry = "13/25" }, "expiry"},
		{"month 00", func(f *Form) { f.Card.Expiry = "00/25" }, "expiry"},
		{"no slash", func(f *Form) { f.Card.Expiry = "0426" }, "expiry"},
		{"three digit year", func(f *Form) { f.Card.Expiry = "04/202" }, "expiry"},
		{"blank holder", func(f *Form) { f.Card.Holder = "   " }, "cardName"},
		{"short cvv", func(f *Form) { f.Card.CVV = "12" }, "cvv"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := validForm(MethodCard)
			tc.edit(&f)
			errs := f.Validate()
			assert.Len(t, errs, 1)
			assert.Contains(t, errs, tc.field)
		})
	}
}

func TestExpiryLongYear(t *testing.T) {
	f := validForm(MethodCard)
	f.Card.Expiry = "12/2030"
	assert.Nil(t, f.Validate())
}

func TestCardIgnoredForOtherMethods(t *testing.T) {
	f := validForm(MethodTransfer)
	f.Card = Card{}
	assert.Nil(t, f.Validate())
}

func TestUnknownMethodAndBlankShipping(t *testing.T) {
	f := validForm("cheque")
	f.City = " "
	errs := f.Validate()
	assert.Contains(t, errs, "metodoPago")
	assert.Contains(t, errs, "ciudad")
}

func TestTransitions(t *testing.T) {
	assert.True(t, CanTransition(Loading, Ready))
	assert.True(t, CanTransition(Submitting, OrderPlaced))
	assert.True(t, CanTransition(ValidationFailed, Ready))
	assert.True(t, CanTransition(SubmitFailed, Ready))
	assert.False(t, CanTransition(Loading, Submitting))
	assert.False(t, CanTransition(OrderPlaced, Ready))
	assert.False(t, CanTransition(Redirected, Submitting))

	m := newMachine()
	assert.Error(t, m.to(OrderPlaced))
	assert.NoError(t, m.to(Ready))
	assert.Equal(t, []State{Loading, Ready}, m.trail)
}
