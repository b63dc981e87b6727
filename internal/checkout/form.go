package checkout

import (
	"errors"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ariefcatur/go-storefront.git/internal/orders"
)

type Method string

const (
	MethodCard        Method = "tarjeta"
	MethodMercadoPago Method = "mercadopago"
	MethodTransfer    Method = "transferencia"
)

// Form is the checkout form as posted by the browser. Card fields are only
// checked when the method is MethodCard and are never persisted.
type Form struct {
	Name    string `json:"nombre" validate:"nonblank"`
	Address string `json:"direccion" validate:"nonblank"`
	City    string `json:"ciudad" validate:"nonblank"`
	Phone   string `json:"telefono" validate:"digits=9"`
	Method  Method `json:"metodoPago" validate:"oneof=tarjeta mercadopago transferencia"`

	Card `validate:"-"`
}

type Card struct {
	Number string `json:"cardNumber" validate:"digits=16"`
	Expiry string `json:"expiry" validate:"expiry"`
	Holder string `json:"cardName" validate:"nonblank"`
	CVV    string `json:"cvv" validate:"digits=3"`
}

func (f Form) Shipping() orders.Shipping {
	return orders.Shipping{
		Name:    strings.TrimSpace(f.Name),
		Address: strings.TrimSpace(f.Address),
		City:    strings.TrimSpace(f.City),
		Phone:   f.Phone,
	}
}

var messages = map[string]string{
	"nombre":     "Ingrese el nombre de quien recibe.",
	"direccion":  "Ingrese la dirección de envío.",
	"ciudad":     "Ingrese la ciudad.",
	"telefono":   "Ingrese un teléfono válido de 9 dígitos.",
	"metodoPago": "Seleccione un método de pago válido.",
	"cardNumber": "Ingrese 16 dígitos de la tarjeta.",
	"expiry":     "Formato expiración MM/YY o MM/YYYY.",
	"cardName":   "Ingrese el nombre del titular.",
	"cvv":        "Ingrese el CVV de 3 dígitos.",
}

var expiryRe = regexp.MustCompile(`^(0[1-9]|1[0-2])/(\d{2}|\d{4})$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("digits", digits)
	_ = v.RegisterValidation("expiry", func(fl validator.FieldLevel) bool {
		return expiryRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("nonblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// digits=N: exactly N ASCII digits.
func digits(fl validator.FieldLevel) bool {
	n, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	s := fl.Field().String()
	if len(s) != n {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Validate returns field-keyed messages; nil means the form is acceptable.
func (f Form) Validate() map[string]string {
	out := map[string]string{}
	collect(out, validate.Struct(f))
	if f.Method == MethodCard {
		collect(out, validate.Struct(f.Card))
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func collect(out map[string]string, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return
	}
	for _, fe := range verrs {
		field := fe.Field()
		if msg, ok := messages[field]; ok {
			out[field] = msg
		} else {
			out[field] = "Campo inválido."
		}
	}
}
