package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"

	"goescola/internal/domain"
	apperror "goescola/internal/errors"
)

// Idade máxima aceita para data de nascimento.
const maxAgeYears = 120

var personNameRegex = regexp.MustCompile(`^[A-Za-zÀ-ú\s]+$`)

// Validator é a porta de validação usada pelos serviços.
type Validator interface {
	Struct(s interface{}) error
}

// PlaygroundValidator implementa Validator sobre go-playground/validator.
// Os erros são devolvidos como *apperror.ValidationError com a lista de campos.
type PlaygroundValidator struct {
	v   *validator.Validate
	now func() time.Time
}

// New registra as regras customizadas (cpf, personname, birthdate, notfuture,
// strongpassword) e usa o nome JSON dos campos nas mensagens.
func New() *PlaygroundValidator {
	pv := &PlaygroundValidator{v: validator.New(), now: time.Now}

	pv.v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	// domain.Date é validada como time.Time; zero vira nil para acionar "required".
	pv.v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		d, ok := field.Interface().(domain.Date)
		if !ok || d.IsZero() {
			return nil
		}
		return d.Time
	}, domain.Date{})

	_ = pv.v.RegisterValidation("cpf", func(fl validator.FieldLevel) bool {
		return IsValidCPF(fl.Field().String())
	})
	_ = pv.v.RegisterValidation("personname", func(fl validator.FieldLevel) bool {
		return personNameRegex.MatchString(fl.Field().String())
	})
	_ = pv.v.RegisterValidation("birthdate", func(fl validator.FieldLevel) bool {
		t, ok := fl.Field().Interface().(time.Time)
		return ok && isValidBirthDate(t, pv.now())
	})
	_ = pv.v.RegisterValidation("notfuture", func(fl validator.FieldLevel) bool {
		t, ok := fl.Field().Interface().(time.Time)
		return ok && !dayOf(t).After(dayOf(pv.now()))
	})
	_ = pv.v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return IsStrongPassword(fl.Field().String())
	})

	return pv
}

// Struct valida s e traduz as falhas para mensagens em português.
func (pv *PlaygroundValidator) Struct(s interface{}) error {
	err := pv.v.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperror.NewValidationError(err.Error())
	}

	fields := make([]apperror.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apperror.FieldError{
			Field:   fe.Field(),
			Message: messageFor(fe),
		})
	}
	return apperror.NewFieldValidationError("dados inválidos.", fields...)
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "O campo é obrigatório."
	case "min":
		if fe.Kind() == reflect.String {
			return "O campo deve ter no mínimo " + fe.Param() + " caracteres."
		}
		return "O valor mínimo é " + fe.Param() + "."
	case "max":
		if fe.Kind() == reflect.String {
			return "O campo deve ter no máximo " + fe.Param() + " caracteres."
		}
		return "O valor máximo é " + fe.Param() + "."
	case "email":
		return "Email inválido."
	case "uuid":
		return "O identificador deve ser um UUID válido."
	case "cpf":
		return "CPF inválido."
	case "personname":
		return "O nome deve conter apenas letras e espaços."
	case "birthdate":
		return "A data de nascimento deve estar no passado e indicar idade de até 120 anos."
	case "notfuture":
		return "A data não pode estar no futuro."
	case "strongpassword":
		return "A senha deve ter de 8 a 72 caracteres, com letra maiúscula, letra minúscula, número e caractere especial."
	case "eqfield":
		return "A confirmação não confere."
	default:
		return "Valor inválido (" + fe.Tag() + ")."
	}
}

// dayOf reduz t à data de calendário, sem horário nem fuso.
func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func isValidBirthDate(birth, now time.Time) bool {
	if !birth.Before(now) {
		return false
	}
	return !birth.Before(now.AddDate(-maxAgeYears, 0, 0))
}

// NormalizeCPF remove a pontuação permitida ('.', '-' e espaços).
// Outros caracteres são preservados para que a validação os rejeite.
func NormalizeCPF(cpf string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '-', ' ':
			return -1
		}
		return r
	}, cpf)
}

// IsValidCPF verifica formato e dígitos verificadores de um CPF.
// Sequências de um único dígito repetido são rejeitadas.
func IsValidCPF(cpf string) bool {
	cpf = NormalizeCPF(cpf)
	if len(cpf) != 11 {
		return false
	}

	digits := make([]int, 11)
	allEqual := true
	for i, r := range cpf {
		if r < '0' || r > '9' {
			return false
		}
		digits[i] = int(r - '0')
		if digits[i] != digits[0] {
			allEqual = false
		}
	}
	if allEqual {
		return false
	}

	return checkDigit(digits[:9]) == digits[9] && checkDigit(digits[:10]) == digits[10]
}

// checkDigit calcula o dígito verificador com pesos decrescentes a partir de len+1.
func checkDigit(digits []int) int {
	sum := 0
	weight := len(digits) + 1
	for _, d := range digits {
		sum += d * weight
		weight--
	}
	rem := sum % 11
	if rem < 2 {
		return 0
	}
	return 11 - rem
}

// MaxPasswordBytes é o limite de entrada do bcrypt.
const MaxPasswordBytes = 72

// IsStrongPassword exige ao menos 8 caracteres com maiúscula, minúscula, dígito e símbolo,
// e no máximo MaxPasswordBytes bytes.
func IsStrongPassword(pw string) bool {
	if len([]rune(pw)) < 8 || len(pw) > MaxPasswordBytes {
		return false
	}
	var upper, lower, digit, special bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	return upper && lower && digit && special
}
