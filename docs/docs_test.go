package docs_test

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag"

	_ "goescola/docs"
	"goescola/internal/domain"
	apperror "goescola/internal/errors"
)

type definition struct {
	Required   []string                   `json:"required"`
	Properties map[string]json.RawMessage `json:"properties"`
}

type property struct {
	Type string `json:"type"`
}

var dateType = reflect.TypeOf(domain.Date{})

// Cada definição publicada em /swagger/ deve refletir as tags json e validate do tipo.
func TestDefinitionsMatchDomainTypes(t *testing.T) {
	raw, err := swag.ReadDoc()
	require.NoError(t, err)

	var doc struct {
		Definitions map[string]definition `json:"definitions"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))

	types := map[string]interface{}{
		"domain.ErrorResponse":                       domain.ErrorResponse{},
		"errors.FieldError":                          apperror.FieldError{},
		"domain.Student":                             domain.Student{},
		"domain.StudentInput":                        domain.StudentInput{},
		"domain.StudentUpdate":                       domain.StudentUpdate{},
		"domain.ImportRowResult":                     domain.ImportRowResult{},
		"domain.ImportReport":                        domain.ImportReport{},
		"domain.Class":                               domain.Class{},
		"domain.ClassInput":                          domain.ClassInput{},
		"domain.EnrollmentInput":                     domain.EnrollmentInput{},
		"domain.EnrollmentDetail":                    domain.EnrollmentDetail{},
		"domain.User":                                domain.User{},
		"domain.RegisterRequest":                     domain.RegisterRequest{},
		"domain.LoginRequest":                        domain.LoginRequest{},
		"domain.LoginResponse":                       domain.LoginResponse{},
		"domain.ChangePasswordRequest":               domain.ChangePasswordRequest{},
		"domain.ResetPasswordRequest":                domain.ResetPasswordRequest{},
		"domain.PagedResult-domain_Student":          domain.PagedResult[domain.Student]{},
		"domain.PagedResult-domain_Class":            domain.PagedResult[domain.Class]{},
		"domain.PagedResult-domain_EnrollmentDetail": domain.PagedResult[domain.EnrollmentDetail]{},
	}

	for name, v := range types {
		t.Run(name, func(t *testing.T) {
			def, ok := doc.Definitions[name]
			require.True(t, ok, "definição ausente")

			fields, required, dates := describe(reflect.TypeOf(v))
			props := make([]string, 0, len(def.Properties))
			for p := range def.Properties {
				props = append(props, p)
			}

			assert.ElementsMatch(t, fields, props)
			assert.ElementsMatch(t, required, def.Required)
			for _, d := range dates {
				var p property
				require.NoError(t, json.Unmarshal(def.Properties[d], &p))
				assert.Equal(t, "string", p.Type, d)
			}
		})
	}
}

func TestDateExamplesUseCalendarFormat(t *testing.T) {
	raw, err := swag.ReadDoc()
	require.NoError(t, err)

	assert.Contains(t, raw, `"example": "2024-02-01"`)
	assert.NotContains(t, raw, "T00:00:00Z")
}

// describe devolve os nomes json, os obrigatórios e os campos domain.Date de t.
func describe(t reflect.Type) (fields, required, dates []string) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			continue
		}
		fields = append(fields, name)
		for _, rule := range strings.Split(f.Tag.Get("validate"), ",") {
			if rule == "required" {
				required = append(required, name)
			}
		}
		if f.Type == dateType {
			dates = append(dates, name)
		}
	}
	return fields, required, dates
}
