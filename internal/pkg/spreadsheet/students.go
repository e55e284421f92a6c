// Package spreadsheet lê planilhas .xlsx de importação de alunos.
package spreadsheet

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"goescola/internal/domain"
	apperror "goescola/internal/errors"
)

// Cabeçalhos esperados na primeira linha (a ordem das colunas é livre).
const (
	HeaderName      = "Nome"
	HeaderCPF       = "CPF"
	HeaderEmail     = "Email"
	HeaderBirthDate = "DataNascimento"
)

// Formatos aceitos para a data de nascimento.
var birthDateLayouts = []string{
	domain.DateLayout,
	"02/01/2006",
	"2/1/2006",
	"01-02-06",
	time.RFC3339,
}

// StudentRow é uma linha da planilha já convertida para o payload de cadastro.
// ParseErrors lista problemas de leitura da linha (ex.: data em formato desconhecido).
type StudentRow struct {
	Row         int
	Input       domain.StudentInput
	ParseErrors []string
}

// ReadStudents lê a primeira aba da planilha. Linhas totalmente vazias são ignoradas.
func ReadStudents(r io.Reader) ([]StudentRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperror.NewValidationError("Arquivo inválido. Envie uma planilha .xlsx.")
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, apperror.NewValidationError("A planilha não contém abas.")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, apperror.NewInternalError("falha ao ler as linhas da planilha", err)
	}
	if len(rows) == 0 {
		return nil, apperror.NewValidationError("A planilha está vazia.")
	}

	cols, err := columnIndex(rows[0])
	if err != nil {
		return nil, err
	}

	result := make([]StudentRow, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if isBlank(row) {
			continue
		}

		sr := StudentRow{
			Row: i + 2, // numeração da planilha, contando o cabeçalho
			Input: domain.StudentInput{
				Name:  cell(row, cols[HeaderName]),
				CPF:   cell(row, cols[HeaderCPF]),
				Email: cell(row, cols[HeaderEmail]),
			},
		}

		if raw := cell(row, cols[HeaderBirthDate]); raw != "" {
			d, err := parseBirthDate(raw)
			if err != nil {
				sr.ParseErrors = append(sr.ParseErrors, fmt.Sprintf("birth_date: data em formato desconhecido (%s).", raw))
			} else {
				sr.Input.BirthDate = d
			}
		}

		result = append(result, sr)
	}

	return result, nil
}

func columnIndex(header []string) (map[string]int, error) {
	cols := map[string]int{}
	for i, h := range header {
		for _, want := range []string{HeaderName, HeaderCPF, HeaderEmail, HeaderBirthDate} {
			if strings.EqualFold(strings.TrimSpace(h), want) {
				cols[want] = i
			}
		}
	}

	var missing []apperror.FieldError
	for _, want := range []string{HeaderName, HeaderCPF, HeaderEmail, HeaderBirthDate} {
		if _, ok := cols[want]; !ok {
			missing = append(missing, apperror.FieldError{Field: want, Message: "Coluna ausente no cabeçalho."})
		}
	}
	if len(missing) > 0 {
		return nil, apperror.NewFieldValidationError("cabeçalho da planilha inválido.", missing...)
	}
	return cols, nil
}

func cell(row []string, idx int) string {
	if idx < len(row) {
		return strings.TrimSpace(row[idx])
	}
	return ""
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseBirthDate(raw string) (domain.Date, error) {
	for _, layout := range birthDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return domain.NewDate(t), nil
		}
	}
	return domain.Date{}, fmt.Errorf("formato de data desconhecido: %q", raw)
}
