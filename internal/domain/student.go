package domain

import "time"

// Student representa um aluno cadastrado.
type Student struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CPF       string    `json:"cpf"` // somente dígitos
	Email     string    `json:"email"`
	BirthDate Date      `json:"birth_date" swaggertype:"string" example:"2005-03-14"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StudentInput é o payload de cadastro de aluno.
type StudentInput struct {
	Name      string `json:"name" validate:"required,min=3,max=100,personname"`
	CPF       string `json:"cpf" validate:"required,cpf"`
	Email     string `json:"email" validate:"required,email,max=150"`
	BirthDate Date   `json:"birth_date" validate:"required,birthdate" swaggertype:"string" example:"2005-03-14"`
}

// StudentUpdate é o payload de atualização. O CPF não é alterável.
type StudentUpdate struct {
	Name      string `json:"name" validate:"required,min=3,max=100,personname"`
	Email     string `json:"email" validate:"required,email,max=150"`
	BirthDate Date   `json:"birth_date" validate:"required,birthdate" swaggertype:"string" example:"2005-03-14"`
}

// ImportRowResult descreve o resultado de uma linha da planilha de importação.
type ImportRowResult struct {
	Row     int      `json:"row"`
	Name    string   `json:"name"`
	Success bool     `json:"success"`
	ID      string   `json:"id,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// ImportReport resume uma importação de alunos.
type ImportReport struct {
	Total    int               `json:"total"`
	Imported int               `json:"imported"`
	Failed   int               `json:"failed"`
	Rows     []ImportRowResult `json:"rows"`
}
