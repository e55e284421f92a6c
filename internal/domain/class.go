package domain

import "time"

// Class representa uma turma. EnrollmentCount é calculado na leitura.
type Class struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	EnrollmentCount int       `json:"enrollment_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ClassInput é o payload de criação e atualização de turma.
type ClassInput struct {
	Name        string `json:"name" validate:"required,min=3,max=100"`
	Description string `json:"description" validate:"required,min=10,max=500"`
}
