package domain

// Enrollment associa um aluno a uma turma. O par (StudentID, ClassID) é único.
type Enrollment struct {
	ID             string `json:"id"`
	StudentID      string `json:"student_id"`
	ClassID        string `json:"class_id"`
	EnrollmentDate Date   `json:"enrollment_date"`
}

// EnrollmentDetail é a visão de leitura com o aluno e a turma completos.
type EnrollmentDetail struct {
	ID             string  `json:"id"`
	Student        Student `json:"student"`
	Class          Class   `json:"class"`
	EnrollmentDate Date    `json:"enrollment_date" swaggertype:"string" example:"2024-02-01"`
}

// EnrollmentInput é o payload de criação e atualização de matrícula.
type EnrollmentInput struct {
	StudentID      string `json:"student_id" validate:"required,uuid"`
	ClassID        string `json:"class_id" validate:"required,uuid"`
	EnrollmentDate Date   `json:"enrollment_date" validate:"required,notfuture" swaggertype:"string" example:"2024-02-01"`
}

// EnrollmentFilter restringe a listagem a um aluno ou a uma turma.
// A ordenação depende do filtro: geral por aluno e turma, por aluno pelo nome
// da turma, por turma pelo nome do aluno.
type EnrollmentFilter struct {
	StudentID string
	ClassID   string
	PageRequest
}

// Mensagens de regra de negócio da matrícula, compartilhadas entre serviço e repositório.
const (
	MsgEnrollmentStudentNotFound = "Aluno não encontrado. Cadastre o aluno antes de efetuar a matrícula."
	MsgEnrollmentClassNotFound   = "Turma não encontrada. Cadastre a turma antes de efetuar a matrícula."
	MsgAlreadyEnrolled           = "O aluno já está matriculado nesta turma."
)
