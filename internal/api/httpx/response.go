// Package httpx reúne o tratamento de respostas e parâmetros comuns a todos os handlers.
package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"goescola/internal/domain"
	apperror "goescola/internal/errors"
	"goescola/internal/pkg/logger"
)

// WriteJSON serializa data com o status informado. data nil produz corpo vazio.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	if data == nil {
		w.WriteHeader(status)
		return nil
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteError traduz err para a resposta padronizada {code, category, message, errors}.
// Falhas 5xx são registradas com o erro original; o cliente recebe apenas a mensagem genérica.
func WriteError(w http.ResponseWriter, r *http.Request, log logger.Logger, err error) {
	status, category, message := apperror.MapToHTTPStatus(err)

	if status >= http.StatusInternalServerError {
		log.Error(fmt.Sprintf("Erro de Servidor: %s %s %s", category, r.Method, r.URL.Path), err)
	} else {
		log.Debug(fmt.Sprintf("Requisição rejeitada com status %d. Categoria: %s", status, category), map[string]interface{}{"path": r.URL.Path})
	}

	resp := domain.ErrorResponse{
		Code:     status,
		Category: category,
		Message:  message,
		Errors:   apperror.FieldsOf(err),
	}

	if encErr := WriteJSON(w, status, resp); encErr != nil {
		log.Error("Falha ao codificar JSON de erro", encErr)
	}
}

// HandleServiceResponse envia data com successStatus, ou o erro padronizado se err != nil.
func HandleServiceResponse(w http.ResponseWriter, r *http.Request, log logger.Logger, data interface{}, err error, successStatus int) {
	if err != nil {
		WriteError(w, r, log, err)
		return
	}
	if encErr := WriteJSON(w, successStatus, data); encErr != nil {
		log.Error("Falha ao codificar JSON de resposta", encErr)
	}
}

// Created responde 201 com o header Location apontando para o recurso criado.
func Created(w http.ResponseWriter, r *http.Request, log logger.Logger, location string, data interface{}) {
	w.Header().Set("Location", location)
	HandleServiceResponse(w, r, log, data, nil, http.StatusCreated)
}

// NoContent responde 204.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// DecodeJSON lê o corpo da requisição em dst.
func DecodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return apperror.NewValidationError("Payload inválido. O corpo da requisição está vazio.")
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.NewValidationError("Payload inválido. Verifique o formato JSON.")
	}
	return nil
}

// PageFromQuery lê os parâmetros page e size. Valores ausentes usam os padrões;
// valores não numéricos são rejeitados. A normalização fica a cargo de PageRequest.
func PageFromQuery(r *http.Request, maxSize int) (domain.PageRequest, error) {
	q := r.URL.Query()

	page, err := intParam(q.Get("page"), "page")
	if err != nil {
		return domain.PageRequest{}, err
	}
	size, err := intParam(q.Get("size"), "size")
	if err != nil {
		return domain.PageRequest{}, err
	}

	return domain.PageRequest{Page: page, Size: size}.Normalize(maxSize), nil
}

func intParam(raw, name string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.NewFieldValidationError("parâmetro de consulta inválido.",
			apperror.FieldError{Field: name, Message: "Deve ser um número inteiro."})
	}
	return n, nil
}
