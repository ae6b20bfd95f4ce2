package usecase

import (
	"errors"
	"fmt"

	"github.com/xavierca1/ligue-engagement/internal/entity"
)

type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

type TechnicalError struct {
	Code    string
	Message string
}

func (e *TechnicalError) Error() string {
	return e.Message
}

func IsTechnicalError(err error) bool {
	var te *TechnicalError
	return errors.As(err, &te)
}

// InvalidTransitionError: aresta não existe no grafo de estágios.
// O chamador pode decidir usar ForceTransition deliberadamente.
type InvalidTransitionError struct {
	From entity.Stage
	To   entity.Stage
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("transição inválida: %s -> %s", e.From, e.To)
}

func IsInvalidTransition(err error) bool {
	var ite *InvalidTransitionError
	return errors.As(err, &ite)
}
