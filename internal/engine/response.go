package engine

import (
	"errors"
	"net/http"

	"github.com/Veraticus/spice-ledger/internal/common"
)

// Response is the result of every engine operation, tagged with an HTTP-style
// status so each presentation layer maps it the same way.
type Response[T any] struct {
	Data    T      `json:"data"`
	Err     error  `json:"-"`
	Message string `json:"error,omitempty"`
	Status  int    `json:"status"`
}

// OK reports whether the operation succeeded.
func (r Response[T]) OK() bool {
	return r.Status < http.StatusBadRequest
}

func ok[T any](data T) Response[T] {
	return Response[T]{Status: http.StatusOK, Data: data}
}

func created[T any](data T) Response[T] {
	return Response[T]{Status: http.StatusCreated, Data: data}
}

// fail classifies err: problems the caller can fix are 400, the rest 500.
func fail[T any](err error) Response[T] {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrValidation),
		errors.Is(err, common.ErrNoPreview),
		errors.Is(err, common.ErrPreviewPending):
		status = http.StatusBadRequest
	}
	return Response[T]{Status: status, Err: err, Message: err.Error()}
}
