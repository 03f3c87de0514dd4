package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/sanchey92/order-service/internal/domain/model"
	"github.com/sanchey92/order-service/internal/http/lib/api/response"
)

func writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	kind, ok := model.KindOf(err)
	if !ok {
		log.ErrorContext(r.Context(), "request failed",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
		response.InternalError(w)
		return
	}

	switch kind {
	case model.KindInvalidInput:
		response.BadRequest(w, err.Error())
	case model.KindCustomerNotFound, model.KindNoProductsFound, model.KindProductNotFound, model.KindOrderNotFound:
		response.NotFound(w, err.Error())
	case model.KindInsufficientStock:
		response.UnprocessableEntity(w, err.Error())
	default:
		response.InternalError(w)
	}
}
