package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/user-service/internal/apperr"
)

// ErrorHandler renders every error as {"message": ...}. Classified errors
// use their kind's status and echo's own errors keep theirs. Anything else,
// including recovered panics, is reported as a 400 with its message so
// existing clients see the same contract as before.
func ErrorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	if log == nil {
		log = slog.Default()
	}
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, msg := classify(err)
		attrs := []any{
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"status", status,
			"kind", apperr.KindOf(err).String(),
			"err", err,
		}
		switch {
		case status >= http.StatusInternalServerError:
			log.Error("request failed", attrs...)
		case apperr.KindOf(err) == apperr.KindUnknown:
			log.Warn("unclassified error", attrs...)
		default:
			log.Debug("request rejected", attrs...)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, messageResp{Message: msg})
		}
		if err != nil {
			log.Error("write error response", "err", err)
		}
	}
}

func classify(err error) (int, string) {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae.Kind.Status(), ae.Error()
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprint(he.Message)
	}
	return apperr.KindUnknown.Status(), err.Error()
}
