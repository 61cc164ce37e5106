package rpc

import (
	"context"
	"errors"

	"github.com/fekuna/omnipos-checkout-service/internal/apperror"
	"github.com/fekuna/omnipos-checkout-service/internal/auth"
	"github.com/fekuna/omnipos-checkout-service/pkg/i18n"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ErrorDomain = "checkout.omnipos"

// ErrorMapper turns use case errors into gRPC statuses. Business failures
// carry an ErrorInfo whose Reason and Metadata let clients render their own
// message; the status message is localized from accept-language.
type ErrorMapper struct {
	translator *i18n.Translator
}

func NewErrorMapper(t *i18n.Translator) *ErrorMapper {
	return &ErrorMapper{translator: t}
}

func (m *ErrorMapper) Map(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	reason := apperror.Reason(err)
	code := codeFor(err)
	meta := metadataFor(err)

	var msg string
	switch {
	case errors.Is(err, apperror.ErrInvalidArgument), errors.Is(err, apperror.ErrNotFound):
		msg = err.Error()
	default:
		msg = m.translate(ctx, reason, meta)
	}

	st := status.New(code, msg)
	withInfo, detailErr := st.WithDetails(&errdetails.ErrorInfo{
		Reason:   reason,
		Domain:   ErrorDomain,
		Metadata: meta,
	})
	if detailErr != nil {
		return st.Err()
	}
	return withInfo.Err()
}

func (m *ErrorMapper) translate(ctx context.Context, reason string, meta map[string]string) string {
	if m.translator == nil {
		return reason
	}
	data := make(map[string]interface{}, len(meta))
	for k, v := range meta {
		data[k] = v
	}
	return m.translator.Translate(reason, data, auth.GetLanguage(ctx))
}

func codeFor(err error) codes.Code {
	switch {
	case apperror.IsTransient(err):
		return codes.Unavailable
	case errors.Is(err, apperror.ErrInvalidArgument):
		return codes.InvalidArgument
	case errors.Is(err, apperror.ErrNotFound):
		return codes.NotFound
	case errors.Is(err, apperror.ErrCheckoutInProgress):
		return codes.Aborted
	case apperror.IsBusiness(err):
		return codes.FailedPrecondition
	default:
		return codes.Internal
	}
}

func metadataFor(err error) map[string]string {
	meta := map[string]string{}

	var stockErr *apperror.InsufficientStockError
	if errors.As(err, &stockErr) {
		meta["IngredientID"] = stockErr.IngredientID
		meta["Required"] = stockErr.Required.String()
		meta["Available"] = stockErr.Available.String()
	}

	var promoErr *apperror.PromotionError
	if errors.As(err, &promoErr) {
		meta["Code"] = promoErr.Code
		if errors.Is(err, apperror.ErrPromotionBelowMinimum) {
			meta["Minimum"] = promoErr.Minimum.String()
		}
	}

	var transErr *apperror.TransitionError
	if errors.As(err, &transErr) {
		meta["From"] = transErr.From
		meta["To"] = transErr.To
	}
	return meta
}
