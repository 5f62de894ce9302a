package client

import (
	"net/http"

	"github.com/dmitrijs2005/incidentdesk/internal/client/codec"
)

// ErrorFromResponse classifies a non-2xx response; it returns nil for 2xx.
//
//	401       -> KindNotAuthenticated
//	404       -> KindNotFound
//	400       -> KindValidation, or KindServer when the body has no fields
//	otherwise -> KindServer
func ErrorFromResponse(resp *Response) *RequestError {
	switch {
	case resp.OK():
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return &RequestError{Kind: KindNotAuthenticated, StatusCode: resp.StatusCode, Detail: resp.Detail()}
	case resp.StatusCode == http.StatusNotFound:
		return NotFoundError(resp.Detail())
	case resp.StatusCode == http.StatusBadRequest:
		fields, err := codec.DecodeValidationErrors(resp.Body)
		if err != nil {
			return ServerError(resp.StatusCode, resp.Detail())
		}
		return ValidationError(resp.StatusCode, fields)
	default:
		return ServerError(resp.StatusCode, resp.Detail())
	}
}
