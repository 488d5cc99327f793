package middleware

import (
	"errors"
	"net/http"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// audioContentTypes are the recording formats accepted as multipart parts
var audioContentTypes = []string{"audio/wav", "audio/x-wav", "audio/webm", "audio/ogg", "audio/mpeg", "audio/mp4"}

var registerDecoders sync.Once

// OpenAPIValidator validates requests against the OpenAPI document before
// they reach the handlers. Requests for routes the document does not
// describe pass through untouched.
func OpenAPIValidator(swagger *openapi3.T, logger *zap.Logger) (gin.HandlerFunc, error) {
	// Match on path only, whatever host the server is reached on
	swagger.Servers = nil

	router, err := gorillamux.NewRouter(swagger)
	if err != nil {
		return nil, err
	}

	registerDecoders.Do(func() {
		for _, ct := range audioContentTypes {
			openapi3filter.RegisterBodyDecoder(ct, openapi3filter.FileBodyDecoder)
		}
	})

	options := &openapi3filter.Options{
		AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
	}

	return func(c *gin.Context) {
		route, pathParams, err := router.FindRoute(c.Request)
		if err != nil {
			if !errors.Is(err, routers.ErrPathNotFound) && !errors.Is(err, routers.ErrMethodNotAllowed) {
				logger.Warn("failed to match request route", zap.Error(err), zap.String("path", c.Request.URL.Path))
			}
			c.Next()
			return
		}

		input := &openapi3filter.RequestValidationInput{
			Request:    c.Request,
			PathParams: pathParams,
			Route:      route,
			Options:    options,
		}
		if err := openapi3filter.ValidateRequest(c.Request.Context(), input); err != nil {
			logger.Warn("request failed validation",
				zap.Error(err),
				zap.String("operation", route.Operation.OperationID),
				zap.String("request_id", c.GetString(requestIDKey)),
			)
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Request does not match the API contract",
				"details": validationDetail(err),
			})
			return
		}

		c.Next()
	}, nil
}

// validationDetail reduces a validation error to its most specific reason
func validationDetail(err error) string {
	var reqErr *openapi3filter.RequestError
	if errors.As(err, &reqErr) {
		var schemaErr *openapi3.SchemaError
		if errors.As(reqErr.Err, &schemaErr) {
			return schemaErr.Reason
		}
		if reqErr.Parameter != nil {
			return "parameter " + reqErr.Parameter.Name + ": " + reqErr.Error()
		}
		return reqErr.Error()
	}
	return err.Error()
}
