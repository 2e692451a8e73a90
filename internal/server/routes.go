package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/berfenger/purifier2mqtt/internal/core/domain"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type characteristicValue struct {
	Id    string `json:"id,omitempty"`
	Value any    `json:"value"`
}

type characteristicList struct {
	Characteristics []string `json:"characteristics"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)

	api := e.Group("/api")
	api.GET("/characteristics", s.ListCharacteristicsHandler)
	api.GET("/characteristics/:id", s.GetCharacteristicHandler)
	api.PUT("/characteristics/:id", s.SetCharacteristicHandler)
	api.POST("/identify", s.IdentifyHandler)

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

func (s *Server) ListCharacteristicsHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ListCharacteristicsRequest{}, 2*time.Second).Result()
	if err != nil {
		return errorJSON(c, err)
	}
	resp, ok := res.(domain.ListCharacteristicsResponse)
	if !ok {
		return errorJSON(c, errUnexpectedResponse)
	}
	return c.JSON(http.StatusOK, characteristicList{Characteristics: resp.Ids})
}

func (s *Server) GetCharacteristicHandler(c echo.Context) error {
	id := c.Param("id")
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.GetCharacteristicRequest{Id: id}, s.requestTimeout).Result()
	if err != nil {
		return errorJSON(c, err)
	}
	resp, ok := res.(domain.GetCharacteristicResponse)
	if !ok {
		return errorJSON(c, errUnexpectedResponse)
	}
	if resp.HasResponseError() {
		return errorJSON(c, resp.GetResponseError())
	}
	return c.JSON(http.StatusOK, characteristicValue{Id: id, Value: resp.Value})
}

func (s *Server) SetCharacteristicHandler(c echo.Context) error {
	id := c.Param("id")
	var body characteristicValue
	if err := c.Bind(&body); err != nil || body.Value == nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "body must be {\"value\": ...}"})
	}
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.SetCharacteristicRequest{Id: id, Value: body.Value}, s.requestTimeout).Result()
	if err != nil {
		return errorJSON(c, err)
	}
	resp, ok := res.(domain.SetCharacteristicResponse)
	if !ok {
		return errorJSON(c, errUnexpectedResponse)
	}
	if resp.HasResponseError() {
		return errorJSON(c, resp.GetResponseError())
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) IdentifyHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.IdentifyRequest{}, s.requestTimeout).Result()
	if err != nil {
		return errorJSON(c, err)
	}
	resp, ok := res.(domain.IdentifyResponse)
	if !ok {
		return errorJSON(c, errUnexpectedResponse)
	}
	if resp.HasResponseError() {
		return errorJSON(c, resp.GetResponseError())
	}
	return c.NoContent(http.StatusNoContent)
}

var errUnexpectedResponse = errors.New("unexpected response")

func errorJSON(c echo.Context, err error) error {
	return c.JSON(StatusFromError(err), errorResponse{Error: err.Error()})
}

// StatusFromError maps request errors to HTTP status codes. Errors that are
// not domain errors come from the actor future and mean the bridge did not
// answer in time.
func StatusFromError(err error) int {
	var validationErr *domain.ValidationError
	var discoveryErr *domain.DiscoveryError
	var mismatchErr *domain.ProtocolMismatchError
	var callErr *domain.DeviceCallError

	switch {
	case errors.Is(err, domain.ErrUnknownCharacteristic):
		return http.StatusNotFound
	case errors.As(err, &validationErr), errors.Is(err, domain.ErrReadOnly):
		return http.StatusBadRequest
	case errors.As(err, &discoveryErr), errors.As(err, &mismatchErr), errors.Is(err, domain.ErrPropertyUnavailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &callErr):
		return http.StatusBadGateway
	case errors.Is(err, errUnexpectedResponse):
		return http.StatusInternalServerError
	default:
		return http.StatusServiceUnavailable
	}
}
