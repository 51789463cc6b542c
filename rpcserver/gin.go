package rpcserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/reoring/wirefunc"
	"github.com/reoring/wirefunc/internal/observability"
	"github.com/reoring/wirefunc/transport/httptransport"
)

// VerifyParams reads the request's packed params (JSON body, or the query
// string for GET and DELETE), verifies them against ep's params schema and
// stores the Record in the request context. On failure it answers 400 with
// an ErrorBody.
func VerifyParams(ep *wirefunc.Endpoint, opt wirefunc.ParseOpt) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := readBody(c, opt)
		if err == nil {
			var v any
			v, err = wirefunc.Verify(c.Request.Context(), body, ep.Params())
			if err == nil {
				c.Request = c.Request.WithContext(ContextWithParams(c.Request.Context(), v.(wirefunc.Record)))
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorPayload(err))
	}
}

func readBody(c *gin.Context, opt wirefunc.ParseOpt) (any, error) {
	switch c.Request.Method {
	case http.MethodGet, http.MethodDelete:
		return httptransport.FromQuery(c.Request.URL.Query(), opt)
	}
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return map[string]any{}, nil
	}
	return wirefunc.ParseWireReader(c.Request.Body, opt)
}

// GetParams fetches the params stored by VerifyParams.
func GetParams(c *gin.Context) (wirefunc.Record, bool) {
	return ParamsFromContext(c.Request.Context())
}

// Mount adds one route per registered endpoint: the endpoint's verb on
// "/<name>".
func (s *Server) Mount(r gin.IRoutes) {
	for _, ep := range s.Endpoints() {
		r.Handle(ep.Verb(), "/"+ep.Name(), VerifyParams(ep, s.parseOpt), s.handle(ep.Name()))
	}
}

func (s *Server) handle(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		rt, ok := s.lookup(name)
		if !ok {
			c.AbortWithStatusJSON(http.StatusNotFound, ErrorPayload(ErrUnknownEndpoint))
			return
		}
		params, _ := GetParams(c)
		raw, err := s.call(c.Request.Context(), rt, params, c.GetHeader)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorPayload(err))
			return
		}
		c.Data(http.StatusOK, httptransport.ContentType, raw)
	}
}

// Handler returns a gin engine serving every registered endpoint, with
// panic recovery and request logging.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), observability.RequestLogger(s.logger))
	s.Mount(r)
	return r
}
