package fixture

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/cors"

	"incidentdesk/internal/incident"
)

type queryRequest struct {
	Question       string `json:"question"`
	FormatResponse *bool  `json:"format_response"`
}

type queryResponse struct {
	FormattedResponse string                `json:"formatted_response"`
	RawData           *incident.QueryResult `json:"raw_data"`
}

type errorResponse struct {
	Message string `json:"message"`
}

type Options struct {
	AllowedOrigins []string
	Logger         *slog.Logger
	Now            func() time.Time
}

type Server struct {
	catalog *Catalog
	logger  *slog.Logger
	now     func() time.Time
}

// NewHandler builds the CORS-enabled router serving /query, /query/raw and
// /health.
func NewHandler(catalog *Catalog, opts Options) http.Handler {
	s := &Server{catalog: catalog, logger: opts.Logger, now: opts.Now}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.logger = s.logger.With("component", "fixture_server")

	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())
	router.POST("/query", s.handleQuery(true))
	router.POST("/query/raw", s.handleQuery(false))
	router.GET("/health", s.handleHealth)

	// Credentials are only allowed for an explicit origin list; browsers
	// reject them alongside a wildcard.
	origins := opts.AllowedOrigins
	credentials := len(origins) > 0
	for _, origin := range origins {
		if origin == "*" {
			credentials = false
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: credentials,
	})
	return c.Handler(router)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader("X-Request-ID"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)
		started := s.now()
		c.Next()
		s.logger.Info("request served",
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed_ms", time.Since(started).Milliseconds(),
		)
	}
}

func (s *Server) handleQuery(formatted bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req queryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Message: "request body must be JSON with a question field"})
			return
		}
		question := strings.TrimSpace(req.Question)
		if question == "" {
			c.JSON(http.StatusUnprocessableEntity, errorResponse{Message: "question cannot be empty"})
			return
		}

		records := s.catalog.Match(question)
		result := Result(records)
		s.logger.Debug("fixture query", "question", question, "matches", len(records))

		if !formatted || (req.FormatResponse != nil && !*req.FormatResponse) {
			c.JSON(http.StatusOK, result)
			return
		}
		c.JSON(http.StatusOK, queryResponse{FormattedResponse: Format(records), RawData: result})
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	now := s.now()
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": float64(now.UnixNano()) / 1e9,
	})
}
