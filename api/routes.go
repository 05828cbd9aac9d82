package api

import (
	"net/http"

	"github.com/0xcafe-io/iz"
	"github.com/rs/cors"
)

func (api *Api) Routes(prefix string) *http.ServeMux {
	server := http.NewServeMux()

	// INSIGHTS ENDPOINTS.
	server.HandleFunc("POST "+prefix+"/insights/analyze", iz.Bind(api.AnalyzeHandler))
	server.HandleFunc("POST "+prefix+"/insights/quick-analyze", iz.Bind(api.QuickAnalyzeHandler))
	server.HandleFunc("POST "+prefix+"/insights/predict", iz.Bind(api.PredictHandler))
	server.HandleFunc("GET "+prefix+"/insights/categories", iz.Bind(api.CategoriesHandler))
	server.HandleFunc("GET "+prefix+"/insights/user/{userId}", iz.Bind(api.UserInsightsHandler))

	// HEALTH.
	server.HandleFunc("GET "+prefix+"/health", iz.Bind(api.HealthHandler))

	return server
}

// Handler is the full HTTP stack: CORS, tracing and request logs, routes.
func (api *Api) Handler(prefix string, allowedOrigins []string) http.Handler {
	corsConf := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
	})
	return corsConf.Handler(TraceMiddleware(api.Routes(prefix)))
}
