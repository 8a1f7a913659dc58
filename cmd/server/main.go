package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/causalfunnel/cartsurvey/internal/api"
	"github.com/causalfunnel/cartsurvey/internal/db"
	"github.com/causalfunnel/cartsurvey/internal/middleware"
	"github.com/causalfunnel/cartsurvey/internal/utils"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	addr := ":" + utils.SafeEnv("PORT", utils.SafeEnv("BACKEND_PORT", "3000"))
	apiSecret := os.Getenv("SHOPIFY_API_SECRET")
	apiKey := os.Getenv("SHOPIFY_API_KEY")
	commit := os.Getenv("SURVEY_COMMIT")
	buildTime := os.Getenv("SURVEY_BUILD_TIME")

	store, backend := openStore()

	router := api.NewRouter(store, api.Options{
		StrictAnswers: utils.BoolEnv("SURVEY_STRICT_ANSWERS"),
		WebhookSecret: apiSecret,
	})

	var adminGuard, readGuard, proxyGuard mux.MiddlewareFunc
	if apiSecret != "" {
		verifier := middleware.NewSessionVerifier(apiSecret, apiKey)
		adminGuard = verifier.RequireSessionToken
		readGuard = middleware.RequireSessionOrProxy(verifier, apiSecret)
		proxyGuard = middleware.RequireProxySignature(apiSecret)
	} else {
		logrus.Warn("SHOPIFY_API_SECRET not set: admin and storefront routes are unguarded")
	}

	m := mux.NewRouter()
	router.Register(m, adminGuard, readGuard, proxyGuard)

	m.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ok := store.Ping(r.Context()) == nil
		status := http.StatusOK
		if !ok {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, map[string]interface{}{
			"ok":      ok,
			"name":    "Cart Survey API",
			"backend": backend,
		})
	}).Methods(http.MethodGet)

	m.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"commit":     commit,
			"build_time": buildTime,
		})
	}).Methods(http.MethodGet)

	handler := middleware.CORS(
		middleware.SecureHeaders(
			middleware.NoStore(
				middleware.RequestLogger(m))))

	logrus.WithFields(logrus.Fields{"addr": addr, "backend": backend}).Info("cart survey server listening")
	serveErr := http.ListenAndServe(addr, handler)

	// close the store before exiting; Fatal would skip a deferred close
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := store.Close(ctx); err != nil {
		logrus.WithError(err).Error("store close failed")
	}
	cancel()
	logrus.WithError(serveErr).Fatal("server error")
}

// openStore picks the persistence backend from the environment: a Mongo URI
// wins, then a SQLite path, then the in-memory store for zero-config runs.
func openStore() (api.Store, string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if uri := os.Getenv("MONGO_URI"); uri != "" {
		store, err := db.NewMongoStore(ctx, uri, utils.SafeEnv("MONGO_DB", "cartsurvey"))
		if err != nil {
			logrus.WithError(err).Fatal("mongo store init failed")
		}
		return store, "mongo"
	}
	if path := os.Getenv("SURVEY_SQLITE_PATH"); path != "" {
		store, err := db.OpenSQLiteStore(path)
		if err != nil {
			logrus.WithError(err).Fatal("sqlite store init failed")
		}
		return store, "sqlite"
	}
	logrus.Warn("no MONGO_URI or SURVEY_SQLITE_PATH set: using in-memory store, data will not survive restarts")
	return api.NewMemoryStore(), "memory"
}

func writeJSON(w http.ResponseWriter, status int, data map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
