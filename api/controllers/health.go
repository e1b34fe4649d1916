package controllers

import (
	"net/http"

	"github.com/jortega-dev/riverside-backend/api/responses"
	"github.com/jortega-dev/riverside-backend/pkg/config"
	"github.com/jortega-dev/riverside-backend/pkg/db"
	pkgerrors "github.com/jortega-dev/riverside-backend/pkg/errors"
	"github.com/jortega-dev/riverside-backend/pkg/logger"
	"github.com/jortega-dev/riverside-backend/pkg/redis"
)

const envHeader = "X-Riverside-Env"

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the backing stores so orchestrators stop routing traffic
// to an instance that lost its database or lock store.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		if dbP != nil {
			if err := dbP.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unavailable"))
				return
			}
		}
		if redisP != nil {
			if err := redisP.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unavailable"))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
