package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"go.uber.org/zap"

	"github.com/km-arc/go-scopes/framework/app"
	"github.com/km-arc/go-scopes/framework/container"
	"github.com/km-arc/go-scopes/framework/logging"
	gohttp "github.com/km-arc/go-scopes/http"
	"github.com/km-arc/go-scopes/routing"
)

// requestKey carries per-request data into the request scope.
var requestKey = container.NewKey[*requestInfo]("request")

type requestInfo struct {
	ID string
}

func main() {
	application, err := app.New() // loads .env automatically
	if err != nil {
		app.FallbackLogger().Fatal("bootstrap failed", zap.Error(err))
	}
	log := application.Zap()
	if err := application.Boot(); err != nil {
		log.Fatal("boot failed", zap.Error(err))
	}

	r := application.Router()

	// ── Root routes ──────────────────────────────────────────────────────────

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		res := gohttp.NewResponse(w)
		scope, _ := gohttp.NewRequest(req).Scope()
		res.Success(map[string]any{
			"app":   application.Config().App.Name,
			"scope": scope.String(),
		})
	})

	// ── API: own fields, per-request scope ───────────────────────────────────

	apiLogging, err := logging.Provide(
		logging.Options{}.WithName("api").WithChain(true).WithAppenders(),
		logging.WithFields(logging.F("area", "api")),
	)
	if err != nil {
		log.Fatal("api logging", zap.Error(err))
	}

	err = r.Prefix("/api/v1", func(api *routing.Router) {
		api.RequestScope(container.NewBundle(
			container.Factory(requestKey, func(in *container.Injector) (*requestInfo, error) {
				return &requestInfo{ID: in.ID()}, nil
			}),
		))

		// GET /api/v1/users/{id}
		api.Get("/users/{id}", func(w http.ResponseWriter, req *http.Request) {
			request := gohttp.NewRequest(req)
			res := gohttp.NewResponse(w)

			id, err := strconv.Atoi(request.RouteParam("id"))
			if err != nil || id <= 0 {
				res.NotFound("No such user.")
				return
			}

			scope, _ := request.Scope()
			info, err := container.Get(scope, requestKey)
			if err != nil {
				res.Fail(request.Logger(), err)
				return
			}
			request.Logger().Debug("user lookup", logging.F("id", id))
			res.Success(map[string]any{"id": id, "request": info.ID})
		})

		// POST /api/v1/users
		api.Post("/users", func(w http.ResponseWriter, req *http.Request) {
			request := gohttp.NewRequest(req)
			res := gohttp.NewResponse(w)

			var body struct {
				Name  string `json:"name"`
				Email string `json:"email"`
			}
			if err := request.Bind(&body); err != nil {
				res.Error(http.StatusBadRequest, err.Error())
				return
			}
			if body.Name == "" || body.Email == "" {
				res.Error(http.StatusUnprocessableEntity, "name and email are required")
				return
			}
			res.Created(body)
		})
	}, apiLogging)
	if err != nil {
		log.Fatal("api routes", zap.Error(err))
	}

	// ── Admin: debug level, chained to root, audit category ──────────────────

	recent := &logging.MemoryAppender{}
	audit := &logging.MemoryAppender{}
	adminLogging, err := logging.Provide(
		logging.Options{}.WithName("admin").WithLevel(logging.DebugLevel).WithChain(true).WithAppenders(recent),
		logging.WithCategories(map[string]logging.Handler{
			"audit": logging.HandlerFunc(func(e logging.Entry) { _ = audit.Append(e, e.Message) }),
		}),
	)
	if err != nil {
		log.Fatal("admin logging", zap.Error(err))
	}

	err = r.Prefix("/admin", func(admin *routing.Router) {
		admin.Get("/logs", func(w http.ResponseWriter, req *http.Request) {
			gohttp.NewRequest(req).Logger().Category("audit").Info("logs viewed")
			gohttp.NewResponse(w).Success(recent.Lines())
		})
		admin.Delete("/logs", func(w http.ResponseWriter, req *http.Request) {
			recent.Reset()
			gohttp.NewRequest(req).Logger().Category("audit").Info("logs cleared")
			gohttp.NewResponse(w).NoContent()
		})
		admin.Get("/audit", func(w http.ResponseWriter, req *http.Request) {
			gohttp.NewResponse(w).Success(audit.Lines())
		})
	}, adminLogging)
	if err != nil {
		log.Fatal("admin routes", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
