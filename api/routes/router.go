package routes

import (
	"io/fs"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reelforge/reelforge-backend/api/controllers"
	"github.com/reelforge/reelforge-backend/api/middleware"
	"github.com/reelforge/reelforge-backend/internal/images"
	"github.com/reelforge/reelforge-backend/internal/projects"
	"github.com/reelforge/reelforge-backend/internal/scenes"
	"github.com/reelforge/reelforge-backend/internal/scripts"
	"github.com/reelforge/reelforge-backend/internal/settings"
	"github.com/reelforge/reelforge-backend/pkg/config"
	"github.com/reelforge/reelforge-backend/pkg/logger"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       controllers.Pinger
	Redis    controllers.Pinger
	Registry *prometheus.Registry

	Projects projects.Service
	Scripts  scripts.Service
	Scenes   scenes.Service
	Images   images.Service
	Settings settings.Service
}

func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(deps.Logger),
		middleware.RequestID(deps.Logger),
		middleware.Logging(deps.Logger),
		middleware.CORS(deps.Config.CORS),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive())
		r.Get("/ready", controllers.HealthReady(deps.Logger, deps.DB, deps.Redis))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/projects", func(r chi.Router) {
			r.Get("/", controllers.ListProjects(deps.Projects, deps.Logger))
			r.Post("/", controllers.CreateProject(deps.Scripts, deps.Logger))

			r.Route("/{projectID}", func(r chi.Router) {
				r.Get("/", controllers.GetProject(deps.Projects, deps.Logger))
				r.Delete("/", controllers.DeleteProject(deps.Projects, deps.Logger))
				r.Post("/generate-script", controllers.RegenerateScript(deps.Scripts, deps.Logger))
				r.Post("/generate-images", controllers.StartImageBatch(deps.Images, deps.Logger))
				r.Get("/generation-status", controllers.GenerationStatus(deps.Images, deps.Logger))

				r.Route("/scenes/{sceneID}", func(r chi.Router) {
					r.Patch("/", controllers.UpdateScene(deps.Scenes, deps.Logger))
					r.Post("/generate-image", controllers.GenerateSceneImage(deps.Images, deps.Logger))
				})
			})
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", controllers.GetSettings(deps.Settings, deps.Logger))
			r.Put("/", controllers.UpdateSettings(deps.Settings, deps.Logger))
			r.Post("/validate-keys", controllers.ValidateKeys(deps.Settings, deps.Logger))
		})
	})

	mountImages(r, deps.Config.Storage)

	return r
}

// mountImages serves generated artifacts from disk. Directory listings are
// disabled.
func mountImages(r chi.Router, cfg config.StorageConfig) {
	publicPath := strings.TrimSuffix(cfg.PublicPath, "/")
	if publicPath == "" {
		publicPath = "/images"
	}

	fs := http.StripPrefix(publicPath, http.FileServer(noListingFS{http.Dir(cfg.ImagesDir)}))
	r.Get(publicPath+"/*", fs.ServeHTTP)
}

type noListingFS struct {
	fs http.FileSystem
}

func (n noListingFS) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, fs.ErrNotExist
	}
	return f, nil
}
