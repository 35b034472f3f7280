package main

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/muir/napi/nconfig"
	"github.com/muir/napi/ncontract"
	"github.com/muir/napi/notes"
	"github.com/muir/napi/notes/memstore"
	"github.com/muir/napi/notes/pgstore"
	"github.com/muir/napi/notes/sqlstore"
	"github.com/muir/napi/npoint"
	"github.com/muir/napi/nserve"
	"github.com/muir/napi/ntrace"
	"github.com/muir/napi/nvelope"
	"github.com/muir/napi/nwire"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func openRepository(ctx context.Context, c nconfig.StorageConfig) (notes.Repository, error) {
	switch c.Driver {
	case "memory":
		return memstore.New(), nil
	case "sqlite":
		s, err := sqlstore.Open(ctx, c.DSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := pgstore.Open(ctx, c.DSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, errors.Errorf("unknown storage driver %q", c.Driver)
	}
}

// routes serves the contract document next to the API.
func routes(d *npoint.Dispatcher, log nvelope.BasicLogger) http.Handler {
	doc, err := nwire.JSON().Marshal(ncontract.OpenAPI(d.Contract()))
	router := mux.NewRouter()
	router.Methods(http.MethodGet).Path("/openapi.json").HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if err != nil {
			log.Error("cannot marshal openapi document", map[string]interface{}{"error": err.Error()})
			http.Error(w, "openapi document unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(doc)
	})
	router.PathPrefix("/").Handler(d)
	return router
}

// server owns everything "notes serve" starts.
type server struct {
	cfg    *nconfig.Config
	zlog   *zap.Logger
	log    nvelope.BasicLogger
	fail   func(error)
	addr   string
	tracer *ntrace.Provider
	repo   notes.Repository
}

// newApp builds the server.  fail is called if the listener dies
// while the app is running.
func newApp(cfg *nconfig.Config, zlog *zap.Logger, fail func(error)) (*nserve.App, *server, error) {
	s := &server{
		cfg:  cfg,
		zlog: zlog,
		log:  nvelope.LoggerFromZap(zlog),
		fail: fail,
	}
	app, err := nserve.CreateApp("notes", s.setupTracing, s.setupStorage, s.setupHTTP)
	return app, s, err
}

func (s *server) setupTracing(app *nserve.App) error {
	p, err := ntrace.Setup(app.Context(), s.cfg.Honeycomb, s.log)
	if err != nil {
		return err
	}
	s.tracer = p
	app.On(nserve.Shutdown, func(*nserve.App) error {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		return p.Shutdown(ctx)
	})
	return nil
}

func (s *server) setupStorage(app *nserve.App) error {
	repo, err := openRepository(app.Context(), s.cfg.Storage)
	if err != nil {
		return err
	}
	s.repo = repo
	app.On(nserve.Start, func(app *nserve.App) error {
		return errors.Wrap(repo.CreateTable(app.Context()), "prepare storage")
	})
	app.On(nserve.Shutdown, func(*nserve.App) error {
		return repo.Close()
	})
	return nil
}

func (s *server) setupHTTP(app *nserve.App) error {
	d, err := notes.NewService(s.repo, s.log).Dispatcher(
		npoint.WithLogger(s.log),
		npoint.WithTracer(s.tracer.Tracer("notes")),
		npoint.WithMeter(s.tracer.Meter("notes")),
		npoint.WithMaxBodyBytes(s.cfg.MaxBodyBytes),
	)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           routes(d, s.log),
		ReadHeaderTimeout: 10 * time.Second,
	}
	app.On(nserve.Start, func(app *nserve.App) error {
		ln, err := net.Listen("tcp", s.cfg.Addr)
		if err != nil {
			return errors.Wrapf(err, "listen on %s", s.cfg.Addr)
		}
		s.addr = ln.Addr().String()
		app.On(nserve.Stop, func(*nserve.App) error {
			ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(ctx)
		})
		go func() {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.log.Error("server failed", map[string]interface{}{"error": err.Error()})
				s.fail(err)
			}
		}()
		s.zlog.Info("listening", zap.String("addr", s.addr))
		s.zlog.Info("Visit: " + visitURL(s.addr) + "/openapi.json")
		return nil
	})
	return nil
}

// visitURL turns a listen address into something a browser can open.
func visitURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if host == "" || host == "::" || host == "0.0.0.0" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}
