package nserve

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// Callback is invoked when a hook runs.  Callbacks may register
// more callbacks, for example a start callback can register the
// matching stop callback.
type Callback func(app *App) error

// App is one service process.  Each library the service uses
// registers callbacks on the Start, Stop, and Shutdown hooks.
type App struct {
	Name    string
	lock    sync.Mutex // held when adding hooks
	runLock sync.Mutex // held when running hooks
	hooks   map[int32][]Callback
	ran     map[int32]bool
	ctx     context.Context
}

// CreateApp invokes the constructors in order.  Each constructor
// builds one library and registers its hooks.  The first constructor
// error stops creation and runs Shutdown, so whatever the earlier
// constructors acquired is released.
func CreateApp(name string, constructors ...func(app *App) error) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		Name:  name,
		hooks: make(map[int32][]Callback),
		ran:   make(map[int32]bool),
		ctx:   ctx,
	}
	app.hooks[Shutdown.id] = append(app.hooks[Shutdown.id], func(*App) error {
		cancel()
		return nil
	})
	for _, c := range constructors {
		if err := c(app); err != nil {
			err = errors.Wrapf(err, "create %s", name)
			return app, Shutdown.settings().join(err, app.Do(Shutdown))
		}
	}
	return app, nil
}

// Context is cancelled by the Shutdown hook.
func (app *App) Context() context.Context {
	return app.ctx
}

// On adds callbacks to a hook.  It is safe to call from inside a
// running callback.
func (app *App) On(h *Hook, callbacks ...Callback) {
	app.lock.Lock()
	defer app.lock.Unlock()
	app.hooks[h.id] = append(app.hooks[h.id], callbacks...)
}

// Do runs the callbacks of a hook, and on failure the hooks it
// names with OnError.
func (app *App) Do(h *Hook) error {
	app.runLock.Lock()
	defer app.runLock.Unlock()
	return app.do(h)
}

// Run starts the app, waits for ctx to be done, then stops and shuts
// it down.  Shutdown runs exactly once even when Start fails.
func (app *App) Run(ctx context.Context) error {
	err := app.Do(Start)
	if err == nil {
		<-ctx.Done()
		err = app.Do(Stop)
	}
	if app.hasRun(Shutdown) {
		// a failing Stop already ran it
		return err
	}
	return Shutdown.settings().join(err, app.Do(Shutdown))
}

func (app *App) hasRun(h *Hook) bool {
	app.lock.Lock()
	defer app.lock.Unlock()
	return app.ran[h.id]
}

func (app *App) do(h *Hook) error {
	s := h.settings()

	app.lock.Lock()
	app.ran[h.id] = true
	callbacks := make([]Callback, len(app.hooks[h.id]))
	copy(callbacks, app.hooks[h.id])
	app.lock.Unlock()
	if s.order == ReverseOrder {
		for i, j := 0, len(callbacks)-1; i < j; i, j = i+1, j-1 {
			callbacks[i], callbacks[j] = callbacks[j], callbacks[i]
		}
	}

	var err error
	for _, cb := range callbacks {
		err = s.join(err, cb(app))
		if err != nil && !s.continuePast {
			break
		}
	}
	if err != nil {
		for _, next := range s.onError {
			err = s.join(err, app.do(next))
		}
	}
	return err
}
