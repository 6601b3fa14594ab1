// Copyright 2020-2021 The OS-NVR Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package mpdelta wires together the timeline editing core (project,
// editor, render/build, serialize) with the ambient stack (log, storage,
// auth, system) into one daemon. Component classes (components/mediafile,
// components/shape, components/text) register themselves against
// pkg/timeline/classloader from their own init() functions; cmd/mpdeltad's
// main blank-imports them so this package never has to know the concrete
// set. Grounded wholesale on the teacher's nvr.go: newApp builds every
// dependency and returns an unstarted app, Run drives its lifecycle and
// handles graceful shutdown on SIGINT/SIGTERM.
package mpdelta

import (
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"mpdelta/pkg/log"
	"mpdelta/pkg/storage"
	"mpdelta/pkg/system"
	"mpdelta/pkg/timeline/editor"
	"mpdelta/pkg/timeline/id"
	"mpdelta/pkg/timeline/serialize"
	"mpdelta/pkg/web"
	"mpdelta/pkg/web/auth"
	"mpdelta/pkg/web/eventstream"
)

// Run loads envPath and serves until SIGINT/SIGTERM, shutting down
// gracefully.
func Run(envPath string) error {
	a, err := newApp(envPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())

	fatal := make(chan error, 1)
	go func() { fatal <- a.run(ctx) }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err = <-fatal:
	case sig := <-stop:
		a.log.Info().Src("app").Msgf("received %v, stopping", sig)
	}

	cancel()

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()

	if shutdownErr := a.server.Shutdown(ctx2); shutdownErr != nil {
		return shutdownErr
	}
	if err := a.store.Close(); err != nil {
		return err
	}
	return err
}

type app struct {
	log    *log.Logger
	env    *storage.ConfigEnv
	system *system.System
	store  *serialize.Store
	server *http.Server
}

func newApp(envPath string) (*app, error) { //nolint:funlen
	var wg sync.WaitGroup

	envYAML, err := ioutil.ReadFile(envPath)
	if err != nil {
		return nil, fmt.Errorf("could not read env.yaml: %w", err)
	}
	env, err := storage.NewConfigEnv(envPath, envYAML)
	if err != nil {
		return nil, fmt.Errorf("could not get environment config: %w", err)
	}

	logDBPath := filepath.Join(env.HomeDir, "log.db")
	logger, err := log.NewLogger(logDBPath, &wg)
	if err != nil {
		return nil, fmt.Errorf("could not create logger: %w", err)
	}

	general, err := storage.NewConfigGeneral(filepath.Dir(envPath))
	if err != nil {
		return nil, fmt.Errorf("could not get general config: %w", err)
	}
	storageManager := storage.NewManager(env.ProjectsDir, general, logger)

	usersConfigPath := filepath.Join(env.HomeDir, "users.json")
	authenticator, err := auth.NewBasicAuthenticator(usersConfigPath, logger)
	if err != nil {
		return nil, fmt.Errorf("could not create authenticator: %w", err)
	}

	sys := system.New(storageManager.Usage, logger)

	storePath := filepath.Join(env.ProjectsDir, "projects.db")
	store, err := serialize.OpenStore(storePath)
	if err != nil {
		return nil, fmt.Errorf("could not open project store: %w", err)
	}

	gen := id.RandGenerator{}
	registry := web.NewRegistry(store, gen)

	edit := editor.New(logger)
	hub := eventstream.New(logger)
	edit.AddEditEventListener(hub)

	mux := http.NewServeMux()

	mux.Handle("/api/system/status", authenticator.User(web.Status(sys)))

	mux.Handle("/api/projects", authenticator.User(web.ProjectList(registry)))
	mux.Handle("/api/project/create", authenticator.User(authenticator.CSRF(web.ProjectCreate(registry))))
	mux.Handle("/api/project/open", authenticator.User(web.ProjectOpen(registry)))
	mux.Handle("/api/project/save", authenticator.User(authenticator.CSRF(web.ProjectSave(registry))))
	mux.Handle("/api/project/close", authenticator.User(web.ProjectClose(registry)))
	mux.Handle("/api/project/delete", authenticator.Admin(authenticator.CSRF(web.ProjectDelete(registry))))

	mux.Handle("/api/edit/root", authenticator.User(authenticator.CSRF(web.EditRoot(registry, edit, gen))))
	mux.Handle("/api/edit/instance", authenticator.User(authenticator.CSRF(web.EditInstance(registry, edit))))

	mux.Handle("/api/users", authenticator.Admin(web.UsersList(authenticator)))
	mux.Handle("/api/user/set", authenticator.Admin(authenticator.CSRF(web.UserSet(authenticator))))
	mux.Handle("/api/user/delete", authenticator.Admin(authenticator.CSRF(web.UserDelete(authenticator))))

	mux.Handle("/api/events", authenticator.User(hub))

	server := &http.Server{Addr: ":" + env.Port, Handler: mux}

	return &app{
		log:    logger,
		env:    env,
		system: sys,
		store:  store,
		server: server,
	}, nil
}

func (a *app) run(ctx context.Context) error {
	go a.log.Start(ctx) //nolint:errcheck
	go a.log.LogToStdout(ctx)
	time.Sleep(10 * time.Millisecond)
	a.log.Info().Src("app").Msg("starting..")

	if err := a.env.PrepareEnvironment(); err != nil {
		return fmt.Errorf("could not prepare environment: %w", err)
	}

	go a.system.StatusLoop(ctx)

	return a.server.ListenAndServe()
}
