// Command clariumd boots a clarium store: it wires storage, sidecar
// objects, the system catalog, the DDL installer, and an in-process
// dispatcher, then idles. It replaces the teacher's HTTP/WS server
// entry point (internal/app.Server) — clarium has no concrete wire
// protocol (spec §1, §6, §9 non-goal); this bootstrap is the seam a
// real transport would attach to via internal/adapter.Dispatcher.
package main

import (
	"os"

	"go.uber.org/zap"

	"clarium/internal/adapter"
	"clarium/internal/applog"
	"clarium/internal/exec"
	"clarium/internal/ident"
	"clarium/internal/identity"
	"clarium/internal/installer"
	"clarium/internal/sidecar"
	"clarium/internal/storage"
)

func main() {
	mode := applog.Dev
	if os.Getenv("CLARIUM_ENV") == "production" {
		mode = applog.Release
	}
	log := applog.New(mode)
	defer log.Sync()

	root := os.Getenv("CLARIUM_DATA_DIR")
	if root == "" {
		root = "./data"
	}
	ddlRoot := os.Getenv("CLARIUM_DDL_DIR")
	if ddlRoot == "" {
		ddlRoot = "./ddl"
	}

	store, err := storage.NewStore(root)
	if err != nil {
		log.Fatal("opening store", zap.Error(err), zap.String("root", root))
	}

	sc := sidecar.NewRegistry(root)
	ex := exec.NewExecutor(store, sc, log)
	defaults := ident.DefaultDefaults()

	in := installer.New(ex, defaults, ddlRoot, log)
	if err := in.EnsureInstalled(); err != nil {
		log.Fatal("installer failed", zap.Error(err))
	}

	sm := identity.NewSessionManager()
	auth := identity.NewSQLAuthProvider(ex, sm, defaults)
	disp := adapter.NewDispatcher(ex, auth, sm, log)
	_ = disp // bound here for a future wire adapter to pick up

	log.Info("clarium ready", zap.String("data_dir", root), zap.String("ddl_dir", ddlRoot))
}
