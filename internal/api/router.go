package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"fleetctl/internal/app"
	"fleetctl/internal/apperr"
	"fleetctl/internal/backup"
	"fleetctl/internal/catalog"
	"fleetctl/internal/config"
	"fleetctl/internal/domain"
	"fleetctl/internal/installer"
	"fleetctl/internal/loader"
	"fleetctl/internal/progress"
	"fleetctl/internal/provision"
	"fleetctl/internal/runner"
	"fleetctl/internal/server"
	"fleetctl/internal/storage"
	"fleetctl/internal/ws"
)

type Server struct {
	Config        *config.Config
	Manager       *server.Manager
	Supervisor    *runner.Supervisor
	Store         *storage.GormStore
	HubManager    *ws.HubManager
	BackupManager *backup.Manager
	Catalog       *catalog.Client
	Installer     *installer.Installer
	Orchestrator  *provision.Orchestrator
	ProgressHub   *progress.Hub
}

func NewAPIServer(container *app.Container) *Server {
	return &Server{
		Config:        container.Config,
		Manager:       container.ServerManager,
		Supervisor:    container.Supervisor,
		Store:         container.Store,
		HubManager:    container.HubManager,
		BackupManager: container.BackupManager,
		Catalog:       container.Catalog,
		Installer:     container.Installer,
		Orchestrator:  container.Orchestrator,
		ProgressHub:   container.ProgressHub,
	}
}

func (api *Server) Start(listenAddr string) error {
	mux := http.NewServeMux()

	ex, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolving executable path: %w", err)
	}
	exPath := filepath.Dir(ex)
	webDistPath := filepath.Join(exPath, "web_dist")

	fs := http.FileServer(http.Dir(webDistPath))
	mux.Handle("/", fs)

	mux.HandleFunc("GET /health", api.handleHealth)

	mux.HandleFunc("POST /auth/setup", api.handleSetup)
	mux.HandleFunc("POST /auth/login", api.handleLogin)
	mux.HandleFunc("POST /auth/logout", api.handleLogout)
	mux.HandleFunc("GET /auth/me", api.requireAuth("", api.handleMe))

	mux.HandleFunc("GET /loaders", api.requireAuth("", api.handleGetLoaders))
	mux.HandleFunc("GET /loaders/{name}/versions", api.requireAuth("", api.handleGetLoaderVersions))
	mux.HandleFunc("GET /servers", api.requireAuth("", api.handleListServers))
	mux.HandleFunc("GET /servers-stats", api.requireAuth("", api.handleServerStats))
	mux.HandleFunc("POST /servers", api.requireAuth("admin", api.handleCreateServer))
	mux.HandleFunc("GET /servers/{id}", api.requireAuth("", api.handleGetServer))
	mux.HandleFunc("PUT /servers/{id}", api.requireAuth("admin", api.handleUpdateServer))
	mux.HandleFunc("DELETE /servers/{id}", api.requireAuth("admin", api.handleDeleteServer))

	mux.HandleFunc("POST /servers/{id}/start", api.requireAuth("", api.handleStartServer))
	mux.HandleFunc("POST /servers/{id}/stop", api.requireAuth("", api.handleStopServer))
	mux.HandleFunc("POST /servers/{id}/backup", api.requireAuth("", api.handleBackupServer))
	mux.HandleFunc("GET /servers/{id}/backups", api.requireAuth("", api.handleListBackupsByServer))
	mux.HandleFunc("DELETE /backups/{id}", api.requireAuth("admin", api.handleDeleteBackup))

	mux.HandleFunc("GET /servers/{id}/files", api.requireAuth("", api.handleListFiles))
	mux.HandleFunc("GET /servers/{id}/files/content", api.requireAuth("", api.handleGetFileContent))
	mux.HandleFunc("PUT /servers/{id}/files/content", api.requireAuth("admin", api.handleSaveFileContent))
	mux.HandleFunc("POST /servers/{id}/files/directory", api.requireAuth("admin", api.handleCreateDirectory))
	mux.HandleFunc("DELETE /servers/{id}/files", api.requireAuth("admin", api.handleDeleteFile))
	mux.HandleFunc("GET /servers/{id}/files/download", api.requireAuth("", api.handleDownloadFile))
	mux.HandleFunc("POST /servers/{id}/files/upload", api.requireAuth("admin", api.handleUploadFile))

	mux.HandleFunc("GET /settings/port-range", api.requireAuth("admin", api.handleGetPortRange))
	mux.HandleFunc("PUT /settings/port-range", api.requireAuth("admin", api.handleSetPortRange))

	mux.HandleFunc("GET /users", api.requireAuth("admin", api.handleListUsers))
	mux.HandleFunc("POST /users", api.requireAuth("admin", api.handleCreateUser))
	mux.HandleFunc("DELETE /users/{id}", api.requireAuth("admin", api.handleDeleteUser))
	mux.HandleFunc("PUT /users/{id}/password", api.requireAuth("", api.handleUpdatePassword))
	mux.HandleFunc("GET /users/{id}/permissions", api.requireAuth("admin", api.handleGetPermissions))
	mux.HandleFunc("PUT /permissions", api.requireAuth("admin", api.handleUpdatePermissions))

	mux.HandleFunc("POST /links", api.requireAuth("admin", api.handleCreatePublicLink))
	mux.HandleFunc("DELETE /links/{token}", api.requireAuth("admin", api.handleDeletePublicLink))
	mux.HandleFunc("GET /public/{token}", api.handleGetPublicServerInfo)
	mux.HandleFunc("POST /public/{token}", api.handleAccessPublicLink)

	mux.HandleFunc("GET /ws/servers/{id}/console", api.handleConsole)

	mux.HandleFunc("GET /modpacks/search", api.requireAuth("", api.handleModpackSearch))
	mux.HandleFunc("GET /modpacks/{id}", api.requireAuth("", api.handleModpackGet))
	mux.HandleFunc("GET /modpacks/{id}/files", api.requireAuth("", api.handleModpackFiles))
	mux.HandleFunc("GET /modpacks/{id}/mods", api.requireAuth("", api.handleModpackMods))
	mux.HandleFunc("POST /modpacks/provision", api.requireAuth("admin", api.handleModpackProvision))
	mux.HandleFunc("GET /progress/{sessionId}", api.requireAuth("", api.handleProgressStream))

	mux.HandleFunc("POST /backups/{id}/restore", api.requireAuth("admin", api.handleRestoreBackup))

	handler := api.corsMiddleware(mux)

	log.Printf("api listening on http://0.0.0.0%s", listenAddr)
	return http.ListenAndServe(listenAddr, handler)
}

// requireAuth wraps a handler with AuthMiddleware using the server's own
// JWT secret, so route registration reads as one line per endpoint instead
// of repeating the secret at every call site.
func (api *Server) requireAuth(requiredRole string, next http.HandlerFunc) http.HandlerFunc {
	handler := api.AuthMiddleware(next, requiredRole, api.Config.JWTSecret)
	return handler.ServeHTTP
}

func (api *Server) handleGetLoaderVersions(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		writeError(w, apperr.New(apperr.InvalidRequest, "missing loader name"))
		return
	}

	versions, err := loader.GetLoaderVersions(domain.EngineFamily(name))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, versions)
}

func (api *Server) handleGetLoaders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, loader.GetAvailableEngines())
}

func (api *Server) handleDeleteBackup(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, apperr.New(apperr.InvalidRequest, "missing backup id"))
		return
	}

	if err := api.BackupManager.DeleteBackup(id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (api *Server) handleListBackupsByServer(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, apperr.New(apperr.InvalidRequest, "missing server id"))
		return
	}

	backups, err := api.BackupManager.ListBackups(id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, backups)
}

func (api *Server) handleGetServer(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, apperr.New(apperr.InvalidRequest, "missing server id"))
		return
	}

	srv, err := api.Manager.GetServer(id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, srv)
}

func (api *Server) handleUpdateServer(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, apperr.New(apperr.InvalidRequest, "missing server id"))
		return
	}

	var req struct {
		Name        *string            `json:"name"`
		Description *string            `json:"description"`
		RAM         *int               `json:"ram"`
		CustomArgs  *string            `json:"customArgs"`
		AutoStart   *bool              `json:"autoStart"`
		GameOptions *domain.GameOptions `json:"gameOptions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Wrap(apperr.InvalidRequest, "invalid JSON body", err))
		return
	}

	patch := domain.ServerPatch{
		Name:        req.Name,
		Description: req.Description,
		RAM:         req.RAM,
		CustomArgs:  req.CustomArgs,
		AutoStart:   req.AutoStart,
		GameOptions: req.GameOptions,
	}

	if err := api.Store.UpdateServer(id, patch); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (api *Server) handleDeleteServer(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, apperr.New(apperr.InvalidRequest, "missing server id"))
		return
	}

	if err := api.Manager.DeleteServer(id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (api *Server) handleListServers(w http.ResponseWriter, r *http.Request) {
	servers, err := api.Manager.ListServers()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, servers)
}

// handleServerStats reports a point-in-time CPU/RAM/disk sample for every
// currently running server, keyed by server id. Used by the dashboard to
// render live resource usage without polling each server individually.
func (api *Server) handleServerStats(w http.ResponseWriter, r *http.Request) {
	stats, err := api.Supervisor.Stats()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, stats)
}

func (api *Server) handleCreateServer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string             `json:"name"`
		Description string             `json:"description"`
		Version     string             `json:"version"`
		Engine      string             `json:"engine"`
		RAM         int                `json:"ram"`
		CustomArgs  string             `json:"customArgs"`
		AutoStart   bool               `json:"autoStart"`
		GameOptions domain.GameOptions `json:"gameOptions"`
		ModpackID   string             `json:"modpackId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Wrap(apperr.InvalidRequest, "invalid JSON body", err))
		return
	}

	opts := server.CreateServerOpts{
		Description: req.Description,
		RAM:         req.RAM,
		CustomArgs:  req.CustomArgs,
		AutoStart:   req.AutoStart,
		GameOptions: req.GameOptions,
		ModpackID:   req.ModpackID,
	}

	srv, err := api.Manager.CreateServer(req.Name, domain.EngineFamily(req.Engine), req.Version, opts, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, srv)
}

func (api *Server) handleStartServer(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, apperr.New(apperr.InvalidRequest, "missing server id"))
		return
	}

	if err := api.Supervisor.StartServer(id); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, map[string]string{"status": "started"})
}

func (api *Server) handleStopServer(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, apperr.New(apperr.InvalidRequest, "missing server id"))
		return
	}

	if err := api.Supervisor.StopServer(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "stopping"})
}

func (api *Server) handleBackupServer(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, apperr.New(apperr.InvalidRequest, "missing server id"))
		return
	}

	var req struct {
		Name string `json:"name,omitempty"`
		Kind string `json:"kind,omitempty"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	kind := domain.BackupType(req.Kind)
	if kind == "" {
		kind = domain.BackupManual
	}

	b, err := api.BackupManager.CreateBackup(r.Context(), id, req.Name, kind, nil)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, b)
}

func (api *Server) handleGetPortRange(w http.ResponseWriter, r *http.Request) {
	start, end, err := api.Store.GetPortRange()
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, map[string]int{"start": start, "end": end})
}

func (api *Server) handleSetPortRange(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Start int `json:"start"`
		End   int `json:"end"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Wrap(apperr.InvalidRequest, "invalid JSON body", err))
		return
	}

	if err := api.Store.SetPortRange(req.Start, req.End); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, map[string]string{"status": "updated"})
}

func (api *Server) handleConsole(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, apperr.New(apperr.InvalidRequest, "missing server id"))
		return
	}

	hub := api.HubManager.GetHub(id)
	hub.ServeWs(w, r)
}

func (api *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "fleetctl",
	})
}

func (api *Server) handleModpackSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	gameVersion := r.URL.Query().Get("gameVersion")
	page := 0
	if p := r.URL.Query().Get("page"); p != "" {
		fmt.Sscanf(p, "%d", &page)
	}

	hits, err := api.Catalog.Search(r.Context(), query, gameVersion, page)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, hits)
}

func (api *Server) handleModpackGet(w http.ResponseWriter, r *http.Request) {
	id := 0
	fmt.Sscanf(r.PathValue("id"), "%d", &id)

	meta, err := api.Catalog.ModpackMeta(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, meta)
}

func (api *Server) handleModpackFiles(w http.ResponseWriter, r *http.Request) {
	id := 0
	fmt.Sscanf(r.PathValue("id"), "%d", &id)
	gameVersion := r.URL.Query().Get("gameVersion")

	files, err := api.Catalog.ModpackFiles(r.Context(), id, gameVersion)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, files)
}

// handleModpackMods serves the enriched mod list for a modpack file,
// defaulting to the modpack's most recent file when fileId is omitted.
func (api *Server) handleModpackMods(w http.ResponseWriter, r *http.Request) {
	id := 0
	fmt.Sscanf(r.PathValue("id"), "%d", &id)

	fileID := 0
	if f := r.URL.Query().Get("fileId"); f != "" {
		fmt.Sscanf(f, "%d", &fileID)
	} else {
		files, err := api.Catalog.ModpackFiles(r.Context(), id, "")
		if err != nil {
			writeError(w, err)
			return
		}
		if len(files) == 0 {
			writeError(w, apperr.New(apperr.NotFound, "modpack has no files"))
			return
		}
		fileID = files[0].ID
	}

	mods, err := api.Orchestrator.ModList(r.Context(), id, fileID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, mods)
}

func (api *Server) handleModpackProvision(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DisplayName       string `json:"displayName"`
		Description       string `json:"description"`
		CatalogModpackID  int    `json:"catalogModpackId"`
		CatalogFileID     int    `json:"catalogFileId"`
		RequestedPort     int    `json:"requestedPort"`
		Memory            int    `json:"memory"`
		JVMOpts           string `json:"jvmOpts"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Wrap(apperr.InvalidRequest, "invalid JSON body", err))
		return
	}
	if req.DisplayName == "" {
		writeError(w, apperr.New(apperr.InvalidRequest, "displayName is required"))
		return
	}

	sessionID := api.Orchestrator.CreateFromModpack(provision.Request{
		DisplayName:       req.DisplayName,
		Description:       req.Description,
		CatalogModpackID:  req.CatalogModpackID,
		CatalogFileID:     req.CatalogFileID,
		RequestedPort:     req.RequestedPort,
		Memory:            req.Memory,
		JVMOpts:           req.JVMOpts,
	})

	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, map[string]string{"sessionId": sessionID})
}

// handleProgressStream serves a session's event log as server-sent events,
// closing once a terminal complete/error frame is delivered or the client
// disconnects.
func (api *Server) handleProgressStream(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionId")
	ch, cancel, err := api.ProgressHub.Subscribe(sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	defer cancel()

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, apperr.New(apperr.Internal, "streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for {
		select {
		case ev, open := <-ch:
			if !open {
				return
			}
			data, _ := json.Marshal(ev)
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
			if ev.Kind == progress.EventComplete || ev.Kind == progress.EventError {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}

func (api *Server) handleRestoreBackup(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, apperr.New(apperr.InvalidRequest, "missing backup id"))
		return
	}

	var req struct {
		TargetServerID   string `json:"targetServerId,omitempty"`
		NewServerName    string `json:"newServerName,omitempty"`
		NewServerRAM     int    `json:"newServerRam,omitempty"`
		NewServerEngine  string `json:"newServerEngine,omitempty"`
		NewServerVersion string `json:"newServerVersion,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Wrap(apperr.InvalidRequest, "invalid JSON body", err))
		return
	}

	if err := api.BackupManager.RestoreBackup(id, req.TargetServerID, req.NewServerName, req.NewServerRAM, domain.EngineFamily(req.NewServerEngine), req.NewServerVersion); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, map[string]string{"status": "restored"})
}

func (api *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
