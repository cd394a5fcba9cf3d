package api

import (
	"database/sql"
	"net/http"

	"github.com/openregistry/lotreg/internal/lotid"
	"github.com/openregistry/lotreg/internal/lottype"
	"github.com/openregistry/lotreg/internal/model"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, jwtSecret string, types *lottype.Registry, idGen *lotid.Generator) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	usersHandler := &UsersHandler{DB: db}
	lotsHandler := &LotsHandler{DB: db, Types: types, IDGen: idGen}

	authMW := AuthMiddleware(jwtSecret, db)
	requireAdmin := RequireRole(model.RoleAdministrator)
	requireBots := RequireRole(model.RoleConcierge, model.RoleConvoy)

	// Public: login.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Authenticated session management.
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))

	// Accounts (administrator only).
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("GET /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Get))))
	mux.Handle("PUT /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Update))))
	mux.Handle("PUT /api/users/{id}/password", authMW(requireAdmin(http.HandlerFunc(usersHandler.ResetPassword))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	// Lots: feed and document views are public, writes are guarded.
	mux.HandleFunc("GET /api/lots", lotsHandler.List)
	mux.Handle("POST /api/lots", authMW(http.HandlerFunc(lotsHandler.Create)))
	mux.HandleFunc("GET /api/lots/{lot_id}", lotsHandler.Get)
	mux.Handle("PATCH /api/lots/{lot_id}", authMW(http.HandlerFunc(lotsHandler.Patch)))
	mux.Handle("POST /api/lots/{lot_id}/ownership", authMW(http.HandlerFunc(lotsHandler.TransferOwnership)))
	mux.Handle("GET /api/lots/{lot_id}/extract_credentials",
		authMW(requireBots(http.HandlerFunc(lotsHandler.ExtractCredentials))))

	return mux
}
