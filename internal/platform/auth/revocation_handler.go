package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type revocationListResponse struct {
	Count   int              `json:"count"`
	Entries []RevocationInfo `json:"entries"`
}

// RegisterRevocationRoutes exposes the revocation list to admins.
func RegisterRevocationRoutes(g *echo.Group, store *TokenRevocationStore) {
	g.GET("/auth/revocations", handleListRevocations(store), RequireRole(AdminRole))
}

func handleListRevocations(store *TokenRevocationStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		entries := store.Entries()
		return c.JSON(http.StatusOK, revocationListResponse{
			Count:   len(entries),
			Entries: entries,
		})
	}
}
