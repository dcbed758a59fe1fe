package http

import (
	"go.uber.org/zap"

	"github.com/firebase-recipes/recipes-api/internal/catalog"
	"github.com/firebase-recipes/recipes-api/internal/notice"
	"github.com/firebase-recipes/recipes-api/internal/views"
)

// Handler bundles the dependencies for view HTTP endpoints.
type Handler struct {
	reg *views.Registry
	log *zap.Logger
}

func New(reg *views.Registry, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{reg: reg, log: log}
}

type viewResponse struct {
	ID string `json:"id"`
	catalog.Snapshot
	Notices []notice.Notice `json:"notices"`
}

type filterReq struct {
	Category *string `json:"category"`
	OrderBy  *string `json:"orderBy"`
	PageSize *int    `json:"pageSize"`
}

type ingredientReq struct {
	Name *string `json:"name"`
	Key  string  `json:"key"`
}
