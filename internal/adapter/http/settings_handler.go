package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"vsla-ledger/internal/domain/sysconfig"
	"vsla-ledger/internal/usecase/settings"
)

type SettingsHandler struct{ uc *settings.Usecase }

func NewSettingsHandler(uc *settings.Usecase) *SettingsHandler { return &SettingsHandler{uc: uc} }

type setSettingReq struct {
	ValueType   string `json:"value_type"  validate:"required,oneof=BOOLEAN INTEGER STRING JSON"`
	Value       string `json:"value"`
	Description string `json:"description"`
	UpdatedBy   string `json:"updated_by"  validate:"omitempty,hex32"`
}

// List returns every stored key plus the fallbacks the current table forces.
func (h *SettingsHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	rows, err := h.uc.List(ctx)
	if err != nil {
		return fail(c, err)
	}
	p, err := h.uc.Policies(ctx)
	if err != nil {
		return fail(c, err)
	}
	warnings := p.Warnings
	if warnings == nil {
		warnings = []sysconfig.Warning{}
	}
	return c.JSON(http.StatusOK, map[string]any{"settings": rows, "warnings": warnings})
}

func (h *SettingsHandler) Get(c echo.Context) error {
	s, err := h.uc.Get(c.Request().Context(), c.Param("key"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

func (h *SettingsHandler) Set(c echo.Context) error {
	var req setSettingReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	s, err := h.uc.Set(c.Request().Context(), settings.SetInput{
		Key:         c.Param("key"),
		ValueType:   sysconfig.Type(req.ValueType),
		Value:       req.Value,
		Description: req.Description,
		UpdatedBy:   req.UpdatedBy,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, s)
}
