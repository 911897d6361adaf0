package models

// Requests for dashboard HTTP endpoints. Defined in domain for consistency
// and reuse.

type PanelRequest struct {
	Window string `query:"window" json:"window" default:"1y" validate:"oneof=180d 1y"`
}

type RiskViewRequest struct {
	Window string `query:"window" json:"window" default:"1y" validate:"oneof=180d 1y"`
	View   string `query:"view" json:"view" default:"vol" validate:"oneof=vol drawdown correlation"`
}

type MatrixRequest struct {
	Window string `query:"window" json:"window" default:"1y" validate:"oneof=180d 1y"`
}

type RefreshRequest struct {
	Window string `query:"window" json:"window" default:"1y" validate:"oneof=180d 1y"`
}
