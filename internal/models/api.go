package models

type ValidateCarrierQuery struct {
	MCNumber string `form:"mc_number" binding:"required"`
}

type CarrierResponse struct {
	StatusCode      int    `json:"statusCode"`
	VerifiedCarrier bool   `json:"verified_carrier"`
	Message         string `json:"message"`
}

type FindLoadsQuery struct {
	EquipmentType  string `form:"equipment_type" binding:"required"`
	Origin         string `form:"origin" binding:"required"`
	Destination    string `form:"destination"`
	PickupDatetime string `form:"pickup_datetime"`
}

type LoadsResponse struct {
	StatusCode        int      `json:"statusCode"`
	LoadsAvailable    bool     `json:"loads_available"`
	Message           string   `json:"message"`
	Loads             []Load   `json:"loads"`
	OmittedParameters []string `json:"omitted_parameters"`
}

type StoreMetricsRequest struct {
	RunID               *string  `json:"run_id"`
	OrgID               *string  `json:"org_id"`
	CarrierMC           *string  `json:"carrier_mc"`
	LoadID              *string  `json:"load_id"`
	Outcome             string   `json:"outcome" binding:"required"`
	Sentiment           *string  `json:"sentiment"`
	CarrierInitialOffer *float64 `json:"carrier_initial_offer"`
	LoadAgreedRate      *float64 `json:"load_agreed_rate"`
	LoadLoadboardRate   *float64 `json:"load_loadboard_rate"`
	NegotiationAttempts *int     `json:"negotiation_attempts" binding:"omitempty,min=0"`
	Notes               *string  `json:"notes"`
}

type MetricsListResponse struct {
	StatusCode int          `json:"statusCode"`
	Metrics    []CallMetric `json:"metrics"`
}

type ServiceHealth struct {
	Name         string `json:"name"`
	Status       string `json:"status"`
	ResponseTime int    `json:"response_time_ms"`
	Error        string `json:"error,omitempty"`
	LastChecked  string `json:"last_checked"`
}

type HealthResponse struct {
	Status       string          `json:"status"`
	Service      string          `json:"service"`
	Version      string          `json:"version"`
	Timestamp    string          `json:"timestamp"`
	Uptime       string          `json:"uptime"`
	Dependencies []ServiceHealth `json:"dependencies"`
}

type ServiceStatusResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

type MetricsHealthResponse struct {
	Status      string      `json:"status"`
	Service     string      `json:"service"`
	LastRefresh interface{} `json:"last_refresh"`
}
