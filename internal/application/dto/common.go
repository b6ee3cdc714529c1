package dto

// ErrorResponse cuerpo de error HTTP. Code es estable (VALIDATION, AFIP_UNAVAILABLE...), Message es para humanos.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HealthResponse respuesta de GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	AFIPEnv string `json:"afip_env"`
}
