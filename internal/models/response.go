package models

// ErrorResponse - стандартное тело ответа об ошибке.
// Поле detail сохраняет форму ответа, которую ожидает фронтенд.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// StatusResponse is returned by the liveness endpoints.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
