package domain

import "errors"

var (
	// ErrInvalidTrade возвращается при структурно некорректных параметрах сделки
	ErrInvalidTrade = errors.New("invalid trade")

	// ErrInsufficientBalance возвращается при недостаточном балансе
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrSessionNotFound возвращается когда сессия не найдена в реестре
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionNotActive возвращается при попытке остановить завершенную сессию
	ErrSessionNotActive = errors.New("session is not active")

	// ErrExternalFetch возвращается при недоступности внешнего источника данных
	ErrExternalFetch = errors.New("external fetch failed")

	// ErrOracleUnavailable возвращается при недоступности или некорректном ответе оракула
	ErrOracleUnavailable = errors.New("decision oracle unavailable")

	// ErrExecutionFailed возвращается при отказе торгового API
	ErrExecutionFailed = errors.New("trade execution failed")

	// ErrKillSwitchActive возвращается когда активирован аварийный стоп
	ErrKillSwitchActive = errors.New("kill switch is active")
)
